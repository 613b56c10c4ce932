// Package imaging prepares leaf photos for upload: loading and sniffing
// files, building local previews and optional pre-upload downscaling.
package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultName        = "photo.jpg"
	DefaultContentType = "image/jpeg"
)

// ErrNotImage is returned for files whose content is not an image
var ErrNotImage = errors.New("not an image")

// Image is a selected photo ready to be uploaded
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Load reads the file at path and rejects anything that is not an image
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	sniffed := mimetype.Detect(data).String()
	if !strings.HasPrefix(sniffed, "image/") && extContentType(path) == "" {
		return nil, fmt.Errorf("%s (%s): %w", filepath.Base(path), sniffed, ErrNotImage)
	}
	return FromBytes(filepath.Base(path), data), nil
}

// FromBytes wraps an image picked from somewhere other than a file path.
// The name defaults to photo.jpg; the content type is sniffed, then taken
// from the extension, then assumed to be JPEG.
func FromBytes(name string, data []byte) *Image {
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = DefaultName
	}
	ctype := mimetype.Detect(data).String()
	if !strings.HasPrefix(ctype, "image/") {
		ctype = extContentType(name)
	}
	if ctype == "" {
		ctype = DefaultContentType
	}
	return &Image{Name: name, ContentType: ctype, Data: data}
}

var imageExts = map[string]string{
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
	"bmp":  "bmp",
	"heic": "heic",
	"heif": "heif",
	"tif":  "tiff",
	"tiff": "tiff",
}

func extContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if sub, ok := imageExts[ext]; ok {
		return "image/" + sub
	}
	return ""
}
