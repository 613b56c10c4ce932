package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// DefaultPreviewDimension bounds the longer side of a preview thumbnail
const DefaultPreviewDimension = 320

// Preview is a local thumbnail of the selected image. It holds a temp
// file that must be released when the image is replaced or the screen is
// left.
type Preview struct {
	Path   string
	Width  int
	Height int

	once sync.Once
	err  error
}

// NewPreview writes a thumbnail of img to a uniquely named temp file
func NewPreview(img *Image, maxDim int) (*Preview, error) {
	if maxDim <= 0 {
		maxDim = DefaultPreviewDimension
	}
	decoded, _, err := decode(img.Data)
	if err != nil {
		return nil, fmt.Errorf("building preview: %w", err)
	}
	thumb, _ := fit(decoded, maxDim)
	data, err := encodeJPEG(thumb)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(os.TempDir(), "riceguard-preview-"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing preview: %w", err)
	}
	log.WithField("path", path).Debug("imaging.preview.created")

	b := thumb.Bounds()
	return &Preview{Path: path, Width: b.Dx(), Height: b.Dy()}, nil
}

// Release removes the preview file. Calling it more than once is safe.
func (p *Preview) Release() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.err = fmt.Errorf("removing preview: %w", err)
			return
		}
		log.WithField("path", p.Path).Debug("imaging.preview.released")
	})
	return p.err
}
