package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// decode decodes data and turns it upright
func decode(data []byte) (image.Image, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 1, fmt.Errorf("decoding image: %w", err)
	}
	o := orientation(data)
	return upright(img, o), o, nil
}

// fit scales img so neither side exceeds maxDim, keeping the aspect ratio
func fit(img image.Image, maxDim int) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img, false
	}
	nw, nh := maxDim, h*maxDim/w
	if h > w {
		nw, nh = w*maxDim/h, maxDim
	}
	nw, nh = max(1, nw), max(1, nh)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, true
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Compress downsizes img to fit within maxDim before upload. The original is
// returned untouched when maxDim is 0, when it already fits, or when it
// cannot be decoded locally (the backend may still understand it).
func Compress(img *Image, maxDim int) (*Image, error) {
	if maxDim <= 0 {
		return img, nil
	}
	decoded, o, err := decode(img.Data)
	if err != nil {
		log.WithError(err).WithField("name", img.Name).Warn("imaging.compress.skipped")
		return img, nil
	}
	scaled, resized := fit(decoded, maxDim)
	if !resized && o == 1 {
		return img, nil
	}
	data, err := encodeJPEG(scaled)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"name":        img.Name,
		"orientation": o,
		"before":      len(img.Data),
		"after":       len(data),
		"width":       scaled.Bounds().Dx(),
		"height":      scaled.Bounds().Dy(),
	}).Info("imaging.compress.done")

	return &Image{Name: jpegName(img.Name), ContentType: "image/jpeg", Data: data}, nil
}

func jpegName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
