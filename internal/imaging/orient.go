package imaging

import (
	"bytes"
	"image"

	"github.com/rwcarlsen/goexif/exif"
)

// orientation returns the EXIF orientation tag of data, or 1
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// upright applies an EXIF orientation so the image displays as shot
func upright(img image.Image, o int) image.Image {
	if o < 2 || o > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if o >= 5 {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch o {
			case 2: // mirror
				dst.Set(w-1-x, y, c)
			case 3: // 180
				dst.Set(w-1-x, h-1-y, c)
			case 4: // flip
				dst.Set(x, h-1-y, c)
			case 5: // transpose
				dst.Set(y, x, c)
			case 6: // 90 cw
				dst.Set(h-1-y, x, c)
			case 7: // transverse
				dst.Set(h-1-y, w-1-x, c)
			case 8: // 90 ccw
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
