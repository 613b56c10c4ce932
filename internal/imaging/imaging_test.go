package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestJPEG creates a JPEG with a gradient pattern
func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8((x + y) % 256), G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadSniffsContentType(t *testing.T) {
	path := writeFile(t, "leaf.bin", createTestJPEG(t, 10, 10))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "leaf.bin", img.Name)
	assert.Equal(t, "image/jpeg", img.ContentType)
}

func TestLoadRejectsNonImages(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("just some field notes"))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotImage))
}

func TestFromBytesDefaults(t *testing.T) {
	img := FromBytes("", []byte{0x00, 0x01})
	assert.Equal(t, DefaultName, img.Name)
	assert.Equal(t, DefaultContentType, img.ContentType)

	img = FromBytes("IMG_0042.HEIC", []byte{0x00, 0x01})
	assert.Equal(t, "image/heic", img.ContentType)
}

func TestCompressLargeImage(t *testing.T) {
	img := &Image{Name: "big.png", ContentType: "image/png"}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1200, 600))))
	img.Data = buf.Bytes()

	out, err := Compress(img, 512)
	require.NoError(t, err)
	assert.Equal(t, "big.jpg", out.Name)
	assert.Equal(t, "image/jpeg", out.ContentType)

	decoded, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 512, decoded.Bounds().Dx())
	assert.Equal(t, 256, decoded.Bounds().Dy())
}

func TestCompressKeepsOriginal(t *testing.T) {
	small := &Image{Name: "small.jpg", ContentType: "image/jpeg", Data: createTestJPEG(t, 100, 80)}

	out, err := Compress(small, 512)
	require.NoError(t, err)
	assert.Same(t, small, out)

	out, err = Compress(small, 0)
	require.NoError(t, err)
	assert.Same(t, small, out)

	garbage := &Image{Name: "x.heic", Data: []byte("not decodable")}
	out, err = Compress(garbage, 512)
	require.NoError(t, err)
	assert.Same(t, garbage, out)
}

func TestPreviewReleaseIsIdempotent(t *testing.T) {
	img := &Image{Name: "leaf.jpg", ContentType: "image/jpeg", Data: createTestJPEG(t, 800, 400)}

	p, err := NewPreview(img, 200)
	require.NoError(t, err)
	assert.Equal(t, 200, p.Width)
	assert.Equal(t, 100, p.Height)
	_, err = os.Stat(p.Path)
	require.NoError(t, err)

	require.NoError(t, p.Release())
	require.NoError(t, p.Release())
	_, err = os.Stat(p.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestPreviewRejectsUndecodable(t *testing.T) {
	_, err := NewPreview(&Image{Data: []byte("nope")}, 0)
	assert.Error(t, err)
}

func TestUprightRotatesQuarterTurns(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})

	cw := upright(src, 6)
	assert.Equal(t, 2, cw.Bounds().Dx())
	assert.Equal(t, 4, cw.Bounds().Dy())
	r, _, _, _ := cw.At(1, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	ccw := upright(src, 8)
	r, _, _, _ = ccw.At(0, 3).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	assert.Same(t, src, upright(src, 1))
}
