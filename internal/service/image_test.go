package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestNormalizePhoto(t *testing.T) {
	t.Run("shrinks the longest side", func(t *testing.T) {
		out, err := NormalizePhoto(testutil.TinyPNG(t, 1200, 600, color.Black), ProfilePhotoMaxSide)
		require.NoError(t, err)
		b := decodePNG(t, out).Bounds()
		assert.Equal(t, 512, b.Dx())
		assert.Equal(t, 256, b.Dy())
	})

	t.Run("small images keep their size", func(t *testing.T) {
		out, err := NormalizePhoto(testutil.TinyPNG(t, 40, 30, color.Black), ProfilePhotoMaxSide)
		require.NoError(t, err)
		b := decodePNG(t, out).Bounds()
		assert.Equal(t, 40, b.Dx())
		assert.Equal(t, 30, b.Dy())
	})

	t.Run("rejects non images", func(t *testing.T) {
		_, err := NormalizePhoto([]byte("definitely not an image"), ProfilePhotoMaxSide)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := NormalizePhoto(nil, ProfilePhotoMaxSide)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})
}

func TestFitOnCanvas(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	out, err := FitOnCanvas(testutil.TinyPNG(t, 100, 100, red), PostTileWidth, PostTileHeight)
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	// 100x100 is centered at (150,100); the corners stay white.
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	r, g, b, _ = img.At(200, 150).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
}

func TestFitOnCanvas_WideImageFillsWidth(t *testing.T) {
	out, err := FitOnCanvas(testutil.TinyPNG(t, 800, 200, color.Black), PostTileWidth, PostTileHeight)
	require.NoError(t, err)
	img := decodePNG(t, out)

	// 800x200 scales to 400x100, leaving white bands above and below.
	r, _, _, _ := img.At(200, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	r, _, _, _ = img.At(200, 150).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestTranscodeWebP(t *testing.T) {
	out, err := TranscodeWebP(testutil.TinyPNG(t, 16, 16, color.White))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", DetectContentType(out, ""))
}

func TestAcceptsWebP(t *testing.T) {
	assert.True(t, AcceptsWebP("image/avif,image/webp,*/*;q=0.8"))
	assert.False(t, AcceptsWebP("image/png"))
	assert.False(t, AcceptsWebP(""))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType(testutil.TinyPNG(t, 2, 2, color.White), "application/pdf"))
	assert.Equal(t, "application/zip", DetectContentType([]byte{0x00, 0x01}, "application/zip"))
	assert.Equal(t, "text/plain", DetectContentType([]byte("hello"), ""))
}
