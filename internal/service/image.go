package service

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"mime"
	"net/http"
	"strings"

	"safeguard/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// ProfilePhotoMaxSide bounds the longest side of a stored profile photo.
	ProfilePhotoMaxSide = 512
	// RecordPhotoMaxSide bounds observation and register photos.
	RecordPhotoMaxSide = 1024
	PostTileWidth      = 400
	PostTileHeight     = 300
	WebPQuality        = 70
)

// NormalizePhoto decodes an uploaded image, shrinks it to fit maxSide and
// re-encodes it as PNG.
func NormalizePhoto(data []byte, maxSide int) ([]byte, error) {
	src, err := decodeUpload(data)
	if err != nil {
		return nil, err
	}
	return encodePNG(resizeToFit(src, maxSide, maxSide))
}

// FitOnCanvas shrinks the image to fit w×h, preserving aspect ratio, and
// centers it on a white canvas of exactly w×h.
func FitOnCanvas(data []byte, w, h int) ([]byte, error) {
	src, err := decodeUpload(data)
	if err != nil {
		return nil, err
	}
	fitted := resizeToFit(src, w, h)

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	fb := fitted.Bounds()
	left := (w - fb.Dx()) / 2
	top := (h - fb.Dy()) / 2
	draw.Draw(canvas, image.Rect(left, top, left+fb.Dx(), top+fb.Dy()), fitted, fb.Min, draw.Over)

	return encodePNG(canvas)
}

// TranscodeWebP re-encodes a stored PNG as WebP for clients that accept it.
func TranscodeWebP(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodeWebP(src, WebPQuality)
}

// AcceptsWebP reports whether an Accept header lists image/webp.
func AcceptsWebP(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		if normalizeContentType(part) == "image/webp" {
			return true
		}
	}
	return false
}

// DetectContentType sniffs data, preferring the sniffed type over a
// client-declared one.
func DetectContentType(data []byte, declared string) string {
	detected := http.DetectContentType(data)
	if detected == "application/octet-stream" {
		if d := normalizeContentType(declared); d != "" {
			return d
		}
	}
	return normalizeContentType(detected)
}

func decodeUpload(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if !isAllowedImageMIME(http.DetectContentType(data)) {
		return nil, models.NewValidationError("Invalid image type")
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}
	return src, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
