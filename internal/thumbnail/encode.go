package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// ColorMode defines the color mode for thumbnails
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// MediaTypeJPEG is the media type of encoded thumbnails.
const MediaTypeJPEG = "image/jpeg"

// EncodeJPEG encodes a rendered page, converting to grayscale first when requested.
func EncodeJPEG(img image.Image, quality int, mode ColorMode) ([]byte, error) {
	final := img
	if mode == ColorGray {
		bounds := img.Bounds()
		gray := image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
		final = gray
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, final, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
