// Package transcode resizes raster images and re-encodes them as WebP.
// All functions are pure and safe for unlimited concurrent use.
package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// ErrInvalidImage is returned when the input bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image data")

// webpQuality is the lossy encoding quality for all derivatives.
const webpQuality = 80

// Sniff probes the image format of data without decoding the full pixel data.
// Returns the format name ("jpeg", "png", ...) or ErrInvalidImage.
func Sniff(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrInvalidImage
	}
	return format, nil
}

// Fit decodes data, scales it down to fit within a sizePx × sizePx box
// preserving aspect ratio, and encodes the result as WebP. Images already
// smaller than the box are re-encoded at their original dimensions.
func Fit(data []byte, sizePx int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}

	resized := imaging.Fit(img, sizePx, sizePx, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
