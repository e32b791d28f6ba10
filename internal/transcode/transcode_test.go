package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	webpdec "golang.org/x/image/webp"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodeWebpConfig(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, err := webpdec.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err, "output should be a decodable webp")
	return cfg
}

func TestFitScalesDownWithinBox(t *testing.T) {
	out, err := Fit(pngFixture(t, 500, 800), 564)
	require.NoError(t, err)

	cfg := decodeWebpConfig(t, out)
	assert.LessOrEqual(t, cfg.Width, 564)
	assert.LessOrEqual(t, cfg.Height, 564)
	// The longer side hits the box; aspect ratio is preserved.
	assert.Equal(t, 564, cfg.Height)
	assert.InDelta(t, 500.0/800.0, float64(cfg.Width)/float64(cfg.Height), 0.01)
}

func TestFitKeepsSmallImages(t *testing.T) {
	out, err := Fit(pngFixture(t, 100, 50), 564)
	require.NoError(t, err)

	cfg := decodeWebpConfig(t, out)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestFitIsDeterministic(t *testing.T) {
	src := jpegFixture(t, 300, 300)
	a, err := Fit(src, 240)
	require.NoError(t, err)
	b, err := Fit(src, 240)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFitRejectsNonImage(t *testing.T) {
	_, err := Fit([]byte("definitely not pixels"), 564)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestSniff(t *testing.T) {
	format, err := Sniff(pngFixture(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	format, err = Sniff(jpegFixture(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, err = Sniff([]byte("plain text payload"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
