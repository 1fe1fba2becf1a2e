package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeGray(t *testing.T, values []uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, len(values), 1))
	for x, v := range values {
		img.SetGray(x, 0, color.Gray{Y: v})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareBoostsContrast(t *testing.T) {
	p := NewProcessor(2.0)

	data := encodeGray(t, []uint8{128, 100, 200, 0, 255})
	out, err := p.Prepare(data)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	gray, ok := img.(*image.Gray)
	require.True(t, ok, "output is grayscale")

	// 128 + (v-128)*2, clamped to [0, 255]
	want := []uint8{128, 72, 255, 0, 255}
	for x, w := range want {
		assert.Equal(t, w, gray.GrayAt(x, 0).Y, "pixel %d", x)
	}
}

func TestPrepareAcceptsColorInput(t *testing.T) {
	p := NewProcessor(1.0)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, err := p.Prepare(buf.Bytes())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	_, ok := decoded.(*image.Gray)
	assert.True(t, ok)
}

func TestPrepareRejectsGarbage(t *testing.T) {
	p := NewProcessor(2.0)

	_, err := p.Prepare([]byte("not an image"))
	assert.Error(t, err)
}
