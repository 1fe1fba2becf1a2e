package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
)

// Processor prepares receipt screenshots for OCR
type Processor struct {
	contrast float64
}

// NewProcessor creates a new image processor
func NewProcessor(contrast float64) *Processor {
	return &Processor{
		contrast: contrast,
	}
}

// Prepare converts a receipt image to a high-contrast grayscale PNG. The
// OCR engine reads financial receipts far more reliably after this pass.
func (p *Processor) Prepare(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	out := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out.SetGray(x, y, color.Gray{Y: p.adjust(g.Y)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// adjust scales a gray value away from mid-gray by the contrast factor.
func (p *Processor) adjust(v uint8) uint8 {
	adjusted := 128 + (float64(v)-128)*p.contrast
	if adjusted < 0 {
		return 0
	}
	if adjusted > 255 {
		return 255
	}
	return uint8(adjusted)
}
