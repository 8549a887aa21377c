package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// DefaultSize matches the pairing image panel the relay QR is rendered into.
const DefaultSize = 220

var errEmptyPayload = errors.New("empty pairing payload")

// RenderPNG encodes a pairing payload as a QR code and returns PNG bytes
// scaled to size x size pixels.
func RenderPNG(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, errEmptyPayload
	}
	if size <= 0 {
		size = DefaultSize
	}
	code, err := qr.Encode(text, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
