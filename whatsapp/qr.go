package whatsapp

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodePNGBase64 renders a pairing code as a 256px PNG and returns it
// base64 encoded, ready for a data URI.
func QRCodePNGBase64(code string) (string, error) {
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	pngData, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pngData), nil
}
