package qr

import (
	"github.com/skip2/go-qrcode"
)

// Generator renders checkout QR codes for the gateway's hosted payment page,
// so a redirect URL created on one device can be scanned and paid on another.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// CheckoutQR encodes the redirect URL as a PNG.
func (g *Generator) CheckoutQR(redirectURL string) ([]byte, error) {
	return qrcode.Encode(redirectURL, qrcode.Medium, g.size)
}
