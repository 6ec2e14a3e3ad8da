package lib

import (
	"bytes"
	"log"

	"github.com/yeqown/go-qrcode"
)

const QRCodeContentType = "image/jpeg"

// RenderQRCode encodes text into a JPEG image held in memory.
func RenderQRCode(text string) ([]byte, error) {
	qrc, err := qrcode.New(text)
	if err != nil {
		log.Printf("[QRCode] Could not encode text: %s\n", err.Error())
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		log.Printf("[QRCode] Could not render image: %s\n", err.Error())
		return nil, err
	}
	return buf.Bytes(), nil
}
