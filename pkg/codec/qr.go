package codec

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

type QRRenderer struct {
	// output image edge in pixels
	Size int
}

func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = 1000
	}
	return &QRRenderer{Size: size}
}

// Render encodes the payload into a PNG QR image. Low error correction
// keeps the largest payloads scannable.
func (qr *QRRenderer) Render(payload []byte) ([]byte, error) {
	return qrcode.Encode(string(payload), qrcode.Low, qr.Size)
}

type QRDecoder struct {
	reader gozxing.Reader
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: zxqr.NewQRCodeReader(),
	}
}

// Decode scans one image for a QR code. (nil, nil) means the image
// holds no code at all; a broken image is an error.
func (qd *QRDecoder) Decode(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}

	result, err := qd.reader.Decode(bmp, nil)
	if err != nil {
		if _, ok := err.(gozxing.NotFoundException); ok {
			return nil, nil
		}
		if _, ok := err.(gozxing.ReaderException); ok {
			return nil, nil
		}
		return nil, err
	}
	return []byte(result.GetText()), nil
}
