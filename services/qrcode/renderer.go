package qrsvc

import (
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/Mohammed01doitesky/bed/core"
)

const DefaultSize = 256

type renderer struct {
	level qrcode.RecoveryLevel
}

var _ core.QRRenderer = (*renderer)(nil)

// NewRenderer returns a PNG QR renderer at medium error correction.
func NewRenderer() core.QRRenderer {
	return &renderer{level: qrcode.Medium}
}

func (r *renderer) Render(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, errors.New("empty qrcode text")
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(text, r.level, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qrcode")
	}
	return png, nil
}
