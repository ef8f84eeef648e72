package extractor

import (
	"encoding/base64"
)

type ImageEncoder struct{}

// Encode returns the standard base64 form of data, ready for a data URI.
func (ImageEncoder) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
