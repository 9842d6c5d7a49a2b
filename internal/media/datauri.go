// Package media turns uploaded or generated images into stored assets.
package media

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

// DataURI is a decoded base64 data URI.
type DataURI struct {
	MimeType string
	Data     []byte
}

// ParseDataURI decodes "data:<mime>;base64,<payload>". Only base64 payloads
// are accepted.
func ParseDataURI(s string) (DataURI, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return DataURI{}, fmt.Errorf("not a data URI: %w", domain.ErrInvalidInput)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, fmt.Errorf("data URI has no payload: %w", domain.ErrInvalidInput)
	}

	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return DataURI{}, fmt.Errorf("data URI must be base64 encoded: %w", domain.ErrInvalidInput)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return DataURI{}, fmt.Errorf("data URI payload: %v: %w", err, domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return DataURI{}, fmt.Errorf("data URI is empty: %w", domain.ErrInvalidInput)
	}

	return DataURI{MimeType: mime, Data: data}, nil
}

func (d DataURI) String() string {
	return "data:" + d.MimeType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// IsImage reports whether the declared MIME type is an image type.
func (d DataURI) IsImage() bool {
	return strings.HasPrefix(d.MimeType, "image/")
}
