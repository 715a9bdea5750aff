package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Image is a normalized, embeddable image payload.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI renders the payload as "data:<mime>;base64,<bytes>".
func (img Image) DataURI() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64()
}

// Base64 returns the standard base64 encoding of the bytes, without any prefix.
func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// StripDataURIPrefix drops a leading "data:...;base64," if present.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ParseDataURI decodes a data URI, or bare base64 assumed to be JPEG.
func ParseDataURI(s string) (Image, error) {
	s = strings.TrimSpace(s)
	mime := "image/jpeg"
	if strings.HasPrefix(s, "data:") {
		head, _, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return Image{}, fmt.Errorf("%w: malformed data uri", ErrImageDecode)
		}
		if m, _, _ := strings.Cut(head, ";"); m != "" {
			mime = m
		}
	}
	data, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(s))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty payload", ErrImageDecode)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

func (img Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(img.DataURI())
}

func (img *Image) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDataURI(s)
	if err != nil {
		return err
	}
	*img = parsed
	return nil
}
