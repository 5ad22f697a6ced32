package credential

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errIdentityType = errors.New("identity must be a string or a whole number")

// identityFields reads the identity under either spelling printed on cards.
// "aadhar" wins when both are present.
type identityFields struct {
	Aadhar  json.RawMessage `json:"aadhar"`
	Aadhaar json.RawMessage `json:"aadhaar"`
}

// identity returns the raw identity text and whether a field was present.
// Card generators emit the number both quoted and bare.
func (f identityFields) identity() (string, bool, error) {
	raw := f.Aadhar
	if absent(raw) {
		raw = f.Aadhaar
	}
	if absent(raw) {
		return "", false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", true, err
	}
	n, ok := v.(json.Number)
	if !ok || !wholeNumber(n.String()) {
		return "", true, errIdentityType
	}
	return n.String(), true, nil
}

func absent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func wholeNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
