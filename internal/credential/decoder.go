// Package credential turns a scanned QR payload into a canonical identity
// token checked against the voter roll.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
)

// VoterDirectory resolves enrolled voters. Both *Roll and *FileRoll satisfy it.
type VoterDirectory interface {
	Lookup(identity domain.IdentityToken) (*Voter, bool)
}

type qrPayload struct {
	identityFields
}

type Decoder struct {
	voters VoterDirectory
}

func NewDecoder(voters VoterDirectory) *Decoder {
	return &Decoder{voters: voters}
}

// Decode parses a raw QR payload of the form {"aadhar": "..."}. The identity may
// be a string or a bare number, under "aadhar" or "aadhaar". Every failure,
// including an identity that is not enrolled, is a decode_error so the kiosk
// can rescan.
func (d *Decoder) Decode(ctx context.Context, raw string) (*Voter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, dErrors.New(dErrors.CodeDecode, "no QR data received")
	}

	var payload qrPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, dErrors.Wrap(err, dErrors.CodeDecode, "QR content is not a JSON object")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "QR content is not valid JSON")
	}
	value, present, err := payload.identity()
	if !present {
		return nil, dErrors.New(dErrors.CodeDecode, "QR does not contain an identity field")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "QR identity must be a string or number")
	}

	identity, err := domain.ParseIdentityToken(Normalize(value))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "QR identity is malformed")
	}

	voter, ok := d.voters.Lookup(identity)
	if !ok {
		return nil, dErrors.New(dErrors.CodeDecode, "voter is not on the roll")
	}
	return voter, nil
}
