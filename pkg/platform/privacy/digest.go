// Package privacy derives stable, non-reversible handles for voter identities
// so registries and logs never hold raw national IDs.
package privacy

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes keyed BLAKE2b-256 digests. Equal inputs always produce equal
// digests under the same pepper.
type Hasher struct {
	pepper []byte
}

// NewHasher builds a Hasher. The pepper may be empty in development; blake2b
// keys longer than 64 bytes are rejected.
func NewHasher(pepper string) (*Hasher, error) {
	if len(pepper) > blake2b.Size {
		return nil, fmt.Errorf("identity pepper must be at most %d bytes", blake2b.Size)
	}
	return &Hasher{pepper: []byte(pepper)}, nil
}

// Digest returns the hex-encoded keyed digest of value.
func (h *Hasher) Digest(value string) string {
	mac, err := blake2b.New256(h.pepper)
	if err != nil {
		// Key length is validated in NewHasher.
		panic(err)
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Fingerprint returns a short unkeyed handle suitable for log correlation.
func Fingerprint(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return hex.EncodeToString(sum[:6])
}
