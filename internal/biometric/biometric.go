// Package biometric provides the fingerprint and face matchers consulted by
// the verification pipeline. A matcher answers match or no-match; any other
// outcome is an error and is never read as a match.
package biometric

import (
	"context"

	"ballotgate/pkg/domain"
)

// Modality names the biometric factor a matcher checks.
type Modality string

const (
	ModalityFingerprint Modality = "fingerprint"
	ModalityFace        Modality = "face"
)

func (m Modality) String() string { return string(m) }

// Matcher compares a captured sample against the templates enrolled for
// identity.
type Matcher interface {
	Match(ctx context.Context, identity domain.IdentityToken, sample []byte) (bool, error)
}
