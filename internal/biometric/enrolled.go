package biometric

import (
	"context"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"ballotgate/internal/credential"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
)

// EnrolledMatcher compares the digest of a captured sample with the digest
// stored on the voter roll. It stands in for a matcher service on kiosks that
// capture pre-normalized templates.
type EnrolledMatcher struct {
	voters   credential.VoterDirectory
	modality Modality
}

func NewEnrolledMatcher(voters credential.VoterDirectory, modality Modality) *EnrolledMatcher {
	return &EnrolledMatcher{voters: voters, modality: modality}
}

func notEnrolled(modality Modality) error {
	if modality == ModalityFingerprint {
		return dErrors.New(dErrors.CodeNotEnrolled, "no fingerprint pages stored for this voter")
	}
	return dErrors.New(dErrors.CodeNotEnrolled, "no "+modality.String()+" sample stored for this voter")
}

// SampleDigest is the enrollment digest of a sample.
func SampleDigest(sample []byte) string {
	sum := blake2b.Sum256(sample)
	return hex.EncodeToString(sum[:])
}

func (m *EnrolledMatcher) Match(ctx context.Context, identity domain.IdentityToken, sample []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(sample) == 0 {
		return false, dErrors.New(dErrors.CodeInvalidInput, m.modality.String()+" sample is required")
	}
	voter, ok := m.voters.Lookup(identity)
	if !ok {
		return false, dErrors.New(dErrors.CodeNotEnrolled, "voter is no longer on the roll")
	}

	var enrolled string
	switch m.modality {
	case ModalityFingerprint:
		enrolled = voter.FingerprintDigest
	case ModalityFace:
		enrolled = voter.FaceDigest
	}
	if enrolled == "" {
		return false, notEnrolled(m.modality)
	}
	got := SampleDigest(sample)
	return subtle.ConstantTimeCompare([]byte(got), []byte(enrolled)) == 1, nil
}
