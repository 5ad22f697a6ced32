package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/singleflight"

	"ballotgate/pkg/domain"
)

// Voter is an enrolled entry of the voter roll.
type Voter struct {
	Identity         domain.IdentityToken
	Name             string
	Age              int
	Address          string
	Phone            string
	FingerprintPages []int
	// Hex BLAKE2b-256 digests of the enrolled samples, used when no external
	// matcher is configured.
	FingerprintDigest string
	FaceDigest        string
}

// Profile is the part of a voter record shown to the kiosk operator once the
// credential is accepted.
type Profile struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
}

func (v *Voter) Profile() Profile {
	return Profile{Name: v.Name, Age: v.Age, Address: v.Address}
}

type rollEntry struct {
	identityFields
	Name              string `json:"name"`
	Age               int    `json:"age"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	FingerprintPages  []int  `json:"fingerprint_pages"`
	FingerprintDigest string `json:"fingerprint_digest"`
	FaceDigest        string `json:"face_digest"`
}

// Roll is an immutable snapshot of enrolled voters keyed by canonical token.
type Roll struct {
	voters map[domain.IdentityToken]*Voter
}

// ParseRoll reads a JSON object of enrolled voters. Object keys are ignored in
// favour of the "aadhar" (or "aadhaar") field when present; both are
// normalized.
func ParseRoll(r io.Reader) (*Roll, error) {
	var raw map[string]rollEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode voter roll: %w", err)
	}
	roll := &Roll{voters: make(map[domain.IdentityToken]*Voter, len(raw))}
	for key, entry := range raw {
		source, present, err := entry.identity()
		if err != nil {
			return nil, fmt.Errorf("voter roll entry %q: %w", key, err)
		}
		if !present || source == "" {
			source = key
		}
		identity, err := domain.ParseIdentityToken(Normalize(source))
		if err != nil {
			return nil, fmt.Errorf("voter roll entry %q: %w", key, err)
		}
		if _, dup := roll.voters[identity]; dup {
			return nil, fmt.Errorf("voter roll entry %q: duplicate identity", key)
		}
		roll.voters[identity] = &Voter{
			Identity:          identity,
			Name:              entry.Name,
			Age:               entry.Age,
			Address:           entry.Address,
			Phone:             entry.Phone,
			FingerprintPages:  entry.FingerprintPages,
			FingerprintDigest: entry.FingerprintDigest,
			FaceDigest:        entry.FaceDigest,
		}
	}
	return roll, nil
}

// NewRoll builds a roll from voters already in canonical form. Used by tests
// and development fixtures.
func NewRoll(voters ...Voter) *Roll {
	roll := &Roll{voters: make(map[domain.IdentityToken]*Voter, len(voters))}
	for i := range voters {
		v := voters[i]
		roll.voters[v.Identity] = &v
	}
	return roll
}

// Lookup returns a copy of the voter enrolled under identity.
func (r *Roll) Lookup(identity domain.IdentityToken) (*Voter, bool) {
	v, ok := r.voters[identity]
	if !ok {
		return nil, false
	}
	cp := *v
	cp.FingerprintPages = append([]int(nil), v.FingerprintPages...)
	return &cp, true
}

func (r *Roll) Len() int { return len(r.voters) }

// Normalize strips every whitespace rune. QR scanners and hand-typed rolls
// both insert spaces between digit groups.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// FileRoll serves a roll loaded from a JSON file and supports reloading it in
// place. Concurrent reloads share one read of the file.
type FileRoll struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	roll  *Roll
	group singleflight.Group
}

func OpenFileRoll(path string, logger *slog.Logger) (*FileRoll, error) {
	fr := &FileRoll{path: path, logger: logger}
	if err := fr.Reload(context.Background()); err != nil {
		return nil, err
	}
	return fr, nil
}

// Reload re-reads the roll file. On error the previous snapshot stays active.
func (f *FileRoll) Reload(ctx context.Context) error {
	_, err, _ := f.group.Do("reload", func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := os.Open(f.path)
		if err != nil {
			return nil, fmt.Errorf("open voter roll: %w", err)
		}
		defer file.Close()
		roll, err := ParseRoll(file)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.roll = roll
		f.mu.Unlock()
		if f.logger != nil {
			f.logger.InfoContext(ctx, "voter roll loaded", "path", f.path, "voters", roll.Len())
		}
		return nil, nil
	})
	return err
}

func (f *FileRoll) Lookup(identity domain.IdentityToken) (*Voter, bool) {
	f.mu.RLock()
	roll := f.roll
	f.mu.RUnlock()
	return roll.Lookup(identity)
}
