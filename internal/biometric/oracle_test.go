package biometric

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotgate/internal/credential"
	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/circuit"
)

type OracleClientSuite struct {
	suite.Suite
	calls   atomic.Int32
	handler http.HandlerFunc
	server  *httptest.Server
}

func TestOracleClientSuite(t *testing.T) {
	suite.Run(t, new(OracleClientSuite))
}

func (s *OracleClientSuite) SetupTest() {
	s.calls.Store(0)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.handler(w, r)
	}))
}

func (s *OracleClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *OracleClientSuite) client(opts ...OracleOption) *OracleClient {
	c, err := NewOracleClient(s.server.URL+"/", ModalityFingerprint, opts...)
	s.Require().NoError(err)
	return c
}

func (s *OracleClientSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *OracleClientSuite) TestRequestShape() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/match", r.URL.Path)
		var req matchRequest
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
		s.Equal("A123", req.Identity)
		s.Equal("fingerprint", req.Modality)
		s.Equal([]byte{1, 2, 3}, req.Sample)
		s.Nil(req.Pages)
		_, _ = w.Write([]byte(`{"match":true}`))
	}

	matched, err := s.client().Match(context.Background(), "A123", []byte{1, 2, 3})
	s.Require().NoError(err)
	s.True(matched)
}

func (s *OracleClientSuite) TestEnrolledPagesAreSent() {
	roll := credential.NewRoll(
		credential.Voter{Identity: "A123", FingerprintPages: []int{3, 4}},
		credential.Voter{Identity: "B456"},
	)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
		s.Equal([]int{3, 4}, req.Pages)
		_, _ = w.Write([]byte(`{"match":true}`))
	}
	ctx := context.Background()
	c := s.client(WithVoterDirectory(roll))

	s.Run("pages from the roll travel with the sample", func() {
		matched, err := c.Match(ctx, "A123", []byte("x"))
		s.Require().NoError(err)
		s.True(matched)
	})

	s.Run("voter without pages is not_enrolled and never calls out", func() {
		before := s.calls.Load()
		matched, err := c.Match(ctx, "B456", []byte("x"))
		s.False(matched)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEnrolled), "got %v", err)
		s.EqualError(err, "no fingerprint pages stored for this voter")
		s.Equal(before, s.calls.Load())
	})

	s.Run("voter missing from the roll is not_enrolled", func() {
		_, err := c.Match(ctx, "Z9", []byte("x"))
		s.True(dErrors.HasCode(err, dErrors.CodeNotEnrolled))
	})

	s.Run("face requests carry no pages", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			var req matchRequest
			s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
			s.Equal("face", req.Modality)
			s.Nil(req.Pages)
			_, _ = w.Write([]byte(`{"match":true}`))
		}
		face, err := NewOracleClient(s.server.URL, ModalityFace, WithVoterDirectory(roll))
		s.Require().NoError(err)
		matched, err := face.Match(ctx, "B456", []byte("x"))
		s.Require().NoError(err)
		s.True(matched)
	})
}

func (s *OracleClientSuite) TestOutcomes() {
	ctx := context.Background()

	s.Run("no match", func() {
		s.respond(http.StatusOK, `{"match":false}`)
		matched, err := s.client().Match(ctx, "A123", []byte("x"))
		s.NoError(err)
		s.False(matched)
	})

	s.Run("unusable sample is a mismatch", func() {
		s.respond(http.StatusUnprocessableEntity, `{"error":"no finger detected"}`)
		matched, err := s.client().Match(ctx, "A123", []byte("x"))
		s.NoError(err)
		s.False(matched)
	})

	s.Run("server error is never a match", func() {
		s.respond(http.StatusInternalServerError, `{"match":true}`)
		matched, err := s.client().Match(ctx, "A123", []byte("x"))
		s.False(matched)
		s.True(dErrors.HasCode(err, dErrors.CodeOracleUnavailable))
	})

	s.Run("missing match field is an error", func() {
		s.respond(http.StatusOK, `{}`)
		matched, err := s.client().Match(ctx, "A123", []byte("x"))
		s.False(matched)
		s.True(dErrors.HasCode(err, dErrors.CodeOracleUnavailable))
	})

	s.Run("empty sample is rejected locally", func() {
		before := s.calls.Load()
		_, err := s.client().Match(ctx, "A123", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Equal(before, s.calls.Load())
	})
}

func (s *OracleClientSuite) TestTimeout() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}
	matched, err := s.client(WithTimeout(20*time.Millisecond)).Match(context.Background(), "A123", []byte("x"))
	s.False(matched)
	s.True(dErrors.HasCode(err, dErrors.CodeOracleUnavailable))
}

func (s *OracleClientSuite) TestBreakerOpensAndShortCircuits() {
	s.respond(http.StatusBadGateway, ``)
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	breaker := circuit.New("fp",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	c := s.client(WithBreaker(breaker))
	ctx := context.Background()

	for range 2 {
		_, err := c.Match(ctx, "A123", []byte("x"))
		s.Error(err)
	}
	s.True(breaker.IsOpen())
	s.Equal(int32(2), s.calls.Load())

	_, err := c.Match(ctx, "A123", []byte("x"))
	s.True(dErrors.HasCode(err, dErrors.CodeOracleUnavailable))
	s.Equal(int32(2), s.calls.Load(), "open circuit does not reach the oracle")

	now = now.Add(2 * time.Minute)
	s.respond(http.StatusOK, `{"match":true}`)
	matched, err := c.Match(ctx, "A123", []byte("x"))
	s.NoError(err)
	s.True(matched)
	s.Equal(int32(3), s.calls.Load())
}

func TestNewOracleClientRequiresURL(t *testing.T) {
	_, err := NewOracleClient("", ModalityFace)
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}
