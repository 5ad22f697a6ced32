package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ballotgate/internal/credential"
	"ballotgate/internal/platform/metrics"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/circuit"
	"ballotgate/pkg/platform/privacy"
)

const maxResponseBytes = 64 << 10

// OracleClient calls an external matcher service over HTTP:
//
//	POST {baseURL}/match  {"identity","modality","sample","pages"}  ->  {"match": bool}
//
// pages lists the fingerprint pages enrolled for the voter on the roll; the
// matcher searches only those.
// A 422 response means the sample was unusable (no finger detected, no face in
// frame) and is reported as a mismatch so the voter can retry. Transport errors,
// timeouts and other statuses count against the circuit breaker and surface
// as oracle_unavailable.
type OracleClient struct {
	baseURL    string
	modality   Modality
	httpClient *http.Client
	voters     credential.VoterDirectory
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type OracleOption func(*OracleClient)

func WithTimeout(d time.Duration) OracleOption {
	return func(c *OracleClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithVoterDirectory resolves the enrolled fingerprint pages sent with each
// fingerprint request. A voter with no pages is rejected without a call.
func WithVoterDirectory(voters credential.VoterDirectory) OracleOption {
	return func(c *OracleClient) {
		c.voters = voters
	}
}

func WithBreaker(b *circuit.Breaker) OracleOption {
	return func(c *OracleClient) {
		c.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) OracleOption {
	return func(c *OracleClient) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) OracleOption {
	return func(c *OracleClient) {
		c.logger = logger
	}
}

func NewOracleClient(baseURL string, modality Modality, opts ...OracleOption) (*OracleClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%s oracle URL is required", modality)
	}
	c := &OracleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modality:   modality,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New(modality.String() + "-oracle")
	}
	return c, nil
}

type matchRequest struct {
	Identity string `json:"identity"`
	Modality string `json:"modality"`
	Sample   []byte `json:"sample"`
	Pages    []int  `json:"pages,omitempty"`
}

type matchResponse struct {
	Match *bool `json:"match"`
}

func (c *OracleClient) Match(ctx context.Context, identity domain.IdentityToken, sample []byte) (bool, error) {
	if len(sample) == 0 {
		return false, dErrors.New(dErrors.CodeInvalidInput, c.modality.String()+" sample is required")
	}
	pages, err := c.enrolledPages(identity)
	if err != nil {
		return false, err
	}
	if !c.breaker.Allow() {
		return false, dErrors.New(dErrors.CodeOracleUnavailable, c.modality.String()+" matcher unavailable")
	}

	start := time.Now()
	matched, err := c.call(ctx, identity, sample, pages)
	c.metrics.ObserveOracleLatency(c.modality.String(), time.Since(start))

	if err != nil {
		_, change := c.breaker.RecordFailure()
		if change.Opened && c.logger != nil {
			c.logger.WarnContext(ctx, "biometric oracle circuit opened", "modality", c.modality)
		}
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "biometric oracle call failed",
				"modality", c.modality,
				"identity", privacy.Fingerprint(identity.String()),
				"error", err,
			)
		}
		return false, dErrors.Wrap(err, dErrors.CodeOracleUnavailable, c.modality.String()+" matcher unavailable")
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "biometric oracle circuit closed", "modality", c.modality)
	}
	return matched, nil
}

func (c *OracleClient) enrolledPages(identity domain.IdentityToken) ([]int, error) {
	if c.voters == nil || c.modality != ModalityFingerprint {
		return nil, nil
	}
	voter, ok := c.voters.Lookup(identity)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotEnrolled, "voter is no longer on the roll")
	}
	if len(voter.FingerprintPages) == 0 {
		return nil, notEnrolled(ModalityFingerprint)
	}
	return voter.FingerprintPages, nil
}

func (c *OracleClient) call(ctx context.Context, identity domain.IdentityToken, sample []byte, pages []int) (bool, error) {
	body, err := json.Marshal(matchRequest{
		Identity: identity.String(),
		Modality: c.modality.String(),
		Sample:   sample,
		Pages:    pages,
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/match", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("matcher returned status %d", resp.StatusCode)
	}

	var out matchResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return false, fmt.Errorf("decode matcher response: %w", err)
	}
	if out.Match == nil {
		return false, fmt.Errorf("matcher response missing match field")
	}
	return *out.Match, nil
}
