// Package scoring talks to the external classification backend that rates
// reported content.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"modcheck/backend/internal/config"
)

// ErrScoringUnavailable means the content could not be evaluated: the backend
// is not configured, timed out, failed, or answered with something unparsable.
// It is never an abuse signal.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// SpamLabel is the label whose confidence is inverted during normalization.
const SpamLabel = "spam"

// Backend is the address and credential of the classification service.
type Backend struct {
	Endpoint string
	Token    string
}

func (b Backend) configured() bool { return b.Endpoint != "" && b.Token != "" }

// Result is one classification. NormalizedScore close to 1 always means
// "not abusive".
type Result struct {
	Label           string  `json:"label"`
	RawScore        float64 `json:"rawScore"`
	NormalizedScore float64 `json:"normalizedScore"`
}

// Normalize orients a backend score so that higher means more benign.
// Spam confidence is inverted; every other label is passed through.
func Normalize(label string, raw float64) float64 {
	if label == SpamLabel {
		return 1 - raw
	}
	return raw
}

type request struct {
	Note string `json:"note"`
}

type response struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
}

// Client calls the scoring backend over HTTP.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

// NewClient creates a client whose calls are bounded by timeout.
// A non-positive timeout falls back to config.ScoringTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.ScoringTimeout
	}
	return &Client{HTTP: &http.Client{}, Timeout: timeout}
}

// Score classifies text. Every failure is reported as ErrScoringUnavailable
// wrapping the cause. A missing endpoint or token returns before any request.
func (c *Client) Score(ctx context.Context, backend Backend, text string) (Result, error) {
	if !backend.configured() {
		return Result{}, fmt.Errorf("%w: endpoint or token not configured", ErrScoringUnavailable)
	}

	body, err := json.Marshal(request{Note: text})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backend.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+backend.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, config.MaxScoringBodySize))
		return Result{}, fmt.Errorf("%w: backend returned status %d", ErrScoringUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, config.MaxScoringBodySize)).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrScoringUnavailable, err)
	}
	if out.Label == nil || out.Score == nil {
		return Result{}, fmt.Errorf("%w: response is missing label or score", ErrScoringUnavailable)
	}
	raw := *out.Score
	if math.IsNaN(raw) || raw < 0 || raw > 1 {
		return Result{}, fmt.Errorf("%w: score %v outside [0, 1]", ErrScoringUnavailable, raw)
	}

	return Result{
		Label:           *out.Label,
		RawScore:        raw,
		NormalizedScore: Normalize(*out.Label, raw),
	}, nil
}
