package scoring_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"modcheck/backend/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) scoring.Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return scoring.Backend{Endpoint: srv.URL, Token: "tok"}
}

func TestNormalize(t *testing.T) {
	for _, raw := range []float64{0, 0.1, 0.5, 0.9, 1} {
		assert.InDelta(t, 1-raw, scoring.Normalize("spam", raw), 1e-9, "spam raw=%v", raw)
		assert.Equal(t, raw, scoring.Normalize("toxic", raw), "toxic raw=%v", raw)
		assert.Equal(t, raw, scoring.Normalize("ham", raw), "ham raw=%v", raw)
		assert.Equal(t, raw, scoring.Normalize("Spam", raw), "labels are case sensitive")
	}
}

func TestScore_SendsAuthenticatedRequest(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buy cheap pills", body["note"])

		w.Write([]byte(`{"label":"spam","score":0.9}`))
	})

	res, err := scoring.NewClient(time.Second).Score(context.Background(), backend, "buy cheap pills")

	require.NoError(t, err)
	assert.Equal(t, "spam", res.Label)
	assert.Equal(t, 0.9, res.RawScore)
	assert.InDelta(t, 0.1, res.NormalizedScore, 1e-9)
}

func TestScore_OtherLabelPassesThrough(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"toxic","score":0.8}`))
	})

	res, err := scoring.NewClient(time.Second).Score(context.Background(), backend, "")

	require.NoError(t, err)
	assert.Equal(t, 0.8, res.NormalizedScore)
}

// TestScore_NotConfigured verifies the client short-circuits without touching the network.
func TestScore_NotConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := scoring.NewClient(time.Second)
	for _, backend := range []scoring.Backend{
		{},
		{Endpoint: srv.URL},
		{Token: "tok"},
	} {
		_, err := client.Score(context.Background(), backend, "text")
		assert.ErrorIs(t, err, scoring.ErrScoringUnavailable)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestScore_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}},
		{"missing score", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"label":"spam"}`))
		}},
		{"missing label", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"score":0.3}`))
		}},
		{"score as string", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"label":"spam","score":"0.3"}`))
		}},
		{"score out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"label":"ham","score":1.5}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newBackend(t, tt.handler)
			_, err := scoring.NewClient(time.Second).Score(context.Background(), backend, "x")
			assert.ErrorIs(t, err, scoring.ErrScoringUnavailable)
		})
	}
}

func TestScore_Timeout(t *testing.T) {
	release := make(chan struct{})
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := scoring.NewClient(50*time.Millisecond).Score(context.Background(), backend, "x")

	assert.ErrorIs(t, err, scoring.ErrScoringUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestScore_CallerCancellation(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scoring.NewClient(time.Minute).Score(ctx, backend, "x")
	assert.ErrorIs(t, err, scoring.ErrScoringUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	assert.Equal(t, 180*time.Second, scoring.NewClient(0).Timeout)
}
