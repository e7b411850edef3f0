package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"marketlens/pkg/marketlens"
)

type stubRecommender struct {
	mu    sync.Mutex
	calls []marketlens.AnalysisRequest
	rec   *marketlens.Recommendation
	err   error
	delay time.Duration
}

func (s *stubRecommender) Recommend(ctx context.Context, req marketlens.AnalysisRequest) (*marketlens.Recommendation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, marketlens.WrapError(marketlens.ErrCodeCanceled, "canceled", ctx.Err())
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

func (s *stubRecommender) lastCall(t *testing.T) marketlens.AnalysisRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatalf("recommender was not called")
	}
	return s.calls[len(s.calls)-1]
}

func sampleRecommendation() *marketlens.Recommendation {
	return &marketlens.Recommendation{
		Summary:         "Looks fairly priced.",
		Recommendation:  marketlens.ActionHold,
		ConfidenceScore: 58,
		Reasoning:       []string{"Tight spread"},
		Mode:            marketlens.ModeQuick,
		Model:           "test-model",
		GeneratedAt:     "2025-03-01T09:30:00Z",
	}
}

func sampleMarketPayload() map[string]any {
	return map[string]any{
		"id":       "512",
		"question": "Will it rain tomorrow?",
		"outcomes": []map[string]any{
			{"name": "Yes", "probability": 0.4, "price": 0.4},
			{"name": "No", "probability": 0.6, "price": 0.6},
		},
	}
}

type routerSetup struct {
	logger      *slog.Logger
	recommender marketlens.Recommender
	gamma       http.Handler
	accessKey   string
	origins     []string
	heartbeat   time.Duration
}

// newTestRouter wires a real Core against a fake Gamma server. The default
// Gamma handler answers 404 to everything, which yields synthetic markets.
func newTestRouter(t *testing.T, setup routerSetup) http.Handler {
	t.Helper()
	if setup.logger == nil {
		setup.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if setup.gamma == nil {
		setup.gamma = http.NotFoundHandler()
	}
	gamma := httptest.NewServer(setup.gamma)
	t.Cleanup(gamma.Close)

	core := marketlens.New(marketlens.Options{
		Logger:       setup.logger,
		Recommender:  setup.recommender,
		GammaBaseURL: gamma.URL,
		GammaRate:    1000,
		GammaBurst:   100,
		FetchTimeout: time.Second,
		HTTPClient:   gamma.Client(),
	})
	return NewRouter(Options{
		Core:            core,
		AccessKey:       setup.accessKey,
		CORSOrigins:     setup.origins,
		ProviderName:    "gemini",
		StreamHeartbeat: setup.heartbeat,
	})
}

func doRequest(router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch value := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(value)
	default:
		data, _ := json.Marshal(value)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rr.Body.String())
	}
	return resp
}
