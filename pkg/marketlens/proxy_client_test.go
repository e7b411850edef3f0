package marketlens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyClientRecommend(t *testing.T) {
	t.Parallel()

	var got AnalysisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"Fair.","recommendation":"HOLD","confidenceScore":50,"reasoning":["r"],"mode":"DEEP","model":"m"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewProxyClient(ProxyClientOptions{Endpoint: server.URL + "/", AccessKey: " secret ", HTTPClient: server.Client()})
	require.NoError(t, err)

	rec, err := client.Recommend(context.Background(), AnalysisRequest{Market: sampleMarket(), Mode: ModeDeep})
	require.NoError(t, err)
	assert.Equal(t, ActionHold, rec.Recommendation)
	assert.Equal(t, ModeDeep, rec.Mode)
	assert.Equal(t, "Will the Fed cut rates in June?", got.Market.Question)
	assert.Equal(t, ModeDeep, got.Mode)
}

func TestProxyClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		code    ErrorCode
		message string
	}{
		{"typed error body", http.StatusBadGateway, `{"code":502,"message":"model output not valid JSON","error_code":"INVALID_OUTPUT"}`, ErrCodeInvalidOutput, "model output not valid JSON"},
		{"unauthorized without code", http.StatusUnauthorized, `{"message":"invalid access key"}`, ErrCodeUnauthorized, "invalid access key"},
		{"gateway timeout", http.StatusGatewayTimeout, `{"error":"deadline"}`, ErrCodeTimeout, "deadline"},
		{"bad request plain text", http.StatusBadRequest, `oops`, ErrCodeInvalidInput, "proxy returned status 400"},
		{"server error", http.StatusInternalServerError, ``, ErrCodeProvider, "proxy returned status 500"},
		{"invalid success body", http.StatusOK, `not json`, ErrCodeInvalidOutput, "proxy returned invalid JSON"},
		{"empty success body", http.StatusOK, `{}`, ErrCodeEmptyResponse, "proxy returned an empty recommendation"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			client, err := NewProxyClient(ProxyClientOptions{Endpoint: server.URL + "/api/analyze", HTTPClient: server.Client()})
			require.NoError(t, err)

			rec, err := client.Recommend(context.Background(), AnalysisRequest{Market: sampleMarket()})
			assert.Nil(t, rec)
			var typed *Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, tc.code, typed.Code)
			assert.Equal(t, tc.message, typed.Message)
		})
	}
}

func TestProxyClientTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client, err := NewProxyClient(ProxyClientOptions{Endpoint: server.URL, HTTPClient: server.Client(), Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Recommend(context.Background(), AnalysisRequest{Market: sampleMarket()})
	assert.True(t, IsErrorCode(err, ErrCodeTimeout), "got %v", err)
}

func TestNewProxyClientRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewProxyClient(ProxyClientOptions{Endpoint: "  "})
	assert.True(t, IsErrorCode(err, ErrCodeInvalidInput))
}
