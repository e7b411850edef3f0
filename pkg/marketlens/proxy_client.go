package marketlens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	analyzePath        = "/api/analyze"
	maxProxyBodyBytes  = 2 << 20
	defaultProxyBudget = DefaultDeepTimeout + 15*time.Second
)

// ProxyClientOptions configures a ProxyClient.
type ProxyClientOptions struct {
	// Endpoint is the proxy base URL or its full analyze URL.
	Endpoint   string
	AccessKey  string
	HTTPClient HTTPDoer
	// Timeout bounds one round trip. It should exceed the proxy's DEEP timeout.
	Timeout time.Duration
}

// ProxyClient is the Recommender used by clients that do not hold a
// provider key. It forwards {market, mode} to the proxy.
type ProxyClient struct {
	endpoint  string
	accessKey string
	client    HTTPDoer
	timeout   time.Duration
}

// NewProxyClient builds a ProxyClient.
func NewProxyClient(opts ProxyClientOptions) (*ProxyClient, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, NewError(ErrCodeInvalidInput, "proxy endpoint is required")
	}
	if !strings.HasSuffix(endpoint, analyzePath) {
		endpoint += analyzePath
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &ProxyClient{
		endpoint:  endpoint,
		accessKey: strings.TrimSpace(opts.AccessKey),
		client:    client,
		timeout:   defaultDuration(opts.Timeout, defaultProxyBudget),
	}, nil
}

type proxyErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
}

// Recommend posts the request and decodes either a Recommendation or the
// proxy's {message} error body.
func (p *ProxyClient) Recommend(ctx context.Context, req AnalysisRequest) (*Recommendation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "encode analysis request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(ErrCodeInternal, "build proxy request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.accessKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.accessKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, classifyCallError(ErrCodeProvider, "proxy request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBodyBytes))
	if err != nil {
		return nil, classifyCallError(ErrCodeProvider, "read proxy response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, proxyError(resp.StatusCode, data)
	}

	var recommendation Recommendation
	if err := json.Unmarshal(data, &recommendation); err != nil {
		return nil, WrapError(ErrCodeInvalidOutput, "proxy returned invalid JSON", err)
	}
	if recommendation.Summary == "" && len(recommendation.Reasoning) == 0 {
		return nil, NewError(ErrCodeEmptyResponse, "proxy returned an empty recommendation")
	}
	return &recommendation, nil
}

func proxyError(status int, data []byte) *Error {
	var payload proxyErrorBody
	_ = json.Unmarshal(data, &payload)
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		message = strings.TrimSpace(payload.Error)
	}
	if message == "" {
		message = fmt.Sprintf("proxy returned status %d", status)
	}

	code := ErrorCode(strings.TrimSpace(payload.ErrorCode))
	if code == "" {
		code = statusErrorCode(status)
	}
	return NewError(code, message)
}

func statusErrorCode(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeUnauthorized
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrCodeTimeout
	case status >= 400 && status < 500:
		return ErrCodeInvalidInput
	default:
		return ErrCodeProvider
	}
}

var _ Recommender = (*ProxyClient)(nil)
