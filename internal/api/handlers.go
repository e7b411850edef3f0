package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marketlens/pkg/marketlens"
)

// defaultStreamHeartbeat is how often an idle analysis stream sends a
// keepalive comment so intermediaries do not drop the connection.
const defaultStreamHeartbeat = 15 * time.Second

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	provider := h.providerName
	if provider == "" {
		provider = "none"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Provider: provider,
		Analysis: h.core != nil && h.core.HasRecommender(),
	})
}

// getMarket always answers 200 with a Market; upstream failures surface as a
// synthetic market, never as an error status.
func (h *handler) getMarket(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.URL.Query().Get("url"))
	if input == "" {
		writeError(w, r, http.StatusBadRequest, marketlens.ErrCodeInvalidInput, "url is required")
		return
	}
	market := h.core.FetchMarket(r.Context(), input)
	writeJSON(w, http.StatusOK, market)
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}
	recommendation, err := h.core.Analyze(r.Context(), req)
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendation)
}

func (h *handler) analyzeStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnalysisRequest(w, r)
	if !ok {
		return
	}
	mode, err := marketlens.ParseAnalysisMode(string(req.Mode))
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	req.Mode = mode
	if !h.core.HasRecommender() {
		writeError(w, r, http.StatusServiceUnavailable, marketlens.ErrCodeUnavailable, "analysis is not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, marketlens.ErrCodeInternal, "streaming unsupported")
		return
	}

	initSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := writeSSEEvent(w, flusher, "progress", streamProgress{
		Stage:   "start",
		Message: "analyzing " + req.Market.Question,
		Mode:    string(mode),
	}); err != nil {
		h.logger.Warn("analysis stream write failed", "stage", "start", "err", err)
		return
	}

	type outcome struct {
		recommendation *marketlens.Recommendation
		err            error
	}
	done := make(chan outcome, 1)
	go func() {
		recommendation, err := h.core.Analyze(r.Context(), req)
		done <- outcome{recommendation, err}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case result := <-done:
			if result.err != nil {
				h.logger.Error("analysis stream failed",
					"mode", mode,
					"market_id", req.Market.ID,
					"error_code", marketlens.ErrorCodeOf(result.err),
					"err", result.err,
				)
				_ = writeSSEEvent(w, flusher, "error", streamErrorFrom(result.err))
				_ = writeSSEEvent(w, flusher, "done", streamDone{OK: false})
				return
			}
			_ = writeSSEEvent(w, flusher, "result", result.recommendation)
			_ = writeSSEEvent(w, flusher, "done", streamDone{OK: true})
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				h.logger.Warn("analysis stream heartbeat failed", "err", err)
				return
			}
			flusher.Flush()
		}
	}
}

func streamErrorFrom(err error) streamError {
	code := marketlens.ErrorCodeOf(err)
	message := err.Error()
	var typed *marketlens.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	if code == "" {
		code = marketlens.ErrCodeInternal
	}
	return streamError{
		Message:   message,
		ErrorCode: string(code),
		Status:    mapErrorCodeToHTTPStatus(code),
	}
}

// decodeAnalysisRequest writes the error response itself and reports whether
// the caller should continue.
func (h *handler) decodeAnalysisRequest(w http.ResponseWriter, r *http.Request) (marketlens.AnalysisRequest, bool) {
	var payload analyzePayload
	if err := decodeJSON(r, &payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, marketlens.ErrCodeInvalidInput,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return marketlens.AnalysisRequest{}, false
		}
		writeError(w, r, http.StatusBadRequest, marketlens.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return marketlens.AnalysisRequest{}, false
	}
	if payload.Market == nil {
		writeError(w, r, http.StatusBadRequest, marketlens.ErrCodeInvalidInput, "market is required")
		return marketlens.AnalysisRequest{}, false
	}
	return marketlens.AnalysisRequest{
		Market: *payload.Market,
		Mode:   marketlens.AnalysisMode(payload.Mode),
	}, true
}

func initSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
