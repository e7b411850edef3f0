package api

import "marketlens/pkg/marketlens"

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Analysis bool   `json:"analysis"`
}

// analyzePayload mirrors marketlens.AnalysisRequest with a pointer market so
// an absent market can be told apart from an empty one.
type analyzePayload struct {
	Market *marketlens.Market `json:"market"`
	Mode   string             `json:"mode"`
}

type streamProgress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
}

type streamError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
	Status    int    `json:"status"`
}

type streamDone struct {
	OK bool `json:"ok"`
}
