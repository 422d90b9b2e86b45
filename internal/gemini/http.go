package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Image generation can be slow; keep a generous HTTP timeout.
const geminiHTTPTimeout = 60 * time.Second

type apiError struct {
	Code    int    `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Error *apiError `json:"error,omitempty"`
}

// newHTTPClientWithTimeout builds an HTTP client with a custom timeout.
// Falls back to the library default when duration is non-positive.
func newHTTPClientWithTimeout(d time.Duration) *http.Client {
	if d <= 0 {
		d = geminiHTTPTimeout
	}
	return &http.Client{Timeout: d}
}

func decodeAPIError(body []byte) *apiError {
	if len(body) == 0 {
		return nil
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	if envelope.Error == nil {
		return nil
	}

	envelope.Error.Message = strings.TrimSpace(envelope.Error.Message)
	return envelope.Error
}

func buildAPIError(statusCode int, body []byte) error {
	if apiErr := decodeAPIError(body); apiErr != nil {
		if apiErr.Status != "" && apiErr.Message != "" {
			return fmt.Errorf("gemini api error (%d, %s): %s", statusCode, apiErr.Status, apiErr.Message)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("gemini api error (%d): %s", statusCode, apiErr.Message)
		}
		if apiErr.Status != "" {
			return fmt.Errorf("gemini api error (%d, %s)", statusCode, apiErr.Status)
		}
	}

	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}

	return fmt.Errorf("gemini api error (%d): %s", statusCode, snippet)
}
