package gemini_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/config"
	"github.com/latteboxd/latteboxd/internal/gemini"
)

type fakeDoer struct {
	lastRequest *http.Request
	respond     func(*http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastRequest = req
	return f.respond(req)
}

func jsonResponse(status int, body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func newTestClient(doer *fakeDoer) *gemini.Client {
	return gemini.NewClient(config.GeminiConfig{APIKey: "test-key"}, zap.NewNop().Sugar(), gemini.WithHTTPClient(doer))
}

const profileJSON = `{
  "name": "Fuglen Tokyo",
  "location": "Shibuya, Tokyo",
  "yearEstablished": "2012",
  "description": "A Norwegian outpost pulling espresso by day and cocktails by night.",
  "tags": ["Pour-over", "Nordic", "Vintage"],
  "averageRating": 4.6,
  "posterPrompt": "Warm mid-century interior, low amber light, rain on the window",
  "reviews": [
    {"reviewerName": "The Coffee Snob", "rating": 4.5, "text": "Finally.", "date": "2024-03-01", "likes": 120},
    {"reviewerName": "The Student", "rating": 4.0, "text": "Stayed six hours.", "date": "2024-03-02", "likes": 45},
    {"reviewerName": "The Tourist", "rating": 5.0, "text": "Came for the chairs.", "date": "2024-03-05", "likes": 77},
    {"reviewerName": "The Regular", "rating": 4.5, "text": "My living room.", "date": "2024-03-07", "likes": 12}
  ]
}`

func textCandidateBody(t *testing.T, text string) string {
	t.Helper()
	encoded, err := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	if err != nil {
		t.Fatalf("marshal candidate body: %v", err)
	}
	return string(encoded)
}

func TestGenerateProfile(t *testing.T) {
	doer := &fakeDoer{respond: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, textCandidateBody(t, profileJSON))
	}}
	client := newTestClient(doer)

	profile, err := client.GenerateProfile(context.Background(), "Fuglen Tokyo")
	if err != nil {
		t.Fatalf("generate profile returned error: %v", err)
	}

	if profile.Name != "Fuglen Tokyo" {
		t.Fatalf("expected profile name, got %q", profile.Name)
	}
	if len(profile.Reviews) != 4 {
		t.Fatalf("expected 4 reviews, got %d", len(profile.Reviews))
	}
	for i, review := range profile.Reviews {
		if review.AvatarColor == "" {
			t.Fatalf("expected review %d to get an avatar color", i)
		}
	}

	req := doer.lastRequest
	if req == nil {
		t.Fatalf("expected a request to be issued")
	}
	if !strings.HasSuffix(req.URL.Path, "/models/gemini-3-flash-preview:generateContent") {
		t.Fatalf("unexpected request path %s", req.URL.Path)
	}
	if req.Header.Get("x-goog-api-key") != "test-key" {
		t.Fatalf("expected api key header to be set")
	}

	var sent struct {
		GenerationConfig struct {
			ResponseMimeType string          `json:"responseMimeType"`
			ResponseSchema   json.RawMessage `json:"responseSchema"`
		} `json:"generationConfig"`
	}
	body, _ := io.ReadAll(req.Body)
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("decode sent payload: %v", err)
	}
	if sent.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("expected structured JSON response config")
	}
	if len(sent.GenerationConfig.ResponseSchema) == 0 {
		t.Fatalf("expected response schema to be attached")
	}
}

func TestGenerateProfileFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(*http.Request) (*http.Response, error)
	}{
		{
			name: "http error status",
			respond: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusInternalServerError, `{"error":{"code":500,"status":"INTERNAL","message":"boom"}}`)
			},
		},
		{
			name: "transport failure",
			respond: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "unparseable profile",
			respond: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, textCandidateBody(t, "not json at all"))
			},
		},
		{
			name: "no candidates",
			respond: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"candidates":[]}`)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(&fakeDoer{respond: tc.respond})
			_, err := client.GenerateProfile(context.Background(), "some cafe")
			if !errors.Is(err, gemini.ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
		})
	}
}

func TestGeneratePoster(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{
			"candidates": [{"content": {"parts": [{"inlineData": {"mimeType": "image/png", "data": "aGVsbG8="}}]}}]
		}`)
	}}
	client := newTestClient(doer)

	url, err := client.GeneratePoster(context.Background(), "rainy cafe window")
	if err != nil {
		t.Fatalf("generate poster returned error: %v", err)
	}
	if url != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("unexpected data url %q", url)
	}
	if !strings.HasSuffix(doer.lastRequest.URL.Path, "/models/gemini-2.5-flash-image:generateContent") {
		t.Fatalf("unexpected request path %s", doer.lastRequest.URL.Path)
	}
}

func TestGeneratePosterWithoutImageFails(t *testing.T) {
	doer := &fakeDoer{respond: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, textCandidateBody(t, "all text, no image"))
	}}
	client := newTestClient(doer)

	_, err := client.GeneratePoster(context.Background(), "rainy cafe window")
	if !errors.Is(err, gemini.ErrImageGenerationFailed) {
		t.Fatalf("expected ErrImageGenerationFailed, got %v", err)
	}
}

func TestConfiguredTimeoutApplies(t *testing.T) {
	blocked := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-blocked:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(blocked)

	client := gemini.NewClient(config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 50 * time.Millisecond,
	}, zap.NewNop().Sugar())

	start := time.Now()
	_, err := client.GenerateProfile(context.Background(), "some cafe")
	elapsed := time.Since(start)

	if !errors.Is(err, gemini.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed from timed out call, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("expected the configured timeout to apply, call took %v", elapsed)
	}
}
