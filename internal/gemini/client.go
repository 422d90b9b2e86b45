package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/latteboxd/latteboxd/internal/config"
	"github.com/latteboxd/latteboxd/internal/models"
)

var (
	// ErrGenerationFailed covers any transport or parse failure while
	// producing a cafe profile.
	ErrGenerationFailed = errors.New("gemini: profile generation failed")
	// ErrImageGenerationFailed covers poster generation failures; callers
	// recover by substituting a placeholder image.
	ErrImageGenerationFailed = errors.New("gemini: poster generation failed")
)

// reviewAvatarPalette colors the generated reviewer avatars. The model is
// not asked to invent these.
var reviewAvatarPalette = []string{
	"bg-red-500", "bg-blue-500", "bg-green-500",
	"bg-yellow-500", "bg-purple-500", "bg-pink-500",
}

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel  = "gemini-3-flash-preview"
	defaultImageModel = "gemini-2.5-flash-image"
)

const profilePromptTemplate = `You are a data generator for "Latteboxd", a Letterboxd-style website for cafes.
User Query: %q

Generate a detailed profile for this cafe. If the cafe is real, use real data. If it's generic (e.g. "Cyberpunk Cafe"), invent creative details.

Include:
1. Name, Location, Year Est.
2. A "synopsis" (description) written like a movie plot summary.
3. 4 distinct reviews from different personas (e.g., The Coffee Snob, The Student, The Tourist, The Regular).
   - Reviews should be witty, passionate, or critical, mimicking Letterboxd style.
4. A visual description for an image generation prompt (posterPrompt).
5. Tags (e.g. "Pour-over", "Noir", "Expensive").`

const posterPromptTemplate = "Cinematic movie poster for a cafe. %s. High contrast, atmospheric lighting, photorealistic, 4k. No text overlay."

// Doer is the HTTP client surface Client issues requests through. Tests
// substitute fakes via WithHTTPClient.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.client = doer
	}
}

// Client calls the Gemini generateContent API for cafe profiles and
// poster images.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	client     Doer
	logger     *zap.SugaredLogger
}

// NewClient constructs a Client initialized from cfg.
func NewClient(cfg config.GeminiConfig, logger *zap.SugaredLogger, opts ...Option) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	textModel := strings.TrimSpace(cfg.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}

	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	client := &Client{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		textModel:  textModel,
		imageModel: imageModel,
		client:     newHTTPClientWithTimeout(cfg.Timeout),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GenerateProfile asks the text model for a structured cafe profile
// matching the free-text query.
func (c *Client) GenerateProfile(ctx context.Context, query string) (*models.CafeProfile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrGenerationFailed)
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(profilePromptTemplate, query)}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   profileSchema,
		},
	}

	body, err := c.call(ctx, c.textModel, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := firstTextPart(body)
	if text == "" {
		return nil, fmt.Errorf("%w: response contained no text", ErrGenerationFailed)
	}

	var profile models.CafeProfile
	if err := json.Unmarshal([]byte(text), &profile); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrGenerationFailed, err)
	}

	if strings.TrimSpace(profile.Name) == "" {
		return nil, fmt.Errorf("%w: profile has no name", ErrGenerationFailed)
	}

	for i := range profile.Reviews {
		profile.Reviews[i].AvatarColor = reviewAvatarPalette[rand.Intn(len(reviewAvatarPalette))]
	}

	return &profile, nil
}

// GeneratePoster asks the image model for a poster matching the visual
// prompt and returns it as a data URL.
func (c *Client) GeneratePoster(ctx context.Context, visualPrompt string) (string, error) {
	visualPrompt = strings.TrimSpace(visualPrompt)
	if visualPrompt == "" {
		return "", fmt.Errorf("%w: visual prompt cannot be empty", ErrImageGenerationFailed)
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(posterPromptTemplate, visualPrompt)}}}},
		GenerationConfig: &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: "3:4"},
		},
	}

	body, err := c.call(ctx, c.imageModel, payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}

	data := firstInlineData(body)
	if data == nil {
		return "", fmt.Errorf("%w: response contained no image", ErrImageGenerationFailed)
	}

	mime := data.MimeType
	if mime == "" {
		mime = "image/png"
	}

	return fmt.Sprintf("data:%s;base64,%s", mime, data.Data), nil
}

func (c *Client) call(ctx context.Context, model string, payload generateRequest) (*generateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	request.Header.Set("x-goog-api-key", c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("call generate api: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, buildAPIError(response.StatusCode, respBody)
	}

	var apiResp generateResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("response contained no candidates")
	}

	return &apiResp, nil
}

func firstTextPart(resp *generateResponse) string {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text
			}
		}
	}
	return ""
}

func firstInlineData(resp *generateResponse) *inlineData {
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return p.InlineData
			}
		}
	}
	return nil
}
