package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("gemini api key not configured")

const triagePrompt = `You are a disaster response triage assistant. Read the SMS below and reply with a single JSON object with exactly these keys:
"needType": one of "Medical", "Rescue", "Food", "Water", "Shelter", "Other";
"urgency": one of "High", "Medium", "Low";
"location": the place named in the message, or "Unknown";
"details": a one sentence summary of the request.
Do not add any other text.

SMS: %s`

// Client asks a Gemini model to structure raw messages
type Client struct {
	Model  string
	models *genai.Models
}

// Options configure a client
type Options struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, empty for the public one
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Gemini client from config
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	return New(ctx, Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		HTTP:    &http.Client{Timeout: cfg.GeminiTimeout},
	})
}

// New creates a client for the Gemini developer API
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTP,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(opts.BaseURL, "/") + "/"
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{Model: opts.Model, models: gc.Models}, nil
}

// Triage asks the model to structure a raw message. Any transport error,
// API error or unparseable answer is returned as an error.
func (c *Client) Triage(ctx context.Context, text string) (models.TriageData, error) {
	if c == nil || c.models == nil {
		return models.TriageData{}, ErrNotConfigured
	}

	resp, err := c.models.GenerateContent(ctx, c.Model, genai.Text(fmt.Sprintf(triagePrompt, text)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return models.TriageData{}, fmt.Errorf("gemini request failed: %w", err)
	}

	answer := resp.Text()
	if strings.TrimSpace(answer) == "" {
		return models.TriageData{}, errors.New("gemini returned no candidates")
	}
	return ParseTriage(answer)
}

// ParseTriage decodes the model's answer, tolerating a markdown code fence
func ParseTriage(answer string) (models.TriageData, error) {
	answer = stripFence(answer)

	var t models.TriageData
	if err := json.Unmarshal([]byte(answer), &t); err != nil {
		return models.TriageData{}, fmt.Errorf("unparseable triage answer: %w", err)
	}
	if strings.TrimSpace(t.NeedType) == "" || strings.TrimSpace(t.Urgency) == "" {
		return models.TriageData{}, errors.New("triage answer missing needType or urgency")
	}
	return t, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
