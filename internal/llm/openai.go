package llm

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

const providerOpenAI = "openai"

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// OpenAIOption configures an OpenAI client.
type OpenAIOption func(*OpenAI)

// WithModel sets the chat model (default: gpt-5-nano).
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithBaseURL sets the API base URL (default: https://api.openai.com).
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the HTTP client, e.g. to change the timeout.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// NewOpenAI creates a chat completions client.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		apiKey:  apiKey,
		model:   "gpt-5-nano",
		baseURL: "https://api.openai.com",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete sends one system+user exchange and returns the message content.
func (o *OpenAI) Complete(ctx context.Context, r Request) (string, error) {
	if o.apiKey == "" {
		return "", &TransportError{Provider: providerOpenAI, Err: fmt.Errorf("no API key")}
	}

	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: r.System},
			{Role: "user", Content: r.User},
		},
		Temperature: r.Temperature,
	}
	if r.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: providerOpenAI, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{
			Provider:   providerOpenAI,
			StatusCode: resp.StatusCode,
			Body:       string(raw[:min(len(raw), 300)]),
		}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &FormatError{Stage: StageEnvelope, Raw: string(raw), Err: err}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &FormatError{Stage: StageEnvelope, Raw: string(raw), Err: fmt.Errorf("no message content")}
	}
	return out.Choices[0].Message.Content, nil
}

// --- Chat completions API types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
