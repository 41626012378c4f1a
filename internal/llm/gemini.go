package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const providerGemini = "gemini"

// Gemini calls Google's generative language API through the SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini client. timeout bounds each call; zero means
// the caller's context alone applies.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Complete sends one system+user exchange and returns the text of the first
// candidate.
func (g *Gemini) Complete(ctx context.Context, r Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(r.Temperature)
	if r.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(r.System)}}
	}
	if r.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(r.User))
	if err != nil {
		te := &TransportError{Provider: providerGemini, Err: err}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			te.StatusCode = apiErr.Code
			te.Body = apiErr.Message
		}
		return "", te
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &FormatError{Stage: StageEnvelope, Err: fmt.Errorf("no content returned from Gemini")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", &FormatError{Stage: StageEnvelope, Err: fmt.Errorf("unexpected response type from Gemini")}
	}
	return sb.String(), nil
}
