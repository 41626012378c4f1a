// Package llm talks to the hosted language model. Callers see one interface
// and two typed failures: the call did not complete, or it completed with a
// body that could not be read.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tatianab/clinical-sim/internal/config"
)

// Request is one system+user completion.
type Request struct {
	System      string
	User        string
	Temperature float32
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Client returns the raw text content of a completion.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// TransportError reports a call that did not complete: network failure,
// timeout or a non-success status.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Stage says which layer of a response failed to parse.
type Stage string

const (
	StageEnvelope Stage = "envelope"
	StageContent  Stage = "content"
)

// FormatError reports a response that arrived but could not be parsed.
// Raw holds the unparseable text.
type FormatError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unparseable %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("unparseable %s", e.Stage)
}

func (e *FormatError) Unwrap() error { return e.Err }

// New builds the client selected by cfg.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey,
			WithModel(cfg.ModelName()),
			WithBaseURL(cfg.OpenAIBaseURL),
			WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
		), nil
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.ModelName(), cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// Close releases provider resources when the client holds any.
func Close(c Client) error {
	if closer, ok := c.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
