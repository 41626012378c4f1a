package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/clinical-sim/internal/config"
)

func TestOpenAICompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "sei un tutor", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		assert.InDelta(t, 0.2, req.Temperature, 1e-6)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", WithBaseURL(srv.URL+"/"), WithModel("test-model"))
	out, err := c.Complete(context.Background(), Request{System: "sei un tutor", User: "ciao", Temperature: 0.2, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestOpenAIHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAI("test-key", WithBaseURL(srv.URL)).Complete(context.Background(), Request{User: "x"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	assert.Contains(t, te.Body, "rate limited")
}

func TestOpenAIBadEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("test-key", WithBaseURL(srv.URL)).Complete(context.Background(), Request{User: "x"})
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, StageEnvelope, fe.Stage)
	assert.Equal(t, "<html>gateway</html>", fe.Raw)
}

func TestOpenAIEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("test-key", WithBaseURL(srv.URL)).Complete(context.Background(), Request{User: "x"})
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, StageEnvelope, fe.Stage)
}

func TestOpenAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewOpenAI("test-key", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.Complete(context.Background(), Request{User: "x"})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Zero(t, te.StatusCode)
}

func TestOpenAINoKey(t *testing.T) {
	_, err := NewOpenAI("").Complete(context.Background(), Request{User: "x"})
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestNewPicksProvider(t *testing.T) {
	c, err := New(context.Background(), &config.Config{LLMProvider: config.ProviderOpenAI, OpenAIAPIKey: "k", OpenAIBaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, c)
	assert.NoError(t, Close(c))

	_, err = New(context.Background(), &config.Config{LLMProvider: "other"})
	assert.Error(t, err)
}
