// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tatianab/clinical-sim/internal/llm"
)

// Reply is one scripted answer: either text or an error.
type Reply struct {
	Text string
	Err  error
}

// Client returns its replies in order and records every request.
type Client struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
}

// New returns a client that answers with replies in order.
func New(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Text is shorthand for a client answering with plain texts.
func Text(texts ...string) *Client {
	c := &Client{}
	for _, t := range texts {
		c.replies = append(c.replies, Reply{Text: t})
	}
	return c
}

// Push appends more replies.
func (c *Client) Push(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return "", &llm.TransportError{Provider: "fake", Err: err}
	}
	if len(c.replies) == 0 {
		return "", fmt.Errorf("llmtest: no scripted reply for call %d", len(c.requests))
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r.Text, r.Err
}

// Requests returns a copy of the requests seen so far.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

// Calls returns the number of Complete calls.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
