package openai

import (
	"context"
	"time"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

// Completer implements ports.Completer for refinement and translation prompts.
type Completer struct {
	client      *Client
	readTimeout time.Duration
}

func NewCompleter(client *Client, readTimeout time.Duration) *Completer {
	if readTimeout <= 0 {
		readTimeout = DefaultCompleteReadTimeout
	}
	return &Completer{client: client, readTimeout: readTimeout}
}

func (c *Completer) Complete(ctx context.Context, endpoint domain.Endpoint, prompt string) (ports.TextStream, error) {
	body := chatRequest{
		Model:    endpoint.Model,
		Stream:   true,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	stream, err := c.client.stream(ctx, endpoint, body, c.readTimeout, nil)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
