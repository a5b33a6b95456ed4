package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"mouthwrite/internal/domain"
)

var (
	ErrMissingBaseURL = errors.New("endpoint base URL is not configured")
	ErrReadTimeout    = errors.New("read timeout")
	ErrStreamClosed   = errors.New("stream closed")
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	maxLineSize  = 1 << 20
	maxErrorBody = 4 << 10
)

// Client issues streaming chat-completions requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "openai.Client")
	if httpClient == nil {
		var err error
		if httpClient, err = NewHTTPClient(DefaultConnectTimeout); err != nil {
			logger.Warn("falling back to HTTP/1.1", "err", err)
			httpClient = &http.Client{Transport: newTransport(DefaultConnectTimeout, DefaultWriteTimeout)}
		}
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Stream is a single streaming completion. Network I/O happens on its own goroutine.
type Stream struct {
	deltas chan string
	done   chan struct{}
	cancel context.CancelCauseFunc

	closeOnce sync.Once

	// written by the run goroutine before done is closed
	raw  string
	text string
	err  error
}

func (s *Stream) Deltas() <-chan string {
	return s.deltas
}

// Wait blocks until the stream ends and returns the final text.
func (s *Stream) Wait() (string, error) {
	<-s.done
	return s.text, s.err
}

// Raw returns the accumulated text before cleanup. Valid after Wait returns.
func (s *Stream) Raw() string {
	<-s.done
	return s.raw
}

// Close cancels the request and waits for the stream goroutine to exit.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel(ErrStreamClosed)
	})
	<-s.done
	return nil
}

func (c *Client) stream(
	ctx context.Context,
	endpoint domain.Endpoint,
	body any,
	readTimeout time.Duration,
	finish func(string) string,
) (*Stream, error) {
	base := strings.TrimRight(strings.TrimSpace(endpoint.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	streamCtx, cancel := context.WithCancelCause(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, base+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		cancel(err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+endpoint.APIKey)

	s := &Stream{
		deltas: make(chan string, 16),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.run(streamCtx, c.httpClient, req, readTimeout, finish, c.logger.With("model", endpoint.Model))
	return s, nil
}

func (s *Stream) run(
	ctx context.Context,
	client *http.Client,
	req *http.Request,
	readTimeout time.Duration,
	finish func(string) string,
	logger *slog.Logger,
) {
	defer close(s.done)
	defer close(s.deltas)
	defer s.cancel(nil)

	if readTimeout <= 0 {
		readTimeout = DefaultCompleteReadTimeout
	}
	watchdog := time.AfterFunc(readTimeout, func() {
		s.cancel(fmt.Errorf("%w after %s", ErrReadTimeout, readTimeout))
	})
	defer watchdog.Stop()

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.err = streamErr(ctx, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return
	}

	var acc strings.Builder
	err = readEvents(resp.Body,
		func() { watchdog.Reset(readTimeout) },
		func(delta string) bool {
			acc.WriteString(delta)
			select {
			case s.deltas <- delta:
				return true
			case <-ctx.Done():
				return false
			}
		},
	)
	s.raw = acc.String()
	if err != nil {
		s.err = streamErr(ctx, err)
		return
	}
	if ctx.Err() != nil {
		s.err = streamErr(ctx, ctx.Err())
		return
	}

	s.text = s.raw
	if finish != nil {
		s.text = finish(s.raw)
	}
	logger.Debug("stream completed", "chars", len(s.raw), "elapsed", time.Since(started))
}

// streamErr prefers the cancellation cause so timeouts and closes read clearly.
func streamErr(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// readEvents scans an SSE body. touch runs once per received line; emit runs for
// each non-empty delta and returns false when the consumer has gone away.
func readEvents(r io.Reader, touch func(), emit func(string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for scanner.Scan() {
		if touch != nil {
			touch()
		}
		delta, done, ok := parseLine(scanner.Text())
		if done {
			return nil
		}
		if !ok || delta == "" {
			continue
		}
		if !emit(delta) {
			return context.Canceled
		}
	}
	return scanner.Err()
}

// parseLine decodes one SSE line. ok is false for lines that carry no usable delta.
func parseLine(line string) (delta string, done bool, ok bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false, false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == doneSentinel {
		return "", true, false
	}

	var parsed chunk
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return "", false, false
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Delta.Content == nil {
		return "", false, false
	}
	return *parsed.Choices[0].Delta.Content, false, true
}
