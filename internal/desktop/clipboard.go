package desktop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard writes text to the system clipboard.
type Clipboard struct {
	unsupported bool
	write       func(string) error
	read        func() (string, error)
}

func NewClipboard() *Clipboard {
	return &Clipboard{
		unsupported: clipboard.Unsupported,
		write:       clipboard.WriteAll,
		read:        clipboard.ReadAll,
	}
}

func (c *Clipboard) SetText(ctx context.Context, text string) error {
	if c.unsupported {
		return ErrClipboardUnavailable
	}
	if err := c.run(ctx, func() error { return c.write(text) }); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Text returns the current clipboard contents.
func (c *Clipboard) Text(ctx context.Context) (string, error) {
	if c.unsupported {
		return "", ErrClipboardUnavailable
	}
	var text string
	err := c.run(ctx, func() error {
		value, err := c.read()
		text = strings.TrimRight(value, "\x00")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// run bounds helper-process backed clipboard calls by ctx.
func (c *Clipboard) run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
