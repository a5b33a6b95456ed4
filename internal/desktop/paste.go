package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

type pasteChord struct {
	ctrl  bool
	super bool
	key   int
}

func chordFor(goos string) pasteChord {
	if goos == "darwin" {
		return pasteChord{super: true, key: keybd_event.VK_V}
	}
	return pasteChord{ctrl: true, key: keybd_event.VK_V}
}

// Paster synthesizes the platform paste shortcut in the focused window.
type Paster struct {
	logger *slog.Logger
	chord  pasteChord

	kb      *keybd_event.KeyBonding
	initErr error
	mu      sync.Mutex
}

// NewPaster opens the virtual keyboard up front. The Linux uinput device
// needs time to register before the first keystroke is seen.
func NewPaster(logger *slog.Logger) *Paster {
	return newPaster(logger, keybd_event.NewKeyBonding)
}

func newPaster(logger *slog.Logger, open func() (keybd_event.KeyBonding, error)) *Paster {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Paster{
		logger: logger.With("component", "paster"),
		chord:  chordFor(runtime.GOOS),
	}
	kb, err := open()
	if err != nil {
		p.initErr = fmt.Errorf("init keyboard: %w", err)
		p.logger.Warn("virtual keyboard unavailable, paste disabled", "err", err)
		return p
	}
	p.kb = &kb
	return p
}

func (p *Paster) Paste(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.initErr != nil {
		return p.initErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.kb.Clear()
	p.kb.HasCTRL(p.chord.ctrl)
	p.kb.HasSuper(p.chord.super)
	p.kb.SetKeys(p.chord.key)
	if err := p.kb.Launching(); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}
	p.logger.Debug("paste shortcut sent")
	return nil
}
