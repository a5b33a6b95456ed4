package input

import (
	"context"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// route says which listener goroutine should process a hook event.
type route int

const (
	routeNone route = iota
	routeKeyDown
	routeKeyUp
	routePointer
)

// classify maps libuiohook events onto listener callbacks. gohook names the
// physical press KeyHold and the synthesized character event KeyDown; only
// the physical press is used so each stroke is seen once. Likewise MouseHold
// is the button press.
func classify(ev hook.Event) route {
	switch ev.Kind {
	case hook.KeyHold:
		return routeKeyDown
	case hook.KeyUp:
		return routeKeyUp
	case hook.MouseHold:
		if ev.Button == hook.MouseMap["left"] {
			return routePointer
		}
	}
	return routeNone
}

// Hook feeds the process-wide keyboard and mouse hook into a Listener.
// Key and pointer events are handled on separate goroutines so a slow
// pointer path never delays hotkey release detection.
type Hook struct {
	listener *Listener
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewHook(listener *Listener, logger *slog.Logger) *Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{listener: listener, logger: logger.With("component", "input.Hook")}
}

// Start installs the hook. It is stopped when ctx ends or Stop is called.
func (h *Hook) Start(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	source := hook.Start()
	keys := make(chan hook.Event, 128)
	pointer := make(chan hook.Event, 32)

	h.wg.Add(3)
	go h.pump(source, keys, pointer)
	go h.keyLoop(keys)
	go h.pointerLoop(pointer)

	go func() {
		<-ctx.Done()
		h.Stop()
	}()
	h.logger.Info("global input hook started", "hotkey", h.listener.Hotkey())
}

// Stop removes the hook and waits for the dispatch goroutines to drain.
func (h *Hook) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	hook.End()
	h.wg.Wait()
	h.logger.Info("global input hook stopped")
}

func (h *Hook) pump(source <-chan hook.Event, keys chan<- hook.Event, pointer chan<- hook.Event) {
	defer h.wg.Done()
	defer close(keys)
	defer close(pointer)

	for ev := range source {
		switch classify(ev) {
		case routeKeyDown, routeKeyUp:
			keys <- ev
		case routePointer:
			pointer <- ev
		}
	}
}

func (h *Hook) keyLoop(keys <-chan hook.Event) {
	defer h.wg.Done()
	for ev := range keys {
		if classify(ev) == routeKeyDown {
			h.listener.HandleKeyDown(ev.Keycode)
		} else {
			h.listener.HandleKeyUp(ev.Keycode)
		}
	}
}

func (h *Hook) pointerLoop(pointer <-chan hook.Event) {
	defer h.wg.Done()
	for ev := range pointer {
		h.listener.HandlePointerDown(int(ev.X), int(ev.Y))
	}
}
