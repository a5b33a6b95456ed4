package input

import (
	"log/slog"
	"sync"

	"mouthwrite/internal/domain"
)

// DefaultDismissMargin absorbs coordinate rounding from display scaling.
const DefaultDismissMargin = 10

// Listener turns raw key and pointer callbacks into session input events.
// Handle* methods are called from hook goroutines; events are delivered on
// a channel for the orchestrator loop to consume.
type Listener struct {
	logger *slog.Logger
	events chan domain.InputEvent
	closed chan struct{}

	closeOnce sync.Once

	mu          sync.Mutex
	hotkey      Binding
	modifier    Binding
	pressed     map[uint16]struct{}
	latched     bool
	combo       bool
	dismissMode bool
	region      domain.Rect
	margin      int
}

func NewListener(hotkey string, modifier string, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		logger:   logger.With("component", "input.Listener"),
		events:   make(chan domain.InputEvent, 64),
		closed:   make(chan struct{}),
		hotkey:   ResolveBinding(hotkey, DefaultHotkey),
		modifier: ResolveBinding(modifier, DefaultTranslateModifier),
		pressed:  make(map[uint16]struct{}),
		margin:   DefaultDismissMargin,
	}
}

// Events delivers press, release and dismiss notifications.
func (l *Listener) Events() <-chan domain.InputEvent {
	return l.events
}

// Close stops event delivery. Pending Handle* calls return without blocking.
func (l *Listener) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// UpdateBinding swaps the hotkey and modifier and drops any partial press state.
func (l *Listener) UpdateBinding(hotkey string, modifier string) {
	l.mu.Lock()
	l.hotkey = ResolveBinding(hotkey, DefaultHotkey)
	l.modifier = ResolveBinding(modifier, DefaultTranslateModifier)
	l.latched = false
	l.combo = false
	l.pressed = make(map[uint16]struct{})
	name := l.hotkey.Name
	l.mu.Unlock()

	l.logger.Info("hotkey binding updated", "hotkey", name)
}

// Hotkey returns the active hotkey binding name.
func (l *Listener) Hotkey() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hotkey.Name
}

func (l *Listener) SetDismissMode(enabled bool) {
	l.mu.Lock()
	l.dismissMode = enabled
	l.mu.Unlock()
}

func (l *Listener) DismissMode() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dismissMode
}

func (l *Listener) SetDismissRegion(region domain.Rect) {
	l.mu.Lock()
	l.region = region
	l.mu.Unlock()
}

// HandleKeyDown processes a physical key press, including auto-repeat.
func (l *Listener) HandleKeyDown(code uint16) {
	l.mu.Lock()
	_, repeat := l.pressed[code]
	l.pressed[code] = struct{}{}

	var (
		event domain.InputEvent
		emit  bool
	)
	switch {
	case l.hotkey.Matches(code):
		if !l.latched {
			l.latched = true
			l.combo = l.modifierHeldLocked()
			event = domain.InputEvent{Kind: domain.InputPress}
			emit = true
		}
	case l.latched && l.modifier.Matches(code):
		l.combo = true
	case l.dismissMode && !repeat:
		event = domain.InputEvent{Kind: domain.InputDismiss}
		emit = true
	}
	l.mu.Unlock()

	if emit {
		l.emit(event)
	}
}

// HandleKeyUp processes a physical key release.
func (l *Listener) HandleKeyUp(code uint16) {
	l.mu.Lock()
	delete(l.pressed, code)

	var (
		event domain.InputEvent
		emit  bool
	)
	if l.latched && l.hotkey.Matches(code) {
		for _, alias := range l.hotkey.Codes {
			delete(l.pressed, alias)
		}
		event = domain.InputEvent{Kind: domain.InputRelease, Combo: l.combo}
		l.latched = false
		l.combo = false
		emit = true
	}
	l.mu.Unlock()

	if emit {
		l.emit(event)
	}
}

// HandlePointerDown processes a primary button press at screen coordinates.
func (l *Listener) HandlePointerDown(x, y int) {
	l.mu.Lock()
	outside := l.dismissMode && !l.region.Expand(l.margin).Contains(x, y)
	l.mu.Unlock()

	if outside {
		l.emit(domain.InputEvent{Kind: domain.InputPointerDismiss, X: x, Y: y})
	}
}

func (l *Listener) modifierHeldLocked() bool {
	for code := range l.pressed {
		if l.modifier.Matches(code) {
			return true
		}
	}
	return false
}

func (l *Listener) emit(event domain.InputEvent) {
	select {
	case l.events <- event:
	case <-l.closed:
		l.logger.Debug("input event dropped after close", "kind", event.Kind)
	}
}
