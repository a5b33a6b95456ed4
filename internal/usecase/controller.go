package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

var (
	ErrControllerStopped = errors.New("session controller is not running")
	ErrAlreadyRunning    = errors.New("session controller is already running")
)

const (
	DefaultMinDuration         = 300 * time.Millisecond
	DefaultOptimizeDelay       = 300 * time.Millisecond
	DefaultPasteDelay          = 200 * time.Millisecond
	DefaultDismissGrace        = 300 * time.Millisecond
	DefaultPointerDismissDelay = 120 * time.Millisecond
	DefaultJoinTimeout         = 2 * time.Second
)

// Config holds the session timings.
type Config struct {
	// MinDuration discards recordings shorter than this.
	MinDuration time.Duration
	// OptimizeDelay debounces the start of refinement after ASR completes.
	OptimizeDelay time.Duration
	// PasteDelay is the wait between copying and the simulated paste.
	PasteDelay time.Duration
	// DismissGrace keeps dismiss-mode off after the paste keystroke.
	DismissGrace time.Duration
	// PointerDismissDelay lets in-window clicks land before an outside click dismisses.
	PointerDismissDelay time.Duration
	// JoinTimeout bounds the wait for a cancelled worker.
	JoinTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinDuration <= 0 {
		c.MinDuration = DefaultMinDuration
	}
	if c.OptimizeDelay <= 0 {
		c.OptimizeDelay = DefaultOptimizeDelay
	}
	if c.PasteDelay <= 0 {
		c.PasteDelay = DefaultPasteDelay
	}
	if c.DismissGrace <= 0 {
		c.DismissGrace = DefaultDismissGrace
	}
	if c.PointerDismissDelay <= 0 {
		c.PointerDismissDelay = DefaultPointerDismissDelay
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
	return c
}

// Deps are the collaborators a SessionController drives. Cues and Glossary
// are optional.
type Deps struct {
	Recorder    ports.Recorder
	Transcriber ports.Transcriber
	Completer   ports.Completer
	Glossary    ports.Glossary
	Clipboard   ports.Clipboard
	Paster      ports.Paster
	Cues        ports.CuePlayer
	History     ports.HistoryStore
	Settings    ports.SettingsSource
	Dismiss     ports.DismissControl
	Display     ports.Display
	Logger      *slog.Logger
}

// SessionController orchestrates push-to-talk sessions. All session state
// and every Display call belong to the goroutine running Run; other
// goroutines talk to it through channels.
type SessionController struct {
	recorder    ports.Recorder
	transcriber ports.Transcriber
	completer   ports.Completer
	glossary    ports.Glossary
	clipboard   ports.Clipboard
	paster      ports.Paster
	cues        ports.CuePlayer
	history     ports.HistoryStore
	settings    ports.SettingsSource
	dismiss     ports.DismissControl
	display     ports.Display
	logger      *slog.Logger
	cfg         Config

	events  chan loopEvent
	running atomic.Bool
	stopped chan struct{}

	statusMu sync.Mutex
	status   domain.Status

	// loop-owned
	ctx        context.Context
	state      domain.SessionState
	generation uint64
	nextWorker uint64
	worker     *worker
	current    session
}

func NewSessionController(deps Deps, cfg Config) *SessionController {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cues := deps.Cues
	if cues == nil {
		cues = nopCues{}
	}
	glossary := deps.Glossary
	if glossary == nil {
		glossary = nopGlossary{}
	}
	return &SessionController{
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		completer:   deps.Completer,
		glossary:    glossary,
		clipboard:   deps.Clipboard,
		paster:      deps.Paster,
		cues:        cues,
		history:     deps.History,
		settings:    deps.Settings,
		dismiss:     deps.Dismiss,
		display:     deps.Display,
		logger:      logger.With("component", "usecase.SessionController"),
		cfg:         cfg.withDefaults(),
		events:      make(chan loopEvent, 64),
		stopped:     make(chan struct{}),
		state:       domain.SessionStateIdle,
		status:      domain.Status{State: domain.SessionStateIdle},
		current:     newSession(domain.Settings{}),
	}
}

// Run owns the session loop until ctx is done. It may be called once.
func (c *SessionController) Run(ctx context.Context, inputs <-chan domain.InputEvent) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	c.ctx = ctx
	defer close(c.stopped)
	defer c.shutdown()

	c.logger.Info("session loop started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case input, ok := <-inputs:
			if !ok {
				inputs = nil
				continue
			}
			c.handle(loopEvent{kind: eventInput, input: input})
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// RequestTranslate asks the loop to translate the delivered text.
func (c *SessionController) RequestTranslate() error {
	return c.post(loopEvent{kind: eventTranslate})
}

// WindowClosed reports that the user closed the status surface.
func (c *SessionController) WindowClosed() error {
	return c.post(loopEvent{kind: eventWindowClosed})
}

// Status returns the current backend status. Safe from any goroutine.
func (c *SessionController) Status() domain.Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *SessionController) post(ev loopEvent) error {
	if !c.running.Load() {
		return ErrControllerStopped
	}
	select {
	case <-c.stopped:
		return ErrControllerStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.stopped:
		return ErrControllerStopped
	}
}

// after delivers an event of kind once d elapses, tagged with the current generation.
func (c *SessionController) after(d time.Duration, kind eventKind) {
	ev := loopEvent{kind: kind, generation: c.generation}
	time.AfterFunc(d, func() {
		_ = c.post(ev)
	})
}

func (c *SessionController) handle(ev loopEvent) {
	switch ev.kind {
	case eventInput:
		c.handleInput(ev.input)
	case eventDelta, eventFinished:
		c.handleWorker(ev)
	case eventTranslate:
		c.translate()
	case eventWindowClosed:
		c.disarm()
		c.reset(domain.SessionReasonWindowClosed)
	default:
		if ev.generation != c.generation {
			c.logger.Debug("dropping stale timer", "kind", ev.kind, "generation", ev.generation)
			return
		}
		c.handleTimer(ev.kind)
	}
}

func (c *SessionController) handleInput(input domain.InputEvent) {
	switch input.Kind {
	case domain.InputPress:
		c.press()
	case domain.InputRelease:
		c.release(input.Combo)
	case domain.InputDismiss:
		c.tryDismiss()
	case domain.InputPointerDismiss:
		c.after(c.cfg.PointerDismissDelay, eventPointerDismiss)
	}
}

func (c *SessionController) handleTimer(kind eventKind) {
	switch kind {
	case eventStartOptimize:
		c.startOptimize()
	case eventPaste:
		c.paste()
	case eventArmDismiss:
		c.current.pasting = false
		if c.state.AllowsDismiss() {
			c.arm()
		}
	case eventPointerDismiss:
		c.tryDismiss()
	}
}

func (c *SessionController) press() {
	reason := domain.SessionReasonRecordingStarted
	if c.state.Busy() {
		if !c.state.AllowsDismiss() {
			c.logger.Debug("press ignored while busy", "state", c.state)
			return
		}
		c.disarm()
		c.display.Close()
		reason = domain.SessionReasonRecordingRestarted
	}

	c.generation++
	c.disarm()
	c.cancelWorker()
	c.current = newSession(c.settings.Settings())
	c.setStatusMessage("")
	c.setTranslated(false)

	c.cues.PlayStart()
	c.display.Clear()
	c.setState(domain.SessionStateListening, reason)
	c.display.Show()

	if err := c.recorder.Start(c.ctx); err != nil {
		c.logger.Error("microphone start failed", "err", err)
		c.display.SetStatus("Microphone error: " + err.Error())
		c.display.SessionError(domain.ErrorCodeCapture, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonCaptureFailed)
		c.arm()
	}
}

func (c *SessionController) release(combo bool) {
	if c.state != domain.SessionStateListening {
		return
	}
	if err := c.recorder.Stop(); err != nil {
		c.logger.Warn("recorder stop failed", "err", err)
	}
	c.cues.PlayEnd()

	duration := c.recorder.Duration()
	if duration < c.cfg.MinDuration {
		c.logger.Debug("recording too short", "duration", duration)
		c.discard()
		return
	}
	audio, err := c.recorder.Render()
	if err != nil {
		c.logger.Error("render recording failed", "err", err)
		c.display.SessionError(domain.ErrorCodeCapture, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonCaptureFailed)
		c.arm()
		return
	}
	if audio == "" {
		c.discard()
		return
	}

	c.current.combo = combo
	c.setState(domain.SessionStateRecognizing, domain.SessionReasonTranscribing)
	c.display.AddBlock(domain.BlockASR)

	endpoint := c.current.settings.ASR
	c.startWorker(stageASR, func(ctx context.Context) (ports.TextStream, error) {
		return c.transcriber.Transcribe(ctx, endpoint, audio)
	})
}

func (c *SessionController) discard() {
	c.generation++
	c.display.Close()
	c.setState(domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
}

func (c *SessionController) startOptimize() {
	if c.state != domain.SessionStateRecognizing {
		return
	}
	c.setState(domain.SessionStateOptimizing, domain.SessionReasonOptimizing)
	c.display.AddBlock(domain.BlockOptimize)

	settings := c.current.settings
	var recent []domain.HistoryRecord
	if c.history != nil && settings.HistoryContextCount > 0 {
		recent = c.history.Recent(settings.HistoryContextCount)
	}
	prompt := buildRefinePrompt(c.current.raw, recent, settings.OptimizeRules, c.glossary.Terms())
	c.startWorker(stageOptimize, func(ctx context.Context) (ports.TextStream, error) {
		return c.completer.Complete(ctx, settings.LLM, prompt)
	})
}

func (c *SessionController) translate() {
	if c.state != domain.SessionStateDone || c.current.translated {
		c.logger.Debug("translate ignored", "state", c.state, "translated", c.current.translated)
		return
	}
	settings := c.current.settings
	if !settings.LLM.HasCredential() {
		c.display.SetStatus("Set an LLM API key to enable translation")
		c.setStatusMessage("llm api key missing")
		return
	}
	text := c.current.text()
	if text == "" {
		return
	}

	c.disarm()
	c.setState(domain.SessionStateTranslating, domain.SessionReasonTranslating)
	c.display.AddBlock(domain.BlockTranslate)

	prompt := buildTranslatePrompt(settings.TargetLanguage, text)
	c.startWorker(stageTranslate, func(ctx context.Context) (ports.TextStream, error) {
		return c.completer.Complete(ctx, settings.LLM, prompt)
	})
}

func (c *SessionController) tryDismiss() {
	if !c.display.IsVisible() || !c.state.AllowsDismiss() {
		return
	}
	c.disarm()
	c.display.Close()
	c.reset(domain.SessionReasonDismissed)
}

// reset abandons the session and returns to idle.
func (c *SessionController) reset(reason domain.SessionStateReason) {
	c.generation++
	c.cancelWorker()
	if err := c.recorder.Stop(); err != nil {
		c.logger.Warn("recorder stop failed", "err", err)
	}
	c.setState(domain.SessionStateIdle, reason)
}

func (c *SessionController) shutdown() {
	c.disarm()
	c.cancelWorker()
	if err := c.recorder.Stop(); err != nil {
		c.logger.Warn("recorder stop failed", "err", err)
	}
	c.logger.Info("session loop stopped")
}

func (c *SessionController) arm() {
	c.dismiss.SetDismissRegion(c.display.Bounds())
	c.dismiss.SetDismissMode(true)
}

func (c *SessionController) disarm() {
	c.dismiss.SetDismissMode(false)
}

func (c *SessionController) setState(state domain.SessionState, reason domain.SessionStateReason) {
	c.state = state
	c.statusMu.Lock()
	c.status.State = state
	c.status.Active = state.Busy()
	c.statusMu.Unlock()

	c.logger.Info("session state changed", "session", c.current.id, "generation", c.generation, "state", state, "reason", reason)
	c.display.SetState(state, reason)
}

func (c *SessionController) setStatusMessage(message string) {
	c.statusMu.Lock()
	c.status.Message = message
	c.statusMu.Unlock()
}

func (c *SessionController) setTranslated(translated bool) {
	c.current.translated = translated
	c.statusMu.Lock()
	c.status.Translated = translated
	c.statusMu.Unlock()
}
