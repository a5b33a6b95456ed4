package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"mouthwrite/internal/bootstrap"
	"mouthwrite/internal/domain"
)

const (
	eventClear       = "mouthwrite:clear"
	eventState       = "mouthwrite:state"
	eventBlock       = "mouthwrite:block"
	eventBlockText   = "mouthwrite:block-text"
	eventBlockAppend = "mouthwrite:block-append"
	eventCopied      = "mouthwrite:copied"
	eventStatus      = "mouthwrite:status"
	eventTranslated  = "mouthwrite:translated"
	eventError       = "mouthwrite:error"
)

const (
	windowWidth  = 560
	windowHeight = 180
	// bottomMargin keeps the surface clear of docks and taskbars.
	bottomMargin = 96
)

// App is the Wails application root and the status surface the session
// controller renders to.
type App struct {
	ctx    context.Context
	logger *slog.Logger

	services *bootstrap.Services
	bootErr  error
	cancel   context.CancelFunc

	visible atomic.Bool
	active  atomic.Bool
}

func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{logger: logger}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.logger)
	if err != nil {
		a.bootErr = err
		a.logger.Error("startup failed", "err", err)
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := services.Run(runCtx); err != nil {
			a.logger.Error("session loop exited", "err", err)
		}
	}()

	a.SetState(domain.SessionStateIdle, domain.SessionReasonReady)
	services.Notifier.Notify(services.StartupMessage())
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// RequestTranslate is bound to the surface's translate button.
func (a *App) RequestTranslate() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.RequestTranslate()
}

// CloseWindow hides the surface and abandons the current session.
func (a *App) CloseWindow() error {
	a.Close()
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.WindowClosed()
}

// FocusChanged is reported by the frontend on window focus and blur.
func (a *App) FocusChanged(focused bool) {
	a.active.Store(focused)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.services.Controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config.Snapshot()
	return map[string]string{
		"configFile":        a.services.Config.Path(),
		"hotkey":            a.services.Listener.Hotkey(),
		"translateModifier": cfg.TranslateModifier,
		"asrBaseUrl":        cfg.ASR.BaseURL,
		"asrModel":          cfg.ASR.Model,
		"llmBaseUrl":        cfg.LLM.BaseURL,
		"llmModel":          cfg.LLM.Model,
		"llmConfigured":     strconv.FormatBool(cfg.LLM.HasCredential()),
		"targetLanguage":    cfg.Translation.TargetLanguage,
		"glossaryFile":      cfg.Glossary.Path,
		"glossaryEntries":   strconv.Itoa(a.services.Glossary.Len()),
		"audioBackend":      cfg.Audio.Backend,
		"audioInput":        cfg.Audio.InputDevice,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emit(name string, data ...interface{}) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

func (a *App) Clear() {
	a.emit(eventClear)
}

// SetState emits session lifecycle updates to the frontend.
func (a *App) SetState(state domain.SessionState, reason domain.SessionStateReason) {
	a.emit(eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateMessage(reason),
	})
}

func (a *App) AddBlock(kind domain.BlockKind) {
	a.emit(eventBlock, map[string]string{"kind": string(kind)})
}

func (a *App) SetBlockText(kind domain.BlockKind, text string) {
	a.emit(eventBlockText, map[string]string{"kind": string(kind), "text": text})
}

func (a *App) AppendToBlock(kind domain.BlockKind, text string) {
	a.emit(eventBlockAppend, map[string]string{"kind": string(kind), "text": text})
}

func (a *App) ShowCopied(kind domain.BlockKind) {
	a.emit(eventCopied, map[string]string{"kind": string(kind)})
}

func (a *App) SetStatus(text string) {
	a.emit(eventStatus, map[string]string{"text": text})
}

func (a *App) MarkTranslated() {
	a.emit(eventTranslated)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// Show places the surface at the bottom centre of the current screen.
func (a *App) Show() {
	a.visible.Store(true)
	if a.ctx == nil {
		return
	}
	if screens, err := runtime.ScreenGetAll(a.ctx); err == nil {
		if screen, ok := currentScreen(screens); ok {
			x, y := bottomCenter(screen.Size.Width, screen.Size.Height, windowWidth, windowHeight, bottomMargin)
			runtime.WindowSetPosition(a.ctx, x, y)
		}
	} else {
		a.logger.Debug("screen lookup failed", "err", err)
	}
	runtime.WindowShow(a.ctx)
	runtime.WindowSetAlwaysOnTop(a.ctx, true)
}

func (a *App) Close() {
	a.visible.Store(false)
	a.active.Store(false)
	if a.ctx == nil {
		return
	}
	runtime.WindowHide(a.ctx)
}

func (a *App) IsVisible() bool {
	return a.visible.Load()
}

func (a *App) IsActive() bool {
	return a.active.Load()
}

func (a *App) Bounds() domain.Rect {
	if a.ctx == nil {
		return domain.Rect{}
	}
	x, y := runtime.WindowGetPosition(a.ctx)
	w, h := runtime.WindowGetSize(a.ctx)
	return domain.Rect{X: x, Y: y, W: w, H: h}
}

func currentScreen(screens []runtime.Screen) (runtime.Screen, bool) {
	for _, screen := range screens {
		if screen.IsCurrent {
			return screen, true
		}
	}
	for _, screen := range screens {
		if screen.IsPrimary {
			return screen, true
		}
	}
	if len(screens) > 0 {
		return screens[0], true
	}
	return runtime.Screen{}, false
}

func bottomCenter(screenW, screenH, winW, winH, margin int) (int, int) {
	x := (screenW - winW) / 2
	y := screenH - winH - margin
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

func stateMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Listening..."
	case domain.SessionReasonRecordingRestarted:
		return "Listening... (previous session discarded)"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording too short, discarded"
	case domain.SessionReasonCaptureFailed:
		return "Microphone unavailable"
	case domain.SessionReasonTranscribing:
		return "Recognizing..."
	case domain.SessionReasonTranscriptionFailed:
		return "Recognition failed"
	case domain.SessionReasonNoSpeech:
		return "No speech recognized"
	case domain.SessionReasonOptimizing:
		return "Refining..."
	case domain.SessionReasonTranscriptCopied:
		return "Copied to clipboard"
	case domain.SessionReasonOptimizationFailed:
		return "Refinement failed, raw transcript copied"
	case domain.SessionReasonTranslating:
		return "Translating..."
	case domain.SessionReasonTranslationCopied:
		return "Translation copied"
	case domain.SessionReasonTranslationFailed:
		return "Translation failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Microphone error"
	case domain.ErrorCodeTranscription:
		return "Recognition error"
	case domain.ErrorCodeOptimization:
		return "Refinement error"
	case domain.ErrorCodeTranslation:
		return "Translation error"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodePaste:
		return "Paste failed"
	case domain.ErrorCodeHistory:
		return "History not saved"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
