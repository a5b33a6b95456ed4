package ports

import (
	"context"
	"time"

	"mouthwrite/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	Stop() error
}

// AudioCapture opens microphone streams and delivers PCM frames to onFrame.
// The frame slice may be reused after onFrame returns.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig, onFrame func(frame []int16)) (AudioSession, error)
}

// Recorder accumulates microphone audio between Start and Stop.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() error
	Duration() time.Duration
	// Render returns the captured audio as base64 WAV, or "" when nothing was captured.
	Render() (string, error)
}

// TextStream is one in-flight streaming completion.
type TextStream interface {
	// Deltas yields incremental text and is closed when the stream ends.
	Deltas() <-chan string
	// Wait blocks until the stream ends and returns the final text.
	Wait() (string, error)
	Close() error
}

// Transcriber streams speech recognition for a base64 WAV payload.
type Transcriber interface {
	Transcribe(ctx context.Context, endpoint domain.Endpoint, audioBase64 string) (TextStream, error)
}

// Completer streams a chat completion for a single user prompt.
type Completer interface {
	Complete(ctx context.Context, endpoint domain.Endpoint, prompt string) (TextStream, error)
}

// Glossary applies user word corrections to a transcript.
type Glossary interface {
	Apply(text string) (string, error)
	// Terms lists canonical spellings worth hinting to the refinement model.
	Terms() []string
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// Paster simulates the platform paste shortcut in the focused application.
type Paster interface {
	Paste(ctx context.Context) error
}

// CuePlayer plays the start and end sounds. Calls return immediately.
type CuePlayer interface {
	PlayStart()
	PlayEnd()
}

// HistoryStore persists completed sessions.
type HistoryStore interface {
	Add(raw string, optimized string, translated string) error
	UpdateLastTranslation(text string) error
	Recent(n int) []domain.HistoryRecord
}

// SettingsSource returns the configuration in effect for a new session.
type SettingsSource interface {
	Settings() domain.Settings
}

// DismissControl toggles dismiss-on-any-input in the global input listener.
type DismissControl interface {
	SetDismissMode(enabled bool)
	SetDismissRegion(region domain.Rect)
}

// Display renders session progress on the floating status surface.
type Display interface {
	Clear()
	SetState(state domain.SessionState, reason domain.SessionStateReason)
	AddBlock(kind domain.BlockKind)
	SetBlockText(kind domain.BlockKind, text string)
	AppendToBlock(kind domain.BlockKind, text string)
	ShowCopied(kind domain.BlockKind)
	SetStatus(text string)
	MarkTranslated()
	SessionError(code domain.ErrorCode, detail string)
	Show()
	Close()
	IsVisible() bool
	// IsActive reports whether the surface currently holds keyboard focus.
	IsActive() bool
	Bounds() domain.Rect
}
