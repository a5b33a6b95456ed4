package domain

// SessionState models the voice session lifecycle.
type SessionState string

const (
	SessionStateIdle        SessionState = "idle"
	SessionStateListening   SessionState = "listening"
	SessionStateRecognizing SessionState = "recognizing"
	SessionStateOptimizing  SessionState = "optimizing"
	SessionStateDone        SessionState = "done"
	SessionStateTranslating SessionState = "translating"
	SessionStateError       SessionState = "error"
)

// AllowsDismiss reports whether a stray key or outside click may close the surface.
func (s SessionState) AllowsDismiss() bool {
	return s == SessionStateDone || s == SessionStateError
}

// Busy reports whether a session currently owns the surface.
func (s SessionState) Busy() bool {
	return s != SessionStateIdle && s != ""
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted  SessionStateReason = "recording_restarted"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonCaptureFailed       SessionStateReason = "capture_failed"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonNoSpeech            SessionStateReason = "no_speech"
	SessionReasonOptimizing          SessionStateReason = "optimizing"
	SessionReasonTranscriptCopied    SessionStateReason = "transcript_copied"
	SessionReasonOptimizationFailed  SessionStateReason = "optimization_failed"
	SessionReasonTranslating         SessionStateReason = "translating"
	SessionReasonTranslationCopied   SessionStateReason = "translation_copied"
	SessionReasonTranslationFailed   SessionStateReason = "translation_failed"
	SessionReasonDismissed           SessionStateReason = "dismissed"
	SessionReasonWindowClosed        SessionStateReason = "window_closed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeCapture       ErrorCode = "capture"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeOptimization  ErrorCode = "optimization"
	ErrorCodeTranslation   ErrorCode = "translation"
	ErrorCodeClipboard     ErrorCode = "clipboard"
	ErrorCodePaste         ErrorCode = "paste"
	ErrorCodeHistory       ErrorCode = "history"
)

// BlockKind names one text block on the status surface.
type BlockKind string

const (
	BlockASR       BlockKind = "asr"
	BlockOptimize  BlockKind = "optimize"
	BlockTranslate BlockKind = "translate"
)

// Endpoint addresses one OpenAI-compatible chat completions service.
type Endpoint struct {
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
	APIKey  string `json:"-"`
	// Format forces the ASR payload variant: "auto", "audio_url" or "input_audio".
	Format string `json:"format,omitempty"`
}

// HasCredential reports whether a non-empty API key is configured.
func (e Endpoint) HasCredential() bool {
	return e.APIKey != ""
}

// Settings is the per-session view of configuration the orchestrator needs.
type Settings struct {
	ASR                 Endpoint
	LLM                 Endpoint
	TargetLanguage      string
	HistoryContextCount int
	OptimizeRules       string
}

// HistoryRecord is one completed session.
type HistoryRecord struct {
	ID             string `json:"id,omitempty"`
	Time           string `json:"time"`
	ASRText        string `json:"asr_text"`
	OptimizedText  string `json:"optimized_text"`
	TranslatedText string `json:"translated_text,omitempty"`
}

// Rect is a screen rectangle in pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin int) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, W: r.W + 2*margin, H: r.H + 2*margin}
}

// Contains reports whether the point lies inside the rectangle, edges included.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// InputKind identifies a notification from the global input listener.
type InputKind string

const (
	InputPress          InputKind = "press"
	InputRelease        InputKind = "release"
	InputDismiss        InputKind = "dismiss"
	InputPointerDismiss InputKind = "pointer_dismiss"
)

// InputEvent is emitted by the input listener and consumed by the orchestrator.
type InputEvent struct {
	Kind InputKind
	// Combo is set on release when the translate modifier was held during the session.
	Combo bool
	X     int
	Y     int
}

// Status summarizes the current runtime status.
type Status struct {
	State      SessionState `json:"state"`
	Active     bool         `json:"active"`
	Translated bool         `json:"translated"`
	Message    string       `json:"message,omitempty"`
}
