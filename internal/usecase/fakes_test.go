package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

type fakeRecorder struct {
	mu        sync.Mutex
	duration  time.Duration
	audio     string
	startErr  error
	renderErr error
	starts    int
	stops     int
}

func (f *fakeRecorder) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeRecorder) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRecorder) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeRecorder) Render() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio, f.renderErr
}

func (f *fakeRecorder) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// streamScript describes one fake streaming response.
type streamScript struct {
	deltas []string
	text   string
	err    error
	// hold keeps the stream open until closed or the request is cancelled.
	hold chan struct{}
}

type fakeStream struct {
	deltas chan string
	done   chan struct{}
	text   string
	err    error
}

func startFakeStream(ctx context.Context, script streamScript, onCancel func()) *fakeStream {
	s := &fakeStream{deltas: make(chan string), done: make(chan struct{}), text: script.text}
	cancelled := func() {
		s.err = ctx.Err()
		onCancel()
	}
	go func() {
		defer close(s.done)
		defer close(s.deltas)
		for _, delta := range script.deltas {
			select {
			case s.deltas <- delta:
			case <-ctx.Done():
				cancelled()
				return
			}
		}
		if script.hold != nil {
			select {
			case <-script.hold:
			case <-ctx.Done():
				cancelled()
				return
			}
		}
		s.err = script.err
	}()
	return s
}

func (s *fakeStream) Deltas() <-chan string { return s.deltas }

func (s *fakeStream) Wait() (string, error) {
	<-s.done
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *fakeStream) Close() error {
	<-s.done
	return nil
}

// fakeBackend serves both transcription and completion requests from scripts.
type fakeBackend struct {
	mu        sync.Mutex
	asr       []streamScript
	llm       []streamScript
	asrCalls  []string
	prompts   []string
	endpoints []domain.Endpoint
	cancelled int
	openErr   error
}

func (f *fakeBackend) Transcribe(ctx context.Context, endpoint domain.Endpoint, audio string) (ports.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.asrCalls = append(f.asrCalls, audio)
	f.endpoints = append(f.endpoints, endpoint)
	script := streamScript{}
	if len(f.asr) > 0 {
		script, f.asr = f.asr[0], f.asr[1:]
	}
	return startFakeStream(ctx, script, f.markCancelled), nil
}

func (f *fakeBackend) Complete(ctx context.Context, endpoint domain.Endpoint, prompt string) (ports.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.endpoints = append(f.endpoints, endpoint)
	script := streamScript{}
	if len(f.llm) > 0 {
		script, f.llm = f.llm[0], f.llm[1:]
	}
	return startFakeStream(ctx, script, f.markCancelled), nil
}

func (f *fakeBackend) markCancelled() {
	f.mu.Lock()
	f.cancelled++
	f.mu.Unlock()
}

func (f *fakeBackend) snapshot() (asrCalls int, prompts []string, cancelled int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.asrCalls), append([]string(nil), f.prompts...), f.cancelled
}

type stateChange struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errorReport struct {
	code   domain.ErrorCode
	detail string
}

type fakeDisplay struct {
	mu         sync.Mutex
	states     []stateChange
	blocks     map[domain.BlockKind]string
	added      []domain.BlockKind
	copied     []domain.BlockKind
	statuses   []string
	errors     []errorReport
	clears     int
	shows      int
	closes     int
	visible    bool
	active     bool
	translated bool
	// state shown when MarkTranslated was called
	translatedIn domain.SessionState
	bounds       domain.Rect
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{blocks: map[domain.BlockKind]string{}, bounds: domain.Rect{X: 100, Y: 800, W: 560, H: 160}}
}

func (d *fakeDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	d.blocks = map[domain.BlockKind]string{}
	d.translated = false
}

func (d *fakeDisplay) SetState(state domain.SessionState, reason domain.SessionStateReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, stateChange{state: state, reason: reason})
}

func (d *fakeDisplay) AddBlock(kind domain.BlockKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added = append(d.added, kind)
	d.blocks[kind] = ""
}

func (d *fakeDisplay) SetBlockText(kind domain.BlockKind, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks[kind] = text
}

func (d *fakeDisplay) AppendToBlock(kind domain.BlockKind, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks[kind] += text
}

func (d *fakeDisplay) ShowCopied(kind domain.BlockKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.copied = append(d.copied, kind)
}

func (d *fakeDisplay) SetStatus(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses = append(d.statuses, text)
}

func (d *fakeDisplay) MarkTranslated() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.translated = true
	if len(d.states) > 0 {
		d.translatedIn = d.states[len(d.states)-1].state
	}
}

func (d *fakeDisplay) translatedState() domain.SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.translatedIn
}

func (d *fakeDisplay) SessionError(code domain.ErrorCode, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, errorReport{code: code, detail: detail})
}

func (d *fakeDisplay) Show() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shows++
	d.visible = true
}

func (d *fakeDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	d.visible = false
}

func (d *fakeDisplay) IsVisible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

func (d *fakeDisplay) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *fakeDisplay) Bounds() domain.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bounds
}

func (d *fakeDisplay) lastState() stateChange {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.states) == 0 {
		return stateChange{}
	}
	return d.states[len(d.states)-1]
}

func (d *fakeDisplay) sawState(state domain.SessionState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, change := range d.states {
		if change.state == state {
			return true
		}
	}
	return false
}

func (d *fakeDisplay) block(kind domain.BlockKind) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blocks[kind]
}

func (d *fakeDisplay) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *fakeDisplay) errorCodes() []domain.ErrorCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	codes := make([]domain.ErrorCode, 0, len(d.errors))
	for _, report := range d.errors {
		codes = append(codes, report.code)
	}
	return codes
}

type fakeDismiss struct {
	mu      sync.Mutex
	enabled bool
	changes []bool
	armedAt time.Time
	region  domain.Rect
}

func (f *fakeDismiss) SetDismissMode(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled && f.armedAt.IsZero() {
		f.armedAt = time.Now()
	}
	f.enabled = enabled
	f.changes = append(f.changes, enabled)
}

func (f *fakeDismiss) firstArmed() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armedAt
}

func (f *fakeDismiss) SetDismissRegion(region domain.Rect) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.region = region
}

func (f *fakeDismiss) isEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeClipboard) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fakePaster struct {
	mu       sync.Mutex
	count    int
	err      error
	pastedAt time.Time
}

func (f *fakePaster) Paste(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.pastedAt = time.Now()
	return f.err
}

func (f *fakePaster) lastPaste() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pastedAt
}

func (f *fakePaster) pastes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
}

func (f *fakeHistory) Add(raw, optimized, translated string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := domain.HistoryRecord{Time: "2026-01-02 03:04:05", ASRText: raw, OptimizedText: optimized, TranslatedText: translated}
	f.records = append([]domain.HistoryRecord{record}, f.records...)
	return nil
}

func (f *fakeHistory) UpdateLastTranslation(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return errors.New("empty history")
	}
	f.records[0].TranslatedText = text
	return nil
}

func (f *fakeHistory) Recent(n int) []domain.HistoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.records) {
		n = len(f.records)
	}
	return append([]domain.HistoryRecord(nil), f.records[:n]...)
}

func (f *fakeHistory) all() []domain.HistoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.HistoryRecord(nil), f.records...)
}

type staticSettings struct {
	settings domain.Settings
}

func (s staticSettings) Settings() domain.Settings { return s.settings }

type fakeCues struct {
	mu           sync.Mutex
	starts, ends int
}

func (f *fakeCues) PlayStart() {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
}

func (f *fakeCues) PlayEnd() {
	f.mu.Lock()
	f.ends++
	f.mu.Unlock()
}

type mapGlossary map[string]string

func (g mapGlossary) Apply(text string) (string, error) {
	if replacement, ok := g[text]; ok {
		return replacement, nil
	}
	return text, nil
}

func (g mapGlossary) Terms() []string {
	terms := make([]string, 0, len(g))
	for _, term := range g {
		terms = append(terms, term)
	}
	return terms
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
