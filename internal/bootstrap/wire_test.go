package bootstrap

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mouthwrite/internal/audio"
	"mouthwrite/internal/config"
	"mouthwrite/internal/domain"
	"mouthwrite/internal/input"
)

func TestBuildSuccess(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOUTHWRITE_CONFIG_FILE", filepath.Join(dir, "config.json"))
	t.Setenv("MOUTHWRITE_LLM_API_KEY", "sk-test")

	services, err := Build(noopDisplay{}, quietLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if services.Controller == nil || services.Listener == nil || services.Hook == nil {
		t.Fatalf("expected wired services: %+v", services)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("expected default config written: %v", err)
	}
	if got := services.Config.Settings().LLM.APIKey; got != "sk-test" {
		t.Fatalf("env override not applied: %q", got)
	}
	if got := services.StartupMessage(); got != "Hold alt_r to dictate." {
		t.Fatalf("unexpected startup message: %q", got)
	}
}

func TestBuildFailsOnInvalidGlossary(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "glossary.txt")
	if err := os.WriteFile(words, []byte("not a valid entry\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("MOUTHWRITE_CONFIG_FILE", filepath.Join(dir, "config.json"))
	t.Setenv("MOUTHWRITE_GLOSSARY_FILE", words)

	if _, err := Build(noopDisplay{}, quietLogger()); err == nil {
		t.Fatalf("expected build error due to invalid glossary")
	}
}

func TestApplyConfigRebindsHotkeyAndReloadsGlossary(t *testing.T) {
	dir := t.TempDir()
	words := filepath.Join(dir, "glossary.txt")
	if err := os.WriteFile(words, []byte("pie torch => PyTorch\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("MOUTHWRITE_CONFIG_FILE", filepath.Join(dir, "config.json"))
	t.Setenv("MOUTHWRITE_GLOSSARY_FILE", words)

	services, err := Build(noopDisplay{}, quietLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if err := os.WriteFile(words, []byte("pie torch => PyTorch\ncooda => CUDA\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	services.applyConfig(config.Config{
		Hotkey:            "f9",
		TranslateModifier: "shift_r",
		Glossary:          config.GlossaryConfig{Path: words},
	})

	if got := services.Listener.Hotkey(); got != "f9" {
		t.Fatalf("hotkey not rebound: %q", got)
	}
	if services.Glossary.Len() != 2 {
		t.Fatalf("glossary not reloaded: %d entries", services.Glossary.Len())
	}
}

func TestNewCaptureSelectsBackend(t *testing.T) {
	t.Parallel()

	logger := quietLogger()
	if _, ok := newCapture(config.AudioConfig{Backend: " FFmpeg "}, logger).(*audio.FFMPEGCapture); !ok {
		t.Fatalf("expected ffmpeg capture")
	}
	if _, ok := newCapture(config.AudioConfig{Backend: "portaudio"}, logger).(*audio.PortAudioCapture); !ok {
		t.Fatalf("expected portaudio capture")
	}
	if _, ok := newCapture(config.AudioConfig{}, logger).(*audio.PortAudioCapture); !ok {
		t.Fatalf("expected portaudio as the default backend")
	}
}

func TestStopInputReleasesBlockedListener(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOUTHWRITE_CONFIG_FILE", filepath.Join(dir, "config.json"))

	services, err := Build(noopDisplay{}, quietLogger())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	code := input.ResolveBinding(services.Listener.Hotkey(), input.DefaultHotkey).Codes[0]
	for i := 0; i < cap(services.Listener.Events())/2; i++ {
		services.Listener.HandleKeyDown(code)
		services.Listener.HandleKeyUp(code)
	}

	services.stopInput()

	done := make(chan struct{})
	go func() {
		services.Listener.HandleKeyDown(code)
		services.Listener.HandleKeyUp(code)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("listener still blocks on a full buffer after stop")
	}
}

type noopDisplay struct{}

func (noopDisplay) Clear()                                                      {}
func (noopDisplay) SetState(_ domain.SessionState, _ domain.SessionStateReason) {}
func (noopDisplay) AddBlock(_ domain.BlockKind)                                 {}
func (noopDisplay) SetBlockText(_ domain.BlockKind, _ string)                   {}
func (noopDisplay) AppendToBlock(_ domain.BlockKind, _ string)                  {}
func (noopDisplay) ShowCopied(_ domain.BlockKind)                               {}
func (noopDisplay) SetStatus(_ string)                                          {}
func (noopDisplay) MarkTranslated()                                             {}
func (noopDisplay) SessionError(_ domain.ErrorCode, _ string)                   {}
func (noopDisplay) Show()                                                       {}
func (noopDisplay) Close()                                                      {}
func (noopDisplay) IsVisible() bool                                             { return false }
func (noopDisplay) IsActive() bool                                              { return false }
func (noopDisplay) Bounds() domain.Rect                                         { return domain.Rect{} }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
