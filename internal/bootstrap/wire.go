package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mouthwrite/internal/audio"
	"mouthwrite/internal/config"
	"mouthwrite/internal/desktop"
	"mouthwrite/internal/glossary"
	"mouthwrite/internal/history"
	"mouthwrite/internal/input"
	"mouthwrite/internal/ports"
	"mouthwrite/internal/providers/openai"
	"mouthwrite/internal/usecase"
)

const backendFFMPEG = "ffmpeg"

// Services is the assembled runtime graph.
type Services struct {
	Config     *config.Store
	History    *history.Store
	Glossary   *glossary.Glossary
	Listener   *input.Listener
	Hook       *input.Hook
	Notifier   *desktop.Notifier
	Controller *usecase.SessionController

	logger *slog.Logger
}

// Build wires all backend dependencies around display. The config file
// location honours MOUTHWRITE_CONFIG_FILE.
func Build(display ports.Display, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := config.DefaultPath(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	store, err := config.Open(path, logger)
	if err != nil {
		return nil, err
	}
	cfg := store.Snapshot()

	records, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		return nil, err
	}

	words, err := glossary.Load(cfg.Glossary.Path, cfg.Glossary.IterationLimit, logger)
	if err != nil {
		return nil, err
	}

	httpClient, err := openai.NewHTTPClient(openai.DefaultConnectTimeout)
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(httpClient, logger)
	listener := input.NewListener(cfg.Hotkey, cfg.TranslateModifier, logger)

	controller := usecase.NewSessionController(usecase.Deps{
		Recorder:    audio.NewRecorder(newCapture(cfg.Audio, logger), audioConfig(cfg.Audio), logger),
		Transcriber: openai.NewTranscriber(client, openai.DefaultTranscribeReadTimeout),
		Completer:   openai.NewCompleter(client, openai.DefaultCompleteReadTimeout),
		Glossary:    words,
		Clipboard:   desktop.NewClipboard(),
		Paster:      desktop.NewPaster(logger),
		Cues:        audio.NewCuePlayer(cfg.Audio.StartCue, cfg.Audio.EndCue, logger),
		History:     records,
		Settings:    store,
		Dismiss:     listener,
		Display:     display,
		Logger:      logger,
	}, usecase.Config{})

	return &Services{
		Config:     store,
		History:    records,
		Glossary:   words,
		Listener:   listener,
		Hook:       input.NewHook(listener, logger),
		Notifier:   desktop.NewNotifier(logger),
		Controller: controller,
		logger:     logger.With("component", "bootstrap.Services"),
	}, nil
}

// Run installs the input hook, follows config edits and drives the session
// loop until ctx is done.
func (s *Services) Run(ctx context.Context) error {
	// The hook outlives ctx until the listener is closed, so its dispatch
	// goroutines never block on a full event buffer while stopping.
	hookCtx, cancelHook := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHook()
	s.Hook.Start(hookCtx)

	go func() {
		if err := s.Config.Watch(ctx, s.applyConfig); err != nil {
			s.logger.Warn("config watch unavailable", "err", err)
		}
	}()

	err := s.Controller.Run(ctx, s.Listener.Events())
	s.stopInput()
	return err
}

// stopInput unblocks pending listener sends before waiting on the hook.
func (s *Services) stopInput() {
	s.Listener.Close()
	s.Hook.Stop()
}

// applyConfig picks up settings that outlive a single session. Endpoints and
// prompts are read per session and need nothing here.
func (s *Services) applyConfig(cfg config.Config) {
	s.Listener.UpdateBinding(cfg.Hotkey, cfg.TranslateModifier)

	if strings.TrimSpace(cfg.Glossary.Path) != s.Glossary.Path() {
		s.logger.Warn("glossary path changed, restart to apply", "path", cfg.Glossary.Path)
		return
	}
	if err := s.Glossary.Reload(); err != nil {
		s.logger.Warn("glossary reload failed", "err", err)
	}
}

// StartupMessage is the toast shown once the hook is installed.
func (s *Services) StartupMessage() string {
	return fmt.Sprintf("Hold %s to dictate.", s.Listener.Hotkey())
}

func newCapture(cfg config.AudioConfig, logger *slog.Logger) ports.AudioCapture {
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), backendFFMPEG) {
		return audio.NewFFMPEGCapture(cfg.FFMPEGCommand, logger)
	}
	return audio.NewPortAudioCapture(logger)
}

func audioConfig(cfg config.AudioConfig) ports.AudioConfig {
	return ports.AudioConfig{
		SampleRate:  cfg.SampleRate,
		Channels:    cfg.Channels,
		InputFormat: cfg.InputFormat,
		InputDevice: cfg.InputDevice,
	}
}
