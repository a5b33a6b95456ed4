package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mouthwrite/internal/domain"
)

// ErrInvalidKey is returned for dotted keys with empty segments or that
// would descend through a non-object value.
var ErrInvalidKey = errors.New("invalid config key")

// Store is the persistent JSON settings document. Reads and writes are
// serialized; every Set is flushed to disk.
type Store struct {
	path   string
	lookup func(string) (string, bool)
	logger *slog.Logger

	mu   sync.RWMutex
	data map[string]any
}

type StoreOption func(*Store)

// WithLookup replaces the environment lookup used for overrides.
func WithLookup(lookup func(string) (string, bool)) StoreOption {
	return func(s *Store) {
		if lookup != nil {
			s.lookup = lookup
		}
	}
}

// Open loads the document at path, fills in missing defaults and writes the
// merged result back. A missing or unreadable file falls back to defaults.
func Open(path string, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		lookup: os.LookupEnv,
		logger: logger.With("component", "config"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the file. On first load a missing or corrupt file falls
// back to defaults; later reloads keep the current document instead.
func (s *Store) Reload() error {
	data, err := s.readFile()
	if err != nil {
		s.mu.RLock()
		loaded := s.data != nil
		s.mu.RUnlock()
		if loaded {
			return err
		}
		s.logger.Warn("failed to load config, using defaults", "path", s.path, "err", err)
		data = map[string]any{}
	}
	changed := mergeDefaults(data, defaultDocument())

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()

	if changed {
		if err := s.save(); err != nil {
			s.logger.Warn("failed to persist merged config", "path", s.path, "err", err)
		}
	}
	return nil
}

func (s *Store) readFile() (map[string]any, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// Get resolves a dotted key such as "asr.base_url".
func (s *Store) Get(key string) (any, bool) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var current any = s.data
	for _, part := range parts {
		section, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = section[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (s *Store) GetString(key string, fallback string) string {
	value, ok := s.Get(key)
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if !ok {
		return fallback
	}
	return text
}

func (s *Store) GetInt(key string, fallback int) int {
	value, ok := s.Get(key)
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v != math.Trunc(v) {
			return fallback
		}
		return int(v)
	default:
		return fallback
	}
}

func (s *Store) GetBool(key string, fallback bool) bool {
	value, ok := s.Get(key)
	if !ok {
		return fallback
	}
	b, ok := value.(bool)
	if !ok {
		return fallback
	}
	return b
}

// Set writes value at the dotted key, creating intermediate objects, and
// persists the document.
func (s *Store) Set(key string, value any) error {
	parts, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	section := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part]
		if !ok {
			created := map[string]any{}
			section[part] = created
			section = created
			continue
		}
		nested, ok := next.(map[string]any)
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q is not an object", ErrInvalidKey, part)
		}
		section = nested
	}
	section[parts[len(parts)-1]] = value
	s.mu.Unlock()

	return s.save()
}

func (s *Store) save() error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Snapshot builds a typed Config from the document with environment
// overrides layered on top.
func (s *Store) Snapshot() Config {
	lookup := s.lookup
	def := func(key string, fallback string) string {
		return s.GetString(key, fallback)
	}

	cfg := Config{
		Hotkey:            envOrDefault(lookup, "MOUTHWRITE_HOTKEY", def("hotkey", "alt_r")),
		TranslateModifier: def("hotkey_translate_modifier", "ctrl_r"),
		ASR: endpointFrom(lookup, "ASR",
			def("asr.base_url", ""), def("asr.model", ""), def("asr.api_key", ""), def("asr.format", "auto")),
		LLM: endpointFrom(lookup, "LLM",
			def("llm.base_url", ""), def("llm.model", ""), def("llm.api_key", ""), ""),
		Translation: TranslationConfig{
			TargetLanguage: firstNonEmpty(def("translation.target_language", ""), "English"),
		},
		History: HistoryConfig{
			ContextCount: s.GetInt("history.context_count", 5),
			Path:         filepath.Join(filepath.Dir(s.path), "history.json"),
		},
		Optimize: OptimizeConfig{
			Rules: def("optimize.rules", ""),
		},
		Startup: StartupConfig{
			Enabled: s.GetBool("startup.enabled", false),
		},
		Audio: AudioConfig{
			Backend:       envOrDefault(lookup, "MOUTHWRITE_AUDIO_BACKEND", def("audio.backend", "portaudio")),
			SampleRate:    envOrDefaultInt(lookup, "MOUTHWRITE_SAMPLE_RATE", s.GetInt("audio.sample_rate", 16000)),
			Channels:      1,
			InputFormat:   def("audio.input_format", "pulse"),
			InputDevice:   envOrDefault(lookup, "MOUTHWRITE_AUDIO_INPUT_DEVICE", def("audio.input_device", "default")),
			FFMPEGCommand: envOrDefault(lookup, "MOUTHWRITE_FFMPEG_COMMAND", def("audio.ffmpeg_command", "ffmpeg")),
			StartCue:      def("audio.start_cue", ""),
			EndCue:        def("audio.end_cue", ""),
		},
		Glossary: GlossaryConfig{
			Path:           envOrDefault(lookup, "MOUTHWRITE_GLOSSARY_FILE", def("glossary.path", "")),
			IterationLimit: s.GetInt("glossary.iteration_limit", 30),
		},
	}

	if cfg.History.ContextCount < 0 {
		cfg.History.ContextCount = 0
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Glossary.IterationLimit <= 0 {
		cfg.Glossary.IterationLimit = 30
	}
	cfg.Startup.Enabled = envOrDefaultBool(lookup, "MOUTHWRITE_STARTUP", cfg.Startup.Enabled)
	return cfg
}

// Settings is a shortcut for Snapshot().Settings().
func (s *Store) Settings() domain.Settings {
	return s.Snapshot().Settings()
}

func endpointFrom(lookup func(string) (string, bool), prefix, baseURL, model, apiKey, format string) domain.Endpoint {
	return domain.Endpoint{
		BaseURL: envOrDefault(lookup, "MOUTHWRITE_"+prefix+"_BASE_URL", baseURL),
		Model:   envOrDefault(lookup, "MOUTHWRITE_"+prefix+"_MODEL", model),
		APIKey:  envOrDefault(lookup, "MOUTHWRITE_"+prefix+"_API_KEY", apiKey),
		Format:  format,
	}
}

func splitKey(key string) ([]string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	parts := strings.Split(key, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return parts, nil
}
