package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mouthwrite/internal/domain"
)

const appDirName = "MouthWrite"

// Config is a typed snapshot of the stored settings with environment overrides applied.
type Config struct {
	Hotkey            string
	TranslateModifier string
	ASR               domain.Endpoint
	LLM               domain.Endpoint
	Translation       TranslationConfig
	History           HistoryConfig
	Optimize          OptimizeConfig
	Startup           StartupConfig
	Audio             AudioConfig
	Glossary          GlossaryConfig
}

type TranslationConfig struct {
	TargetLanguage string
}

type HistoryConfig struct {
	ContextCount int
	Path         string
}

type OptimizeConfig struct {
	Rules string
}

type StartupConfig struct {
	Enabled bool
}

type AudioConfig struct {
	Backend       string
	SampleRate    int
	Channels      int
	InputFormat   string
	InputDevice   string
	FFMPEGCommand string
	StartCue      string
	EndCue        string
}

type GlossaryConfig struct {
	Path           string
	IterationLimit int
}

// Settings projects the snapshot onto what a session needs.
func (c Config) Settings() domain.Settings {
	return domain.Settings{
		ASR:                 c.ASR,
		LLM:                 c.LLM,
		TargetLanguage:      c.Translation.TargetLanguage,
		HistoryContextCount: c.History.ContextCount,
		OptimizeRules:       c.Optimize.Rules,
	}
}

// DefaultPath resolves the config file location. MOUTHWRITE_CONFIG_FILE wins
// over the per-user config directory.
func DefaultPath(lookup func(string) (string, bool)) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if path := envOrDefault(lookup, "MOUTHWRITE_CONFIG_FILE", ""); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("could not determine user config directory")
	}
	return filepath.Join(dir, appDirName, "config.json"), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(lookup func(string) (string, bool), key string, fallback string) string {
	value, ok := lookup(key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(lookup func(string) (string, bool), key string, fallback int) int {
	value := envOrDefault(lookup, key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(lookup func(string) (string, bool), key string, fallback bool) bool {
	value := strings.ToLower(envOrDefault(lookup, key, ""))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
