package config

// defaultDocument returns a fresh copy of the built-in settings tree.
func defaultDocument() map[string]any {
	return map[string]any{
		"hotkey":                    "alt_r",
		"hotkey_translate_modifier": "ctrl_r",
		"asr": map[string]any{
			"base_url": "http://localhost:8000/v1",
			"model":    "Qwen/Qwen3-ASR-1.7B",
			"api_key":  "EMPTY",
			"format":   "auto",
		},
		"llm": map[string]any{
			"base_url": "https://api.deepseek.com/v1",
			"model":    "deepseek-chat",
			"api_key":  "",
		},
		"translation": map[string]any{
			"target_language": "English",
		},
		"history": map[string]any{
			"context_count": 5,
		},
		"optimize": map[string]any{
			"rules": "",
		},
		"startup": map[string]any{
			"enabled": false,
		},
		"audio": map[string]any{
			"backend":        "portaudio",
			"sample_rate":    16000,
			"input_format":   "pulse",
			"input_device":   "default",
			"ffmpeg_command": "ffmpeg",
			"start_cue":      "",
			"end_cue":        "",
		},
		"glossary": map[string]any{
			"path":            "",
			"iteration_limit": 30,
		},
	}
}

// mergeDefaults fills keys missing from data, recursing into nested sections.
// Existing values, including ones of an unexpected type, are kept.
func mergeDefaults(data map[string]any, defaults map[string]any) bool {
	changed := false
	for key, def := range defaults {
		current, ok := data[key]
		if !ok {
			data[key] = def
			changed = true
			continue
		}
		defSection, defIsMap := def.(map[string]any)
		section, isMap := current.(map[string]any)
		if defIsMap && isMap {
			if mergeDefaults(section, defSection) {
				changed = true
			}
		}
	}
	return changed
}
