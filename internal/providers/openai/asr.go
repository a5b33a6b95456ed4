package openai

import (
	"context"
	"net/url"
	"strings"
	"time"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

// PayloadVariant selects how audio is embedded in an ASR request.
type PayloadVariant string

const (
	// VariantAudioURL is the vLLM-style audio_url content part.
	VariantAudioURL PayloadVariant = "audio_url"
	// VariantInputAudio is the DashScope-style input_audio content part with asr_options.
	VariantInputAudio PayloadVariant = "input_audio"

	FormatAuto = "auto"
)

// inputAudioHostMarkers lists host fragments of providers that expect input_audio.
var inputAudioHostMarkers = []string{"dashscope", "aliyuncs"}

// DetectVariant chooses the payload variant from the endpoint host.
// Hosts matching no marker get the default audio_url shape.
func DetectVariant(baseURL string) PayloadVariant {
	host := strings.ToLower(endpointHost(baseURL))
	for _, marker := range inputAudioHostMarkers {
		if strings.Contains(host, marker) {
			return VariantInputAudio
		}
	}
	return VariantAudioURL
}

// ResolveVariant applies an explicit format override before falling back to host detection.
func ResolveVariant(endpoint domain.Endpoint) PayloadVariant {
	switch PayloadVariant(strings.ToLower(strings.TrimSpace(endpoint.Format))) {
	case VariantAudioURL:
		return VariantAudioURL
	case VariantInputAudio:
		return VariantInputAudio
	default:
		return DetectVariant(endpoint.BaseURL)
	}
}

func endpointHost(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return baseURL
	}
	return parsed.Hostname()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	Messages    []chatMessage `json:"messages"`
	ASROptions  *asrOptions   `json:"asr_options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	AudioURL   *audioURL   `json:"audio_url,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type audioURL struct {
	URL string `json:"url"`
}

type inputAudio struct {
	Data string `json:"data"`
}

type asrOptions struct {
	EnableITN bool `json:"enable_itn"`
}

func buildASRRequest(endpoint domain.Endpoint, audioBase64 string) chatRequest {
	dataURI := "data:audio/wav;base64," + audioBase64

	if ResolveVariant(endpoint) == VariantInputAudio {
		return chatRequest{
			Model:  endpoint.Model,
			Stream: true,
			Messages: []chatMessage{{
				Role: "user",
				Content: []contentPart{{
					Type:       string(VariantInputAudio),
					InputAudio: &inputAudio{Data: dataURI},
				}},
			}},
			ASROptions: &asrOptions{EnableITN: false},
		}
	}

	temperature := 0.0
	return chatRequest{
		Model:       endpoint.Model,
		Stream:      true,
		Temperature: &temperature,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{{
				Type:     string(VariantAudioURL),
				AudioURL: &audioURL{URL: dataURI},
			}},
		}},
	}
}

// Transcriber implements ports.Transcriber over the chat completions API.
type Transcriber struct {
	client      *Client
	readTimeout time.Duration
}

func NewTranscriber(client *Client, readTimeout time.Duration) *Transcriber {
	if readTimeout <= 0 {
		readTimeout = DefaultTranscribeReadTimeout
	}
	return &Transcriber{client: client, readTimeout: readTimeout}
}

// Transcribe starts an ASR stream. Its final text has control tags removed.
func (t *Transcriber) Transcribe(ctx context.Context, endpoint domain.Endpoint, audioBase64 string) (ports.TextStream, error) {
	stream, err := t.client.stream(ctx, endpoint, buildASRRequest(endpoint, audioBase64), t.readTimeout, domain.CleanTranscript)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
