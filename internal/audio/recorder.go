package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"mouthwrite/internal/ports"
)

const (
	DefaultSampleRate = 16000
	bitDepth          = 16
	wavPCMFormat      = 1
)

// Recorder buffers microphone frames between Start and Stop and renders them as WAV.
type Recorder struct {
	capture ports.AudioCapture
	cfg     ports.AudioConfig
	logger  *slog.Logger

	mu        sync.Mutex
	session   ports.AudioSession
	recording bool
	frames    [][]int16
	samples   int
}

func NewRecorder(capture ports.AudioCapture, cfg ports.AudioConfig, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		capture: capture,
		cfg:     withDefaults(cfg),
		logger:  logger.With("component", "audio.Recorder"),
	}
}

// Start discards previous audio and opens a new capture stream.
// On failure capture stays inactive.
func (r *Recorder) Start(ctx context.Context) error {
	_ = r.Stop()

	r.mu.Lock()
	r.frames = nil
	r.samples = 0
	r.recording = true
	r.mu.Unlock()

	session, err := r.capture.Start(ctx, r.cfg, r.appendFrame)
	if err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return fmt.Errorf("open microphone: %w", err)
	}

	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
	return nil
}

// Stop closes the capture stream. Calling it again is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	session := r.session
	r.session = nil
	r.recording = false
	r.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Stop(); err != nil {
		r.logger.Warn("audio capture did not stop cleanly", "error", err)
		return err
	}
	return nil
}

func (r *Recorder) appendFrame(frame []int16) {
	if len(frame) == 0 {
		return
	}
	copied := append([]int16(nil), frame...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.frames = append(r.frames, copied)
	r.samples += len(copied)
}

// Duration is the captured sample count over the sample rate.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	perSecond := r.cfg.SampleRate * r.cfg.Channels
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(r.samples) * time.Second / time.Duration(perSecond)
}

// Render encodes the captured frames as a 16-bit PCM WAV and returns it base64 encoded.
// It returns "" when nothing was captured.
func (r *Recorder) Render() (string, error) {
	r.mu.Lock()
	data := make([]int, 0, r.samples)
	for _, frame := range r.frames {
		for _, sample := range frame {
			data = append(data, int(sample))
		}
	}
	cfg := r.cfg
	r.mu.Unlock()

	if len(data) == 0 {
		return "", nil
	}

	encoded, err := encodeWAV(data, cfg.SampleRate, cfg.Channels)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}

// encodeWAV writes through a temp file because the encoder seeks back to patch the header.
func encodeWAV(data []int, sampleRate int, channels int) (out []byte, err error) {
	file, err := os.CreateTemp("", "mouthwrite-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}
	path := file.Name()
	defer func() {
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = removeErr
		}
	}()

	enc := wav.NewEncoder(file, sampleRate, bitDepth, channels, wavPCMFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("wav finalize failed: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}

	out, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	return out, nil
}
