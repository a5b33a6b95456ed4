package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"mouthwrite/internal/ports"
)

const framesPerBuffer = 1024

// PortAudioCapture records from a PortAudio input device using the callback API.
type PortAudioCapture struct {
	logger *slog.Logger
}

func NewPortAudioCapture(logger *slog.Logger) *PortAudioCapture {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortAudioCapture{logger: logger.With("component", "audio.PortAudioCapture")}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig, onFrame func([]int16)) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	params, err := c.inputParameters(cfg)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		onFrame(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	session := &portaudioSession{stream: stream, stopped: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Stop()
		case <-session.stopped:
		}
	}()
	return session, nil
}

func (c *PortAudioCapture) inputParameters(cfg ports.AudioConfig) (portaudio.StreamParameters, error) {
	device, err := c.findDevice(cfg.InputDevice)
	if err != nil {
		return portaudio.StreamParameters{}, err
	}
	if device.MaxInputChannels == 0 {
		return portaudio.StreamParameters{}, fmt.Errorf("device %q has no input channels", device.Name)
	}

	c.logger.Debug("using audio device",
		"deviceName", device.Name,
		"sampleRate", cfg.SampleRate,
		"inputChannels", cfg.Channels)

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, nil
}

func (c *PortAudioCapture) findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || strings.EqualFold(name, "default") {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	for _, device := range devices {
		if device.MaxInputChannels > 0 && strings.Contains(strings.ToLower(device.Name), strings.ToLower(name)) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

type portaudioSession struct {
	stream  *portaudio.Stream
	stopped chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func (s *portaudioSession) Stop() error {
	s.stopOnce.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.stopErr = fmt.Errorf("failed to stop audio stream: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.stopErr == nil {
			s.stopErr = fmt.Errorf("failed to close audio stream: %w", err)
		}
		_ = portaudio.Terminate()
		close(s.stopped)
	})
	return s.stopErr
}
