package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"mouthwrite/internal/ports"
)

const ffmpegChunkBytes = 2048

// FFMPEGCapture records microphone PCM through an ffmpeg subprocess.
// It is the fallback backend for systems where PortAudio has no usable input.
type FFMPEGCapture struct {
	command string
	logger  *slog.Logger
}

func NewFFMPEGCapture(command string, logger *slog.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFMPEGCapture{command: command, logger: logger.With("component", "audio.FFMPEGCapture")}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig, onFrame func([]int16)) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	session := &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		pumped:  make(chan struct{}),
		logger:  c.logger,
	}

	// The pump must drain stdout before Wait runs, so Wait is deferred to it.
	waitErr := make(chan error, 1)
	go func() {
		session.pump(onFrame)
		waitErr <- cmd.Wait()
		close(waitErr)
	}()
	session.waitErr = waitErr

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	return session, nil
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer
	logger *slog.Logger

	process *os.Process
	waitErr <-chan error
	pumped  chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// pump converts little-endian s16 bytes into frames. An odd trailing byte is
// carried into the next read.
func (s *ffmpegSession) pump(onFrame func([]int16)) {
	defer close(s.pumped)

	buf := make([]byte, ffmpegChunkBytes)
	frame := make([]int16, ffmpegChunkBytes/2)
	carry := 0
	for {
		n, err := s.stdout.Read(buf[carry:])
		n += carry
		samples := n / 2
		for i := 0; i < samples; i++ {
			frame[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		}
		if samples > 0 {
			onFrame(frame[:samples])
		}
		carry = n % 2
		if carry == 1 {
			buf[0] = buf[n-1]
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.logger.Warn("ffmpeg read failed", "error", err)
			}
			return
		}
	}
}

func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}
		<-s.pumped

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, bytes.TrimSpace(s.stderr.Bytes()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}
