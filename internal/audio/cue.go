package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/gordonklaus/portaudio"
	"github.com/youpy/go-wav"
)

const (
	startCueFreq = 880.0
	endCueFreq   = 660.0
	cueBeepMilli = 90
)

// CuePlayer plays short start/end sounds without blocking the caller.
// Configured WAV files are played through PortAudio; a system beep is the fallback.
type CuePlayer struct {
	startPath string
	endPath   string
	logger    *slog.Logger

	// beep and playFile are swapped in tests.
	beep     func(freq float64, millis int) error
	playFile func(path string) error

	mu      sync.Mutex
	playing bool
}

func NewCuePlayer(startPath string, endPath string, logger *slog.Logger) *CuePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CuePlayer{
		startPath: startPath,
		endPath:   endPath,
		logger:    logger.With("component", "audio.CuePlayer"),
		beep:      beeep.Beep,
		playFile:  playWAV,
	}
}

func (p *CuePlayer) PlayStart() {
	go p.play(p.startPath, startCueFreq)
}

func (p *CuePlayer) PlayEnd() {
	go p.play(p.endPath, endCueFreq)
}

// play drops a cue when another one is still sounding.
func (p *CuePlayer) play(path string, freq float64) {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}()

	if path != "" {
		err := p.playFile(path)
		if err == nil {
			return
		}
		p.logger.Warn("cue playback failed, falling back to beep", "path", path, "error", err)
	}
	if err := p.beep(freq, cueBeepMilli); err != nil {
		p.logger.Debug("cue beep failed", "error", err)
	}
}

func playWAV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cue file: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return fmt.Errorf("failed to read cue format: %w", err)
	}
	if format.BitsPerSample != bitDepth {
		return fmt.Errorf("unsupported cue bit depth %d", format.BitsPerSample)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return fmt.Errorf("unsupported cue channel count %d", format.NumChannels)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	channels := int(format.NumChannels)
	finished := make(chan struct{})
	var once sync.Once

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(format.SampleRate), framesPerBuffer,
		func(out []int16) {
			samples, err := reader.ReadSamples(uint32(len(out) / channels))
			written := 0
			for _, sample := range samples {
				for ch := 0; ch < channels && written < len(out); ch++ {
					out[written] = int16(sample.Values[ch])
					written++
				}
			}
			for i := written; i < len(out); i++ {
				out[i] = 0
			}
			if err != nil || len(samples) == 0 {
				once.Do(func() { close(finished) })
			}
		},
	)
	if err != nil {
		return fmt.Errorf("failed to open cue stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start cue stream: %w", err)
	}
	<-finished
	if err := stream.Stop(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to stop cue stream: %w", err)
	}
	return nil
}
