package usecase

import (
	"context"

	"github.com/google/uuid"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

type stage int

const (
	stageASR stage = iota + 1
	stageOptimize
	stageTranslate
)

func (s stage) String() string {
	switch s {
	case stageASR:
		return "asr"
	case stageOptimize:
		return "optimize"
	case stageTranslate:
		return "translate"
	default:
		return "unknown"
	}
}

func (s stage) block() domain.BlockKind {
	switch s {
	case stageOptimize:
		return domain.BlockOptimize
	case stageTranslate:
		return domain.BlockTranslate
	default:
		return domain.BlockASR
	}
}

type eventKind int

const (
	eventInput eventKind = iota + 1
	eventDelta
	eventFinished
	eventStartOptimize
	eventPaste
	eventArmDismiss
	eventPointerDismiss
	eventTranslate
	eventWindowClosed
)

// loopEvent is everything the loop goroutine reacts to. Timer events carry
// the generation that scheduled them; worker events carry the worker id.
type loopEvent struct {
	kind       eventKind
	input      domain.InputEvent
	generation uint64
	worker     uint64
	text       string
	err        error
}

// worker is the single in-flight streaming request.
type worker struct {
	id      uint64
	stage   stage
	cancel  context.CancelFunc
	abandon chan struct{}
	done    chan struct{}
}

// session holds per-press state. It is owned by the loop goroutine.
type session struct {
	id         string
	settings   domain.Settings
	transcript *transcriptAggregator
	raw        string
	optimized  string
	combo      bool
	translated bool
	// pasting is set from delivery until dismiss-mode may be re-armed.
	pasting bool
}

func newSession(settings domain.Settings) session {
	return session{id: uuid.NewString(), settings: settings, transcript: newTranscriptAggregator()}
}

// text is what translation works from.
func (s session) text() string {
	if s.optimized != "" {
		return s.optimized
	}
	return s.raw
}

type nopCues struct{}

func (nopCues) PlayStart() {}
func (nopCues) PlayEnd()   {}

type nopGlossary struct{}

func (nopGlossary) Apply(text string) (string, error) { return text, nil }
func (nopGlossary) Terms() []string                   { return nil }

var (
	_ ports.CuePlayer = nopCues{}
	_ ports.Glossary  = nopGlossary{}
)
