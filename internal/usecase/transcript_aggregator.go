package usecase

import (
	"strings"

	"mouthwrite/internal/domain"
)

// transcriptAggregator accumulates ASR deltas in arrival order.
type transcriptAggregator struct {
	buf strings.Builder
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

// Add appends delta and returns the cleaned transcript so far.
func (a *transcriptAggregator) Add(delta string) string {
	a.buf.WriteString(delta)
	return a.Cleaned()
}

// Raw is the concatenation of every delta, tags included.
func (a *transcriptAggregator) Raw() string {
	return a.buf.String()
}

func (a *transcriptAggregator) Cleaned() string {
	return domain.CleanTranscript(a.buf.String())
}
