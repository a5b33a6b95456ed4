package usecase

import (
	"context"
	"time"

	"mouthwrite/internal/domain"
	"mouthwrite/internal/ports"
)

// startWorker runs one streaming request. Its deltas and result come back to
// the loop as events tagged with the worker id.
func (c *SessionController) startWorker(st stage, open func(ctx context.Context) (ports.TextStream, error)) {
	c.cancelWorker()

	ctx, cancel := context.WithCancel(c.ctx)
	stream, err := open(ctx)
	if err != nil {
		cancel()
		c.logger.Error("stream start failed", "stage", st, "err", err)
		c.failStage(st, err)
		return
	}

	c.nextWorker++
	w := &worker{
		id:      c.nextWorker,
		stage:   st,
		cancel:  cancel,
		abandon: make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.worker = w

	go func() {
		defer close(w.done)
		defer cancel()
		defer stream.Close()

		for delta := range stream.Deltas() {
			if !c.postFromWorker(w, loopEvent{kind: eventDelta, worker: w.id, text: delta}) {
				return
			}
		}
		text, err := stream.Wait()
		c.postFromWorker(w, loopEvent{kind: eventFinished, worker: w.id, text: text, err: err})
	}()
}

func (c *SessionController) postFromWorker(w *worker, ev loopEvent) bool {
	select {
	case <-c.stopped:
		return false
	case <-w.abandon:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-w.abandon:
		return false
	case <-c.stopped:
		return false
	}
}

// cancelWorker cancels the in-flight worker and waits for it, bounded by JoinTimeout.
func (c *SessionController) cancelWorker() {
	w := c.worker
	if w == nil {
		return
	}
	c.worker = nil
	close(w.abandon)
	w.cancel()

	timer := time.NewTimer(c.cfg.JoinTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-timer.C:
		c.logger.Warn("worker did not stop in time", "stage", w.stage, "worker", w.id)
	}
}

func (c *SessionController) handleWorker(ev loopEvent) {
	w := c.worker
	if w == nil || w.id != ev.worker {
		c.logger.Debug("dropping stale worker event", "worker", ev.worker)
		return
	}

	if ev.kind == eventDelta {
		c.onDelta(w.stage, ev.text)
		return
	}

	c.worker = nil
	if ev.err != nil {
		c.logger.Warn("stream failed", "stage", w.stage, "err", ev.err)
		c.failStage(w.stage, ev.err)
		return
	}
	switch w.stage {
	case stageASR:
		c.finishASR(ev.text)
	case stageOptimize:
		c.finishOptimize(ev.text)
	case stageTranslate:
		c.finishTranslate(ev.text)
	}
}

func (c *SessionController) onDelta(st stage, delta string) {
	if st == stageASR {
		c.display.SetBlockText(domain.BlockASR, c.current.transcript.Add(delta))
		return
	}
	c.display.AppendToBlock(st.block(), delta)
}

func (c *SessionController) failStage(st stage, err error) {
	switch st {
	case stageASR:
		c.display.SetBlockText(domain.BlockASR, "Recognition failed: "+err.Error())
		c.display.SessionError(domain.ErrorCodeTranscription, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonTranscriptionFailed)
		c.arm()
	case stageOptimize:
		c.display.SetBlockText(domain.BlockOptimize, "Optimization failed: "+err.Error())
		c.display.SetStatus("Optimization failed, using the raw transcript")
		c.display.SessionError(domain.ErrorCodeOptimization, err.Error())
		c.setStatusMessage("optimization failed, using raw transcript")
		c.recordHistory(c.current.raw, c.current.raw)
		c.deliver(c.current.raw, domain.BlockOptimize, domain.SessionReasonOptimizationFailed)
	case stageTranslate:
		c.display.SetBlockText(domain.BlockTranslate, "Translation failed: "+err.Error())
		c.display.SessionError(domain.ErrorCodeTranslation, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonTranslationFailed)
		if !c.current.pasting {
			c.arm()
		}
	}
}
