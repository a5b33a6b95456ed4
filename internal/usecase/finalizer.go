package usecase

import (
	"errors"
	"strings"

	"mouthwrite/internal/domain"
)

var (
	errNoSpeech      = errors.New("no speech recognized")
	errEmptyResponse = errors.New("model returned an empty response")
)

func (c *SessionController) finishASR(text string) {
	c.display.SetBlockText(domain.BlockASR, text)
	if text == "" {
		c.display.SessionError(domain.ErrorCodeTranscription, errNoSpeech.Error())
		c.display.SetStatus("No speech recognized")
		c.setState(domain.SessionStateError, domain.SessionReasonNoSpeech)
		c.arm()
		return
	}

	raw, err := c.glossary.Apply(text)
	if err != nil {
		c.logger.Warn("glossary apply failed", "err", err)
		raw = text
	}
	if raw != text {
		c.display.SetBlockText(domain.BlockASR, raw)
	}
	c.current.raw = raw

	if !c.current.settings.LLM.HasCredential() {
		c.recordHistory(raw, raw)
		c.deliver(raw, domain.BlockASR, domain.SessionReasonTranscriptCopied)
		return
	}
	c.after(c.cfg.OptimizeDelay, eventStartOptimize)
}

func (c *SessionController) finishOptimize(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.failStage(stageOptimize, errEmptyResponse)
		return
	}
	c.current.optimized = text
	c.recordHistory(c.current.raw, text)
	c.deliver(text, domain.BlockOptimize, domain.SessionReasonTranscriptCopied)
}

func (c *SessionController) finishTranslate(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.failStage(stageTranslate, errEmptyResponse)
		return
	}
	c.copy(text)
	if c.history != nil {
		if err := c.history.UpdateLastTranslation(text); err != nil {
			c.logger.Warn("history update failed", "err", err)
			c.display.SessionError(domain.ErrorCodeHistory, err.Error())
		}
	}
	c.setTranslated(true)
	c.setState(domain.SessionStateDone, domain.SessionReasonTranslationCopied)
	c.display.MarkTranslated()
	c.display.SetStatus("Translation copied")
	c.display.ShowCopied(domain.BlockTranslate)
	if !c.current.pasting {
		c.arm()
	}
}

// deliver copies text, shows it as done and schedules the paste. Dismiss-mode
// stays off until the paste keystroke has drained.
func (c *SessionController) deliver(text string, block domain.BlockKind, reason domain.SessionStateReason) {
	c.copy(text)
	c.setState(domain.SessionStateDone, reason)
	c.display.ShowCopied(block)
	c.current.pasting = true
	c.after(c.cfg.PasteDelay, eventPaste)
}

func (c *SessionController) paste() {
	if c.display.IsActive() {
		c.logger.Debug("status window focused, skipping paste")
	} else if err := c.paster.Paste(c.ctx); err != nil {
		c.logger.Warn("paste failed", "err", err)
		c.display.SessionError(domain.ErrorCodePaste, err.Error())
	}

	c.after(c.cfg.DismissGrace, eventArmDismiss)
	if c.current.combo && c.state == domain.SessionStateDone {
		// pasting stays set so a fast translation leaves arming to the grace timer
		c.current.combo = false
		c.translate()
	}
}

func (c *SessionController) copy(text string) {
	if err := c.clipboard.SetText(c.ctx, text); err != nil {
		c.logger.Warn("clipboard write failed", "err", err)
		c.display.SessionError(domain.ErrorCodeClipboard, "text ready but clipboard write failed")
	}
}

func (c *SessionController) recordHistory(raw, optimized string) {
	if c.history == nil {
		return
	}
	if err := c.history.Add(raw, optimized, ""); err != nil {
		c.logger.Warn("history write failed", "err", err)
		c.display.SessionError(domain.ErrorCodeHistory, err.Error())
	}
}
