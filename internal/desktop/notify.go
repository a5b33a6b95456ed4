package desktop

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const notifyTitle = "MouthWrite"

// Notifier posts desktop notifications. Failures are logged and dropped.
type Notifier struct {
	logger *slog.Logger
	send   func(title, message string) error
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger: logger.With("component", "notifier"),
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (n *Notifier) Notify(message string) {
	if err := n.send(notifyTitle, message); err != nil {
		n.logger.Warn("notification failed", "err", err)
	}
}
