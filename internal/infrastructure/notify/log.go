package notify

import (
	"context"
	"log/slog"

	"LocaleAudit/internal/ports"
)

// LogNotifier writes notifications to the application log. It is the
// fallback when no delivery channel is configured, so the absence of a
// backing notification system never fails a run.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier wires the target logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification and always succeeds.
func (n *LogNotifier) Notify(_ context.Context, title, body string) error {
	if n.logger != nil {
		n.logger.Info("notification", "title", title, "body", body)
	}
	return nil
}
