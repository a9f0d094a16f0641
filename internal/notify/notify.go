// Package notify delivers hit messages to chat destinations.
package notify

import (
	"context"
	"time"

	"tender_spider/internal/logger"
)

// Notifier sends one text message to one destination.
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// Broadcast sends text to every destination, pausing between them. Failures
// are logged and never abort the loop. It returns the number of destinations
// that accepted the message.
func Broadcast(ctx context.Context, n Notifier, destinations []string, text string, pause time.Duration, log logger.Logger) int {
	if log == nil {
		log = logger.NewNop()
	}
	delivered := 0
	for i, dest := range destinations {
		if i > 0 && !Sleep(ctx, pause) {
			break
		}
		if err := n.Send(ctx, dest, text); err != nil {
			log.Warn("Failed to deliver notification",
				logger.String("destination", dest),
				logger.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, destination, text string) error {
	n.log.Info("Notification (dry run)",
		logger.String("destination", destination),
		logger.String("text", text))
	return nil
}
