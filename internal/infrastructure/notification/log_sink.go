package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
)

// LogSink writes notifications to the application log.
// Used when no chat integration is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed notification sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notifications")}
}

// Notify logs the notification
func (s *LogSink) Notify(ctx context.Context, n port.Notification) error {
	s.logger.Info(n.Title,
		zap.Int64("application_id", n.ApplicationID),
		zap.String("event_type", n.EventType),
		zap.String("body", n.Body))
	return nil
}

// Verify interface compliance
var _ port.NotificationSink = (*LogSink)(nil)
