package transport

import (
	"context"
	"log/slog"
)

// LogSink stands in for Slack and SMTP in deployments without either
// configured. Messages land in the structured log stream instead of
// disappearing.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) SendSlack(ctx context.Context, message string) error {
	s.logger.InfoContext(ctx, "slack notification (log sink)", "message", message)
	return nil
}

func (s *LogSink) SendEmail(ctx context.Context, to, subject, _ string) error {
	s.logger.InfoContext(ctx, "email notification (log sink)", "to", to, "subject", subject)
	return nil
}
