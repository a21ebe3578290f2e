package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. Used when Kafka is not
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"type", event.Type,
		"report_id", event.ReportID,
		"descriptor_hash", event.DescriptorHash,
		"trust_score", event.TrustScore,
		"providers_invoked", event.ProvidersInvoked,
		"request_id", event.RequestID,
	)
	return nil
}
