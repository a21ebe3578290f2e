package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"landtrust/internal/verification/providers"
	"landtrust/pkg/platform/fanout"
	"landtrust/pkg/requestcontext"
)

// Service fans a search out to every configured source.
type Service struct {
	sources []Source
	logger  *slog.Logger
}

func NewService(sources []Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sources: sources, logger: logger}
}

// Search queries all sources concurrently. A failed source contributes an
// entry to Errors and never fails the search.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	text := q.Text()

	tasks := make([]fanout.Task[[]Listing], len(s.sources))
	for i, src := range s.sources {
		tasks[i] = func(ctx context.Context) ([]Listing, error) {
			return src.Search(ctx, text)
		}
	}

	res := &SearchResult{Properties: []Listing{}}
	for i, r := range fanout.SettleAll(ctx, tasks) {
		id := s.sources[i].ID()
		if r.Err != nil {
			s.logger.WarnContext(ctx, "listing source failed",
				"source", id,
				"error", r.Err,
				"latency_ms", r.Latency.Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
			)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", id, reason(r.Err)))
			continue
		}
		res.Properties = append(res.Properties, r.Value...)
	}
	res.Total = len(res.Properties)
	return res, nil
}

// Sources returns the configured source IDs in result order.
func (s *Service) Sources() []string {
	ids := make([]string, len(s.sources))
	for i, src := range s.sources {
		ids[i] = src.ID()
	}
	return ids
}

// reason is the client-safe description of a source failure.
func reason(err error) string {
	var pe *providers.CallError
	if errors.As(err, &pe) {
		return pe.Message
	}
	var panicErr *fanout.PanicError
	if errors.As(err, &panicErr) {
		return "internal error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timeout"
	}
	return "invalid response"
}
