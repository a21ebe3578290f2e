// Package service produces trust reports: it validates the descriptor,
// consults the report cache, fans out to providers, aggregates the outcomes
// and records the result.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"landtrust/internal/verification/audit"
	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/metrics"
	"landtrust/internal/verification/models"
	"landtrust/internal/verification/orchestrator"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/scoring"
	"landtrust/internal/verification/store"
	"landtrust/internal/verification/tracer"
	dErrors "landtrust/pkg/domain-errors"
	"landtrust/pkg/requestcontext"
)

// persistTimeout bounds cache, history and audit writes after the report is
// built. They run detached from request cancellation.
const persistTimeout = 3 * time.Second

// Coordinator runs the configured providers for a descriptor.
type Coordinator interface {
	Run(ctx context.Context, d identity.Descriptor) []orchestrator.Outcome
	Providers() []providers.Provider
	CircuitState(providerID string) string
}

// Cache stores recent reports by descriptor fingerprint.
type Cache interface {
	Find(ctx context.Context, key string) (*models.TrustReport, error)
	Save(ctx context.Context, key string, report *models.TrustReport) error
}

// History records every produced report.
type History interface {
	Record(ctx context.Context, descriptorHash string, report *models.TrustReport) error
	ListByDescriptor(ctx context.Context, descriptorHash string, limit int) ([]store.HistoryEntry, error)
}

type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event) error
}

type Service struct {
	coordinator Coordinator
	cache       Cache
	history     History
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithCache enables report caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHistory enables report history.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithAuditor enables audit events.
func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates the service. Panics if coordinator is nil.
func New(coordinator Coordinator, opts ...Option) *Service {
	if coordinator == nil {
		panic("service.New: coordinator is required")
	}
	s := &Service{
		coordinator: coordinator,
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify builds a trust report for d. The only error it returns is a
// validation error; provider, cache, history and audit failures degrade the
// report or are logged.
func (s *Service) Verify(ctx context.Context, d identity.Descriptor) (report *models.TrustReport, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify)
	defer func() { span.End(err) }()

	d.Normalize()
	if err := d.Validate(); err != nil {
		s.recordResult(metrics.ResultInvalid)
		return nil, err
	}

	hash := d.Fingerprint()
	span.SetAttributes(tracer.String(tracer.AttrDescriptorHash, hash))

	if cached := s.lookup(ctx, hash); cached != nil {
		cached.Cached = true
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		s.recordResult(metrics.ResultCached)
		return cached, nil
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	s.logger.InfoContext(ctx, "verifying descriptor",
		"descriptor", d,
		"request_id", requestcontext.RequestID(ctx),
	)

	outcomes := s.coordinator.Run(ctx, d)
	built := scoring.Aggregate(outcomes)
	built.ReportID = uuid.NewString()
	built.CheckedAt = requestcontext.Now(ctx).UTC()
	report = &built

	span.SetAttributes(
		tracer.Int64(tracer.AttrTrustScore, int64(report.TrustScore)),
		tracer.Int64(tracer.AttrProviderCount, int64(report.ProvidersInvoked)),
	)
	s.persist(ctx, span, hash, report, failedCount(outcomes) == 0)

	s.recordResult(metrics.ResultOK)
	if s.metrics != nil {
		s.metrics.ObserveTrustScore(report.TrustScore)
	}
	return report, nil
}

// Providers lists the enabled providers in invocation order.
func (s *Service) Providers() []models.ProviderInfo {
	provs := s.coordinator.Providers()
	out := make([]models.ProviderInfo, 0, len(provs))
	for i, p := range provs {
		req := p.Requirements()
		out = append(out, models.ProviderInfo{
			ID:           p.ID(),
			Order:        i + 1,
			AllOf:        fieldNames(req.AllOf),
			AnyOf:        fieldNames(req.AnyOf),
			CircuitState: s.coordinator.CircuitState(p.ID()),
		})
	}
	return out
}

// History returns past reports for d, newest first.
func (s *Service) History(ctx context.Context, d identity.Descriptor, limit int) ([]store.HistoryEntry, error) {
	if s.history == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "report history is not enabled")
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByDescriptor(ctx, d.Fingerprint(), limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list report history")
	}
	return entries, nil
}

func (s *Service) lookup(ctx context.Context, hash string) *models.TrustReport {
	if s.cache == nil {
		return nil
	}
	report, err := s.cache.Find(ctx, hash)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "report cache lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		s.recordCache(false)
		return nil
	}
	s.recordCache(true)
	return report
}

// persist stores the report. A report degraded by provider failures is
// recorded and audited but not cached, so a re-issued request runs the
// providers again.
func (s *Service) persist(ctx context.Context, span tracer.Span, hash string, report *models.TrustReport, cacheable bool) {
	requestID := requestcontext.RequestID(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if s.cache != nil && cacheable {
		if err := s.cache.Save(ctx, hash, report); err != nil {
			s.logger.WarnContext(ctx, "failed to cache report",
				"error", err, "report_id", report.ReportID, "request_id", requestID)
		}
	}
	if s.history != nil {
		if err := s.history.Record(ctx, hash, report); err != nil {
			s.logger.WarnContext(ctx, "failed to record report history",
				"error", err, "report_id", report.ReportID, "request_id", requestID)
		}
	}
	if s.auditor != nil {
		if err := s.auditor.Publish(ctx, audit.NewEvent(hash, requestID, report)); err != nil {
			s.logger.WarnContext(ctx, "failed to publish audit event",
				"error", err, "report_id", report.ReportID, "request_id", requestID)
			return
		}
		span.AddEvent(tracer.EventAuditEmitted)
	}
}

func (s *Service) recordResult(result string) {
	if s.metrics != nil {
		s.metrics.RecordVerification(result)
	}
}

func (s *Service) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()
	}
}

func failedCount(outcomes []orchestrator.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

func fieldNames(fields []providers.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
