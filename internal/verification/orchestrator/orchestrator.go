// Package orchestrator fans a descriptor out to every configured verification
// provider and collects one outcome per provider.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/metrics"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/tracer"
	"landtrust/pkg/platform/circuit"
	"landtrust/pkg/platform/fanout"
	"landtrust/pkg/requestcontext"
)

// DefaultTimeout bounds each provider call when no timeout is configured.
const DefaultTimeout = 8 * time.Second

// Outcome is the settled result of one provider invocation.
//
// Result is nil when the provider was skipped (missing descriptor fields) or
// failed; Err distinguishes the two.
type Outcome struct {
	ProviderID string
	Result     *providers.PartialResult
	Err        error
	Latency    time.Duration
}

// Succeeded reports whether the provider contributed a partial result.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Result != nil
}

// Skipped reports whether the provider declined to run for this descriptor.
func (o Outcome) Skipped() bool {
	return o.Err == nil && o.Result == nil
}

// Config configures the orchestrator.
type Config struct {
	Registry *providers.Registry

	// Timeout bounds each provider call. Timeouts overrides it per provider ID.
	Timeout  time.Duration
	Timeouts map[string]time.Duration

	// FailureThreshold is the number of consecutive failures that opens a
	// provider's circuit. Zero disables circuit breaking.
	FailureThreshold int
	Cooldown         time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  tracer.Tracer
}

// Orchestrator runs providers concurrently and never lets one provider's
// failure affect another's.
type Orchestrator struct {
	registry *providers.Registry
	timeout  time.Duration
	timeouts map[string]time.Duration
	breakers map[string]*circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
}

// New creates an orchestrator. The registry must be fully populated; circuit
// breakers are created once per registered provider.
func New(cfg Config) *Orchestrator {
	if cfg.Registry == nil {
		cfg.Registry = providers.NewRegistry()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracer.NewNoop()
	}

	breakers := make(map[string]*circuit.Breaker)
	if cfg.FailureThreshold > 0 {
		opts := []circuit.Option{circuit.WithFailureThreshold(cfg.FailureThreshold)}
		if cfg.Cooldown > 0 {
			opts = append(opts, circuit.WithCooldown(cfg.Cooldown))
		}
		for _, id := range cfg.Registry.IDs() {
			breakers[id] = circuit.New(id, opts...)
		}
	}

	return &Orchestrator{
		registry: cfg.Registry,
		timeout:  cfg.Timeout,
		timeouts: cfg.Timeouts,
		breakers: breakers,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}
}

// ProviderIDs returns the configured providers in invocation order.
func (o *Orchestrator) ProviderIDs() []string {
	return o.registry.IDs()
}

// Providers returns the configured providers in invocation order.
func (o *Orchestrator) Providers() []providers.Provider {
	return o.registry.All()
}

// CircuitState returns the circuit state for a provider, or "disabled" when
// circuit breaking is off.
func (o *Orchestrator) CircuitState(providerID string) string {
	if b, ok := o.breakers[providerID]; ok {
		return b.State().String()
	}
	return "disabled"
}

// Run invokes every provider concurrently, waits for all of them to settle
// and returns their outcomes in invocation order. Run never fails: provider
// errors are recorded on the outcome, logged and counted.
func (o *Orchestrator) Run(ctx context.Context, d identity.Descriptor) []Outcome {
	provs := o.registry.All()

	tasks := make([]fanout.Task[*providers.PartialResult], len(provs))
	for i, p := range provs {
		tasks[i] = func(ctx context.Context) (*providers.PartialResult, error) {
			return o.call(ctx, p, d)
		}
	}

	results := fanout.SettleAll(ctx, tasks)

	outcomes := make([]Outcome, len(provs))
	for i, r := range results {
		id := provs[i].ID()
		err := r.Err
		var panicErr *fanout.PanicError
		if errors.As(err, &panicErr) {
			err = providers.NewCallError(providers.ErrorInternal, id, "provider panicked", err)
		}
		outcomes[i] = Outcome{ProviderID: id, Result: r.Value, Err: err, Latency: r.Latency}
		if err != nil {
			outcomes[i].Result = nil
		}
		o.settle(ctx, outcomes[i])
	}
	return outcomes
}

func (o *Orchestrator) call(ctx context.Context, p providers.Provider, d identity.Descriptor) (result *providers.PartialResult, err error) {
	id := p.ID()
	if !p.Requirements().SatisfiedBy(d) {
		return nil, nil
	}
	if b, ok := o.breakers[id]; ok && !b.Allow() {
		return nil, providers.CircuitOpen(id)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeoutFor(id))
	defer cancel()

	ctx, span := o.tracer.Start(ctx, tracer.SpanProviderCall, tracer.String(tracer.AttrProvider, id))
	defer func() { span.End(err) }()

	result, err = p.Verify(ctx, d)
	if err != nil {
		return nil, normalize(ctx, id, err)
	}
	return result, nil
}

// settle updates the circuit breaker, logs and records metrics for one outcome.
func (o *Orchestrator) settle(ctx context.Context, out Outcome) {
	if out.Skipped() {
		o.record(out.ProviderID, metrics.OutcomeSkipped, out.Latency)
		return
	}

	if b, ok := o.breakers[out.ProviderID]; ok && !errors.Is(out.Err, providers.ErrCircuitOpen) {
		if out.Err != nil && providers.CategoryOf(out.Err).TripsCircuit() {
			if b.RecordFailure() {
				o.logger.WarnContext(ctx, "provider circuit opened",
					"provider", out.ProviderID,
					"request_id", requestcontext.RequestID(ctx),
				)
				if o.metrics != nil {
					o.metrics.RecordCircuitOpen(out.ProviderID)
				}
			}
		} else if b.RecordSuccess() {
			o.logger.InfoContext(ctx, "provider circuit closed", "provider", out.ProviderID)
		}
	}

	if out.Err == nil {
		o.record(out.ProviderID, metrics.OutcomeSuccess, out.Latency)
		return
	}

	category := providers.CategoryOf(out.Err)
	o.logger.WarnContext(ctx, "provider call failed",
		"provider", out.ProviderID,
		"category", string(category),
		"transient", category.Transient(),
		"latency_ms", out.Latency.Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
		"error", out.Err,
	)
	o.record(out.ProviderID, string(category), out.Latency)
}

func (o *Orchestrator) record(providerID, outcome string, latency time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordProviderCall(providerID, outcome, latency)
	}
}

func (o *Orchestrator) timeoutFor(providerID string) time.Duration {
	if t, ok := o.timeouts[providerID]; ok && t > 0 {
		return t
	}
	return o.timeout
}

// normalize ensures every failure leaving a provider is a *CallError.
func normalize(ctx context.Context, providerID string, err error) error {
	var pe *providers.CallError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return providers.NewCallError(providers.ErrorTimeout, providerID, "provider call timed out", err)
	}
	return providers.NewCallError(providers.ErrorInternal, providerID, "provider call failed", err)
}
