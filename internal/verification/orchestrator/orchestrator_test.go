package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/metrics"
	"landtrust/internal/verification/providers"
	"landtrust/internal/verification/providers/mocks"
)

type OrchestratorSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	metrics *metrics.Metrics
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
}

var descriptor = identity.Descriptor{OwnerName: "John Smith", Email: "john@example.com"}

func (s *OrchestratorSuite) provider(id string) *mocks.MockProvider {
	p := mocks.NewMockProvider(s.ctrl)
	p.EXPECT().ID().Return(id).AnyTimes()
	p.EXPECT().Requirements().Return(providers.Requirements{}).AnyTimes()
	return p
}

func (s *OrchestratorSuite) orchestrator(cfg Config, provs ...providers.Provider) *Orchestrator {
	reg := providers.NewRegistry()
	for _, p := range provs {
		s.Require().NoError(reg.Register(p))
	}
	cfg.Registry = reg
	cfg.Metrics = s.metrics
	return New(cfg)
}

func (s *OrchestratorSuite) TestEmptyProviderSet() {
	o := s.orchestrator(Config{})

	outcomes := o.Run(context.Background(), descriptor)

	s.NotNil(outcomes)
	s.Empty(outcomes)
}

func (s *OrchestratorSuite) TestOutcomesFollowInvocationOrder() {
	slow := s.provider("slow")
	slow.EXPECT().Verify(gomock.Any(), descriptor).DoAndReturn(
		func(ctx context.Context, _ identity.Descriptor) (*providers.PartialResult, error) {
			time.Sleep(30 * time.Millisecond)
			return &providers.PartialResult{Source: "slow", Score: 10}, nil
		})
	fast := s.provider("fast")
	fast.EXPECT().Verify(gomock.Any(), descriptor).Return(&providers.PartialResult{Source: "fast", Score: 90}, nil)

	outcomes := s.orchestrator(Config{}, slow, fast).Run(context.Background(), descriptor)

	s.Require().Len(outcomes, 2)
	s.Equal("slow", outcomes[0].ProviderID)
	s.Equal("fast", outcomes[1].ProviderID)
	s.True(outcomes[0].Succeeded())
	s.True(outcomes[1].Succeeded())
	s.GreaterOrEqual(outcomes[0].Latency, 30*time.Millisecond)
}

func (s *OrchestratorSuite) TestFailureDoesNotCancelSiblings() {
	failing := s.provider("failing")
	failing.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil,
		providers.NewCallError(providers.ErrorProviderOutage, "failing", "down", nil))

	var sawCancel atomic.Bool
	patient := s.provider("patient")
	patient.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ identity.Descriptor) (*providers.PartialResult, error) {
			time.Sleep(20 * time.Millisecond)
			sawCancel.Store(ctx.Err() != nil)
			return &providers.PartialResult{Source: "patient", Score: 70}, nil
		})

	outcomes := s.orchestrator(Config{}, failing, patient).Run(context.Background(), descriptor)

	s.False(outcomes[0].Succeeded())
	s.Equal(providers.ErrorProviderOutage, providers.CategoryOf(outcomes[0].Err))
	s.True(outcomes[1].Succeeded())
	s.False(sawCancel.Load())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProviderCallsTotal.WithLabelValues("failing", "provider_outage")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProviderCallsTotal.WithLabelValues("patient", metrics.OutcomeSuccess)))
}

func (s *OrchestratorSuite) TestPerProviderTimeout() {
	hanging := s.provider("hanging")
	hanging.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ identity.Descriptor) (*providers.PartialResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	quick := s.provider("quick")
	quick.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(&providers.PartialResult{Source: "quick", Score: 50}, nil)

	o := s.orchestrator(Config{Timeout: time.Second, Timeouts: map[string]time.Duration{"hanging": 20 * time.Millisecond}}, hanging, quick)

	start := time.Now()
	outcomes := o.Run(context.Background(), descriptor)

	s.Less(time.Since(start), time.Second)
	s.Equal(providers.ErrorTimeout, providers.CategoryOf(outcomes[0].Err))
	s.True(outcomes[1].Succeeded())
}

func (s *OrchestratorSuite) TestPanicIsRecoveredAsInternal() {
	panicky := s.provider("panicky")
	panicky.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, identity.Descriptor) (*providers.PartialResult, error) {
			panic("adapter bug")
		})
	ok := s.provider("ok")
	ok.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(&providers.PartialResult{Source: "ok", Score: 80}, nil)

	outcomes := s.orchestrator(Config{}, panicky, ok).Run(context.Background(), descriptor)

	s.Equal(providers.ErrorInternal, providers.CategoryOf(outcomes[0].Err))
	s.Nil(outcomes[0].Result)
	s.True(outcomes[1].Succeeded())
}

func (s *OrchestratorSuite) TestUnclassifiedErrorIsNormalized() {
	p := s.provider("raw")
	p.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, errors.New("socket closed"))

	outcomes := s.orchestrator(Config{}, p).Run(context.Background(), descriptor)

	var pe *providers.CallError
	s.Require().ErrorAs(outcomes[0].Err, &pe)
	s.Equal(providers.ErrorInternal, pe.Category)
	s.Equal("raw", pe.ProviderID)
}

func (s *OrchestratorSuite) TestUnmetRequirementsSkipWithoutCall() {
	p := mocks.NewMockProvider(s.ctrl)
	p.EXPECT().ID().Return("records").AnyTimes()
	p.EXPECT().Requirements().Return(providers.Requirements{AllOf: []providers.Field{providers.FieldAddress}}).AnyTimes()
	p.EXPECT().Verify(gomock.Any(), gomock.Any()).Times(0)

	outcomes := s.orchestrator(Config{}, p).Run(context.Background(), descriptor)

	s.Require().Len(outcomes, 1)
	s.True(outcomes[0].Skipped())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ProviderCallsTotal.WithLabelValues("records", metrics.OutcomeSkipped)))
}

func (s *OrchestratorSuite) TestCircuitOpensAfterConsecutiveFailures() {
	p := s.provider("flaky")
	p.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil,
		providers.NewCallError(providers.ErrorTimeout, "flaky", "slow", nil)).Times(2)

	o := s.orchestrator(Config{FailureThreshold: 2, Cooldown: time.Hour}, p)

	o.Run(context.Background(), descriptor)
	o.Run(context.Background(), descriptor)
	s.Equal("open", o.CircuitState("flaky"))

	outcomes := o.Run(context.Background(), descriptor)

	s.ErrorIs(outcomes[0].Err, providers.ErrCircuitOpen)
	s.Equal(providers.ErrorProviderOutage, providers.CategoryOf(outcomes[0].Err))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CircuitOpenTotal.WithLabelValues("flaky")))
}

func (s *OrchestratorSuite) TestNotFoundDoesNotTripCircuit() {
	p := s.provider("registry")
	p.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil,
		providers.NewCallError(providers.ErrorNotFound, "registry", "no record", nil)).Times(3)

	o := s.orchestrator(Config{FailureThreshold: 1}, p)
	for range 3 {
		o.Run(context.Background(), descriptor)
	}

	s.Equal("closed", o.CircuitState("registry"))
}

func TestCircuitStateDisabled(t *testing.T) {
	o := New(Config{})
	assert.Equal(t, "disabled", o.CircuitState("hunter"))
	require.Empty(t, o.ProviderIDs())
}
