package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"landtrust/internal/verification/orchestrator"
	"landtrust/internal/verification/providers"
)

type AggregateSuite struct {
	suite.Suite
}

func TestAggregateSuite(t *testing.T) {
	suite.Run(t, new(AggregateSuite))
}

func success(source string, score float64, warnings ...string) orchestrator.Outcome {
	return orchestrator.Outcome{
		ProviderID: source,
		Result: &providers.PartialResult{
			Source:   source,
			Score:    score,
			Details:  map[string]any{source + "Key": score},
			Warnings: warnings,
		},
	}
}

func failure(source string) orchestrator.Outcome {
	return orchestrator.Outcome{
		ProviderID: source,
		Err:        providers.NewCallError(providers.ErrorProviderOutage, source, "down", errors.New("connection refused")),
	}
}

func skipped(source string) orchestrator.Outcome {
	return orchestrator.Outcome{ProviderID: source}
}

func (s *AggregateSuite) TestTwoProvidersAveraged() {
	report := Aggregate([]orchestrator.Outcome{
		success("a", 80),
		success("b", 60, "Low confidence match"),
	})

	s.Equal(70, report.TrustScore)
	s.Len(report.Verifications, 2)
	s.Equal([]string{"Low confidence match"}, report.Warnings)
	s.Equal(2, report.ProvidersInvoked)
}

func (s *AggregateSuite) TestFailedProviderCountsInDenominator() {
	report := Aggregate([]orchestrator.Outcome{failure("a"), success("b", 90)})

	s.Equal(45, report.TrustScore)
	s.Require().Len(report.Verifications, 1)
	s.Equal("b", report.Verifications[0].Source)
}

func (s *AggregateSuite) TestOneOfThreeSucceeds() {
	report := Aggregate([]orchestrator.Outcome{failure("a"), success("b", 90), skipped("c")})

	s.Equal(30, report.TrustScore)
}

func (s *AggregateSuite) TestAllFailedDegradesToEmptyReport() {
	report := Aggregate([]orchestrator.Outcome{failure("a"), skipped("b"), failure("c")})

	s.Equal(0, report.TrustScore)
	s.NotNil(report.Verifications)
	s.Empty(report.Verifications)
	s.NotNil(report.Warnings)
	s.Empty(report.Warnings)
	s.NotNil(report.Details)
	s.Empty(report.Details)

	data, err := json.Marshal(report)
	s.Require().NoError(err)
	s.Contains(string(data), `"trustScore":0,"verifications":[],"warnings":[],"details":{}`)
}

func (s *AggregateSuite) TestNoOutcomes() {
	report := Aggregate(nil)

	s.Equal(0, report.TrustScore)
	s.Empty(report.Verifications)
	s.Equal(0, report.ProvidersInvoked)
}

func (s *AggregateSuite) TestScoreClampedToMax() {
	report := Aggregate([]orchestrator.Outcome{success("a", 150), success("b", 130)})

	s.Equal(100, report.TrustScore)
}

func (s *AggregateSuite) TestNegativeSumClampedToZero() {
	report := Aggregate([]orchestrator.Outcome{success("a", -40)})

	s.Equal(0, report.TrustScore)
}

func (s *AggregateSuite) TestOrderFollowsInvocationNotArrival() {
	outcomes := []orchestrator.Outcome{
		success("first", 10, "w1", "w2"),
		failure("second"),
		success("third", 20, "w3"),
	}

	for range 5 {
		report := Aggregate(outcomes)
		s.Equal([]string{"w1", "w2", "w3"}, report.Warnings)
		s.Equal("first", report.Verifications[0].Source)
		s.Equal("third", report.Verifications[1].Source)
	}
}

func (s *AggregateSuite) TestDetailsFoldLaterKeyWins() {
	a := success("a", 50)
	a.Result.Details = map[string]any{"shared": "from a", "onlyA": 1}
	b := success("b", 50)
	b.Result.Details = map[string]any{"shared": "from b"}

	report := Aggregate([]orchestrator.Outcome{a, b})

	s.Equal("from b", report.Details["shared"])
	s.Equal(1, report.Details["onlyA"])
}

func (s *AggregateSuite) TestFailedOutcomeWithResultIsIgnored() {
	o := success("a", 90)
	o.Err = errors.New("late failure")

	report := Aggregate([]orchestrator.Outcome{o})

	s.Equal(0, report.TrustScore)
	s.Empty(report.Verifications)
}

func TestTrustScoreRounding(t *testing.T) {
	cases := []struct {
		sum     float64
		invoked int
		want    int
	}{
		{sum: 0, invoked: 0, want: 0},
		{sum: 125, invoked: 2, want: 63},
		{sum: 124, invoked: 3, want: 41},
		{sum: 89.5, invoked: 1, want: 90},
		{sum: 300, invoked: 2, want: 100},
		{sum: math.NaN(), invoked: 1, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TrustScore(tc.sum, tc.invoked), "sum=%v invoked=%d", tc.sum, tc.invoked)
	}
}

func TestVerificationCollectionsNeverNil(t *testing.T) {
	report := Aggregate([]orchestrator.Outcome{{
		ProviderID: "bare",
		Result:     &providers.PartialResult{Source: "bare", Score: 40},
	}})

	require.Len(t, report.Verifications, 1)
	assert.NotNil(t, report.Verifications[0].Details)
	assert.NotNil(t, report.Verifications[0].Warnings)
}
