// Package scoring reduces provider outcomes into a trust report.
package scoring

import (
	"maps"
	"math"

	"landtrust/internal/verification/models"
	"landtrust/internal/verification/orchestrator"
)

// MaxScore is the upper bound of a trust score.
const MaxScore = 100

// Aggregate folds outcomes, in invocation order, into a trust report.
//
// The trust score is the sum of successful partial scores divided by the
// number of invoked providers, not the number that succeeded: a skipped or
// failed provider contributes zero. The result is rounded half away from
// zero and clamped to [0, 100]. No outcomes yields a zero score with empty
// collections. Aggregate cannot fail.
func Aggregate(outcomes []orchestrator.Outcome) models.TrustReport {
	report := models.EmptyReport()
	report.ProvidersInvoked = len(outcomes)
	if len(outcomes) == 0 {
		return report
	}

	var sum float64
	for _, o := range outcomes {
		if !o.Succeeded() {
			continue
		}
		r := o.Result
		report.Verifications = append(report.Verifications, models.Verification{
			Source:   r.Source,
			Score:    r.Score,
			Details:  nonNilDetails(r.Details),
			Warnings: nonNilWarnings(r.Warnings),
		})
		maps.Copy(report.Details, r.Details)
		report.Warnings = append(report.Warnings, r.Warnings...)
		sum += r.Score
	}

	report.TrustScore = TrustScore(sum, len(outcomes))
	return report
}

// TrustScore computes round(sum/invoked) clamped to [0, MaxScore].
func TrustScore(sum float64, invoked int) int {
	if invoked <= 0 {
		return 0
	}
	score := math.Round(sum / float64(invoked))
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > MaxScore:
		return MaxScore
	default:
		return int(score)
	}
}

func nonNilDetails(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}

func nonNilWarnings(w []string) []string {
	if w == nil {
		return []string{}
	}
	return w
}
