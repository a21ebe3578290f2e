package models

import (
	"encoding/json"
	"time"
)

// Verification is one provider's contribution as it appears in a report.
type Verification struct {
	Source   string         `json:"source"`
	Score    float64        `json:"score"`
	Details  map[string]any `json:"details"`
	Warnings []string       `json:"warnings"`
}

// TrustReport is the aggregated verification result returned to callers.
//
// TrustScore, Verifications, Warnings and Details are computed from provider
// outcomes; the remaining fields describe the report itself.
type TrustReport struct {
	TrustScore    int            `json:"trustScore"`
	Verifications []Verification `json:"verifications"`
	Warnings      []string       `json:"warnings"`
	Details       map[string]any `json:"details"`

	ReportID         string    `json:"reportId,omitempty"`
	CheckedAt        time.Time `json:"checkedAt,omitzero"`
	ProvidersInvoked int       `json:"providersInvoked"`
	Cached           bool      `json:"cached"`
}

// EmptyReport returns a report with a zero score and empty, non-nil
// collections.
func EmptyReport() TrustReport {
	return TrustReport{
		Verifications: []Verification{},
		Warnings:      []string{},
		Details:       map[string]any{},
	}
}

// MarshalJSON guarantees empty collections serialize as [] and {} rather than
// null, whichever way the report was built.
func (r TrustReport) MarshalJSON() ([]byte, error) {
	type alias TrustReport
	a := alias(r)
	if a.Verifications == nil {
		a.Verifications = []Verification{}
	}
	for i := range a.Verifications {
		if a.Verifications[i].Details == nil {
			a.Verifications[i].Details = map[string]any{}
		}
		if a.Verifications[i].Warnings == nil {
			a.Verifications[i].Warnings = []string{}
		}
	}
	if a.Warnings == nil {
		a.Warnings = []string{}
	}
	if a.Details == nil {
		a.Details = map[string]any{}
	}
	return json.Marshal(a)
}

// ProviderInfo describes one enabled provider for the providers listing.
type ProviderInfo struct {
	ID           string   `json:"id"`
	Order        int      `json:"order"`
	AllOf        []string `json:"requiresAll"`
	AnyOf        []string `json:"requiresAny"`
	CircuitState string   `json:"circuitState"`
}
