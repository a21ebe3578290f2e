// Package audit emits one event per completed verification so downstream
// consumers can follow trust decisions without reading the report store.
package audit

import (
	"context"
	"time"

	"landtrust/internal/verification/models"
)

// EventVerificationCompleted is the only event type emitted today.
const EventVerificationCompleted = "verification.completed"

// Event carries the outcome of a verification. It holds the descriptor
// fingerprint, never the raw descriptor.
type Event struct {
	Type             string    `json:"type"`
	ReportID         string    `json:"reportId"`
	DescriptorHash   string    `json:"descriptorHash"`
	TrustScore       int       `json:"trustScore"`
	ProvidersInvoked int       `json:"providersInvoked"`
	Sources          []string  `json:"sources"`
	Warnings         int       `json:"warnings"`
	RequestID        string    `json:"requestId,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewEvent builds a completion event from a stamped report.
func NewEvent(descriptorHash, requestID string, report *models.TrustReport) Event {
	sources := make([]string, 0, len(report.Verifications))
	for _, v := range report.Verifications {
		sources = append(sources, v.Source)
	}
	return Event{
		Type:             EventVerificationCompleted,
		ReportID:         report.ReportID,
		DescriptorHash:   descriptorHash,
		TrustScore:       report.TrustScore,
		ProvidersInvoked: report.ProvidersInvoked,
		Sources:          sources,
		Warnings:         len(report.Warnings),
		RequestID:        requestID,
		Timestamp:        report.CheckedAt,
	}
}

// Sink delivers a single event.
type Sink interface {
	Send(ctx context.Context, event Event) error
}
