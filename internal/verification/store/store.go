// Package store persists trust reports: a TTL cache keyed by descriptor
// fingerprint and an append-only report history.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned on a cache miss.
var ErrNotFound = errors.New("report not found")

const defaultHistoryLimit = 20

// HistoryEntry is one recorded verification, newest first in listings.
type HistoryEntry struct {
	ReportID         string    `json:"reportId"`
	DescriptorHash   string    `json:"descriptorHash"`
	TrustScore       int       `json:"trustScore"`
	ProvidersInvoked int       `json:"providersInvoked"`
	CreatedAt        time.Time `json:"createdAt"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultHistoryLimit
	}
	return limit
}
