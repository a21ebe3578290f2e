package store

import (
	"context"
	"sync"
	"time"

	"landtrust/internal/verification/models"
)

// MemoryCache is an in-process report cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	report    models.TrustReport
	expiresAt time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Find returns the cached report for key, or ErrNotFound when absent or expired.
func (c *MemoryCache) Find(_ context.Context, key string) (*models.TrustReport, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, ErrNotFound
	}
	report := entry.report
	return &report, nil
}

// Save stores a copy of report under key. A non-positive TTL disables caching.
func (c *MemoryCache) Save(_ context.Context, key string, report *models.TrustReport) error {
	if report == nil || c.ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{report: *report, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MemoryHistory keeps report history in process. It backs tests and runs
// without a database.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Record(_ context.Context, descriptorHash string, report *models.TrustReport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, HistoryEntry{
		ReportID:         report.ReportID,
		DescriptorHash:   descriptorHash,
		TrustScore:       report.TrustScore,
		ProvidersInvoked: report.ProvidersInvoked,
		CreatedAt:        report.CheckedAt,
	})
	return nil
}

// ListByDescriptor returns up to limit entries for a descriptor, newest first.
func (h *MemoryHistory) ListByDescriptor(_ context.Context, descriptorHash string, limit int) ([]HistoryEntry, error) {
	limit = clampLimit(limit)
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := []HistoryEntry{}
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if h.entries[i].DescriptorHash == descriptorHash {
			out = append(out, h.entries[i])
		}
	}
	return out, nil
}
