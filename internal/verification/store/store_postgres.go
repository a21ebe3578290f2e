package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"landtrust/internal/verification/models"
)

// PostgresHistory appends verification reports to verification_reports.
type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// Record inserts one report. Reports are immutable; a repeated report ID is
// ignored.
func (h *PostgresHistory) Record(ctx context.Context, descriptorHash string, report *models.TrustReport) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	query := `
		INSERT INTO verification_reports (
			report_id, descriptor_hash, trust_score, providers_invoked, report, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id) DO NOTHING
	`
	_, err = h.db.ExecContext(ctx, query,
		report.ReportID,
		descriptorHash,
		report.TrustScore,
		report.ProvidersInvoked,
		payload,
		report.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("record report: %w", err)
	}
	return nil
}

// ListByDescriptor returns up to limit reports for a descriptor, newest first.
func (h *PostgresHistory) ListByDescriptor(ctx context.Context, descriptorHash string, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT report_id, descriptor_hash, trust_score, providers_invoked, created_at
		FROM verification_reports
		WHERE descriptor_hash = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := h.db.QueryContext(ctx, query, descriptorHash, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ReportID, &e.DescriptorHash, &e.TrustScore, &e.ProvidersInvoked, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return entries, nil
}
