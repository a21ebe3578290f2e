//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"landtrust/pkg/testutil/containers"
)

type PostgresHistorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	history  *PostgresHistory
}

func TestPostgresHistorySuite(t *testing.T) {
	suite.Run(t, new(PostgresHistorySuite))
}

func (s *PostgresHistorySuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.history = NewPostgresHistory(s.postgres.DB)
}

func (s *PostgresHistorySuite) SetupTest() {
	s.Require().NoError(s.postgres.Reset(context.Background()))
}

func (s *PostgresHistorySuite) record(hash string, score int, at time.Time) string {
	r := report(score)
	r.ReportID = uuid.NewString()
	r.CheckedAt = at
	r.ProvidersInvoked = 3
	s.Require().NoError(s.history.Record(context.Background(), hash, r))
	return r.ReportID
}

func (s *PostgresHistorySuite) TestListNewestFirst() {
	hash := "a3f1c2e4b5d6a7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70"
	other := "b3f1c2e4b5d6a7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.record(hash, 40, base)
	newest := s.record(hash, 70, base.Add(time.Hour))
	s.record(other, 90, base.Add(2*time.Hour))

	entries, err := s.history.ListByDescriptor(context.Background(), hash, 10)

	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(newest, entries[0].ReportID)
	s.Equal(70, entries[0].TrustScore)
	s.Equal(3, entries[0].ProvidersInvoked)
	s.Equal(hash, entries[0].DescriptorHash)
	s.True(base.Add(time.Hour).Equal(entries[0].CreatedAt))
}

func (s *PostgresHistorySuite) TestDuplicateReportIgnored() {
	r := report(55)
	r.ReportID = uuid.NewString()
	r.CheckedAt = time.Now().UTC()
	hash := "c3f1c2e4b5d6a7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70"

	s.Require().NoError(s.history.Record(context.Background(), hash, r))
	s.Require().NoError(s.history.Record(context.Background(), hash, r))

	entries, err := s.history.ListByDescriptor(context.Background(), hash, 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}
