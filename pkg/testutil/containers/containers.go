//go:build integration

// Package containers starts the Postgres and Kafka dependencies of the
// integration suites. Each container is started once per test binary.
package containers

import (
	"sync"
	"testing"
)

var (
	mu       sync.Mutex
	pg       *PostgresContainer
	kafkaBox *KafkaContainer
)

// Postgres returns the shared migrated Postgres container.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	mu.Lock()
	defer mu.Unlock()
	if pg == nil {
		pg = startPostgres(t)
	}
	return pg
}

// Kafka returns the shared Kafka-compatible broker.
func Kafka(t *testing.T) *KafkaContainer {
	t.Helper()
	mu.Lock()
	defer mu.Unlock()
	if kafkaBox == nil {
		kafkaBox = startKafka(t)
	}
	return kafkaBox
}
