//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"landtrust/internal/platform/kafka/producer"
	"landtrust/internal/verification/audit"
	"landtrust/pkg/testutil/containers"
)

func TestKafkaPublisherDeliversEvent(t *testing.T) {
	kafka := containers.Kafka(t)
	ctx := context.Background()
	topic := "landtrust.verifications.audit-test"
	require.NoError(t, kafka.EnsureTopic(ctx, topic))

	prod, err := producer.New(producer.DefaultConfig(kafka.Brokers), nil)
	require.NoError(t, err)
	defer prod.Close(5 * time.Second)

	pub := audit.NewPublisher(audit.NewKafkaSink(prod, topic), audit.WithAsyncBuffer(4))
	require.NoError(t, pub.Publish(ctx, audit.Event{
		Type:           audit.EventVerificationCompleted,
		ReportID:       "rep-int",
		DescriptorHash: "fp-int",
		TrustScore:     64,
	}))
	pub.Close()

	record, err := kafka.ReadKey(ctx, topic, "fp-int", 15*time.Second)
	require.NoError(t, err)

	var got audit.Event
	require.NoError(t, json.Unmarshal(record.Value, &got))
	require.Equal(t, "rep-int", got.ReportID)
	require.Equal(t, 64, got.TrustScore)
}
