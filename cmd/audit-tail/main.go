// Command audit-tail follows the verification audit topic and logs one line
// per completed verification. It is a local debugging aid for the Kafka sink.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"

	"landtrust/internal/platform/config"
	"landtrust/internal/platform/logger"
	"landtrust/internal/verification/audit"
)

func main() {
	fromStart := flag.Bool("from-start", false, "replay the topic from the earliest offset")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if cfg.Kafka.Brokers == "" {
		log.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tail(ctx, log, cfg.Kafka, *fromStart); err != nil {
		log.Error("audit tail failed", "error", err)
		os.Exit(1)
	}
}

func tail(ctx context.Context, log *slog.Logger, cfg config.KafkaConfig, fromStart bool) error {
	offset := kgo.NewOffset().AtEnd()
	if fromStart {
		offset = kgo.NewOffset().AtStart()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.ConsumeTopics(cfg.AuditTopic),
		kgo.ConsumeResetOffset(offset),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info("tailing audit topic", "topic", cfg.AuditTopic, "from_start", fromStart)

	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				if errors.Is(fe.Err, context.Canceled) {
					return nil
				}
				log.Warn("fetch error", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
			}
		}

		fetches.EachRecord(func(rec *kgo.Record) {
			var event audit.Event
			if err := json.Unmarshal(rec.Value, &event); err != nil {
				log.Warn("undecodable audit record", "offset", rec.Offset, "error", err)
				return
			}
			log.Info(event.Type,
				"report_id", event.ReportID,
				"descriptor_hash", event.DescriptorHash,
				"trust_score", event.TrustScore,
				"providers_invoked", event.ProvidersInvoked,
				"sources", event.Sources,
				"warnings", event.Warnings,
				"request_id", event.RequestID,
				"timestamp", event.Timestamp,
			)
		})
	}
}
