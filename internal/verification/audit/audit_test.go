package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"landtrust/internal/platform/kafka/producer"
	"landtrust/internal/verification/models"
	dErrors "landtrust/pkg/domain-errors"
	"landtrust/pkg/testutil"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Send(_ context.Context, event Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) sent() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type fakeProducer struct {
	msgs []*producer.Message
	err  error
}

func (f *fakeProducer) Produce(_ context.Context, msg *producer.Message) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type PublisherSuite struct {
	suite.Suite
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestSyncPublishSendsImmediately() {
	sink := &recordingSink{}
	p := NewPublisher(sink)

	s.Require().NoError(p.Publish(context.Background(), Event{ReportID: "r1"}))

	events := sink.sent()
	s.Require().Len(events, 1)
	s.Equal("r1", events[0].ReportID)
	s.False(events[0].Timestamp.IsZero(), "missing timestamp is filled in")
}

func (s *PublisherSuite) TestSyncPublishReturnsSinkError() {
	p := NewPublisher(&recordingSink{err: errors.New("broker down")})
	s.ErrorContains(p.Publish(context.Background(), Event{}), "broker down")
}

func (s *PublisherSuite) TestAsyncCloseDrainsBuffer() {
	sink := &recordingSink{}
	p := NewPublisher(sink, WithAsyncBuffer(8))

	for _, id := range []string{"a", "b", "c"} {
		s.Require().NoError(p.Publish(context.Background(), Event{ReportID: id}))
	}
	p.Close()

	var ids []string
	for _, e := range sink.sent() {
		ids = append(ids, e.ReportID)
	}
	s.Equal([]string{"a", "b", "c"}, ids)
}

func (s *PublisherSuite) TestAsyncFullBufferDropsEvent() {
	sink := &recordingSink{block: make(chan struct{})}
	var logs bytes.Buffer
	p := NewPublisher(sink, WithAsyncBuffer(1), WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	// The first event is taken by the drain goroutine and blocks in Send;
	// the second fills the buffer.
	s.Require().NoError(p.Publish(context.Background(), Event{ReportID: "first"}))
	s.Eventually(func() bool { return len(p.events) == 0 }, time.Second, 5*time.Millisecond)
	s.Require().NoError(p.Publish(context.Background(), Event{ReportID: "second"}))

	err := p.Publish(context.Background(), Event{ReportID: "third"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Contains(logs.String(), "audit buffer full")

	close(sink.block)
	p.Close()
	s.Len(sink.sent(), 2)
}

func (s *PublisherSuite) TestAsyncConcurrentPublishersShedLoad() {
	sink := &recordingSink{block: make(chan struct{})}
	p := NewPublisher(sink, WithAsyncBuffer(4))

	result := testutil.RunConcurrentCtx(context.Background(), 20, func(ctx context.Context, i int) error {
		return p.Publish(ctx, Event{ReportID: "r"})
	})

	s.Equal(int32(20), result.Total())
	s.Zero(result.Errors)
	s.LessOrEqual(result.Successes, int32(5))
	s.Positive(result.Unavailable)

	close(sink.block)
	p.Close()
	s.Len(sink.sent(), int(result.Successes))
}

func (s *PublisherSuite) TestPublishAfterClose() {
	p := NewPublisher(&recordingSink{}, WithAsyncBuffer(2))
	p.Close()
	p.Close()

	err := p.Publish(context.Background(), Event{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *PublisherSuite) TestAsyncLogsDeliveryFailure() {
	var logs bytes.Buffer
	p := NewPublisher(&recordingSink{err: errors.New("nope")},
		WithAsyncBuffer(1), WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	s.Require().NoError(p.Publish(context.Background(), Event{ReportID: "r9"}))
	p.Close()

	s.Contains(logs.String(), "failed to deliver audit event")
	s.Contains(logs.String(), "r9")
}

func TestNewEvent(t *testing.T) {
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &models.TrustReport{
		TrustScore: 72,
		Verifications: []models.Verification{
			{Source: "peopledatalabs"}, {Source: "hunter"},
		},
		Warnings:         []string{"Email marked as risky"},
		ReportID:         "rep-1",
		CheckedAt:        checked,
		ProvidersInvoked: 3,
	}

	e := NewEvent("abc123", "req-7", report)

	assert.Equal(t, EventVerificationCompleted, e.Type)
	assert.Equal(t, "rep-1", e.ReportID)
	assert.Equal(t, "abc123", e.DescriptorHash)
	assert.Equal(t, 72, e.TrustScore)
	assert.Equal(t, 3, e.ProvidersInvoked)
	assert.Equal(t, []string{"peopledatalabs", "hunter"}, e.Sources)
	assert.Equal(t, 1, e.Warnings)
	assert.Equal(t, checked, e.Timestamp)
}

func TestKafkaSink(t *testing.T) {
	fp := &fakeProducer{}
	sink := NewKafkaSink(fp, "landtrust.verifications")

	event := Event{Type: EventVerificationCompleted, ReportID: "r1", DescriptorHash: "hash", TrustScore: 50, RequestID: "req-1"}
	require.NoError(t, sink.Send(context.Background(), event))

	require.Len(t, fp.msgs, 1)
	msg := fp.msgs[0]
	assert.Equal(t, "landtrust.verifications", msg.Topic)
	assert.Equal(t, []byte("hash"), msg.Key)
	assert.Equal(t, "req-1", msg.Headers["request_id"])
	assert.Equal(t, EventVerificationCompleted, msg.Headers["event_type"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "r1", decoded.ReportID)
	assert.Equal(t, 50, decoded.TrustScore)
}

func TestKafkaSinkOmitsEmptyRequestID(t *testing.T) {
	fp := &fakeProducer{err: errors.New("timeout")}
	err := NewKafkaSink(fp, "t").Send(context.Background(), Event{DescriptorHash: "h"})

	assert.ErrorContains(t, err, "timeout")
	require.Len(t, fp.msgs, 1)
	_, ok := fp.msgs[0].Headers["request_id"]
	assert.False(t, ok)
}

func TestLogSink(t *testing.T) {
	var logs bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&logs, nil)))

	require.NoError(t, sink.Send(context.Background(), Event{Type: EventVerificationCompleted, ReportID: "r2", TrustScore: 10}))
	assert.Contains(t, logs.String(), `"report_id":"r2"`)
	assert.Contains(t, logs.String(), `"trust_score":10`)
}
