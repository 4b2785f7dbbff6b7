package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/processmap/internal/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)

	s.writes = append(s.writes, writtenBatch{
		topic:    topic,
		messages: copied,
	})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []schemaCall
}

type schemaCall struct {
	subject string
	schema  string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, schemaCall{subject: subject, schema: schema})
	if s.err != nil {
		return 0, s.err
	}
	if s.id == 0 {
		s.id = 1
	}
	return s.id, nil
}

func testMessage(eventID int64, eventType string) Message {
	route, _ := events.Lookup(eventType)
	return Message{
		EventID:       eventID,
		WorkflowID:    3,
		AggregateType: route.AggregateType,
		AggregateID:   eventID * 10,
		EventType:     eventType,
		Topic:         route.Topic,
		SchemaSubject: route.SchemaSubject,
		PartitionKey:  events.PartitionKey(3),
		Payload:       []byte(`{"workflow_id":3}`),
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(513, []byte(`{}`))
	require.Len(t, frame, 7)
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(513), binary.BigEndian.Uint32(frame[1:5]))
	require.Equal(t, `{}`, string(frame[5:]))
}

func TestDeliverGroupsByTopicWithHeaders(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := NewDispatcher(nil, producer, registry, 0, 10)

	err := d.deliver(context.Background(), []Message{
		testMessage(1, events.TypeActivityCreated),
		testMessage(2, events.TypeActivityShifted),
		testMessage(3, events.TypeWorkflowDeleted),
	})
	require.NoError(t, err)

	require.Len(t, producer.writes, 2)
	require.Equal(t, events.TopicActivityEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, events.TopicWorkflowEvents, producer.writes[1].topic)

	first := producer.writes[0].messages[0]
	require.Equal(t, "workflow:3", string(first.Key))
	require.Equal(t, events.TypeActivityCreated, header(first, HeaderEventType))
	require.Equal(t, "3", header(first, HeaderWorkflowID))
	require.Equal(t, "1", header(first, HeaderEventID))
	require.Equal(t, events.SubjectActivityEvents, header(first, HeaderSchemaSubject))
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(first.Value[1:5]))
}

func TestDeliverCachesSchemaIDs(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	d := NewDispatcher(nil, producer, registry, 0, 10)

	batch := []Message{testMessage(1, events.TypeActivityCreated), testMessage(2, events.TypeActivityUpdated)}
	require.NoError(t, d.deliver(context.Background(), batch))
	require.NoError(t, d.deliver(context.Background(), batch))

	require.Len(t, registry.calls, 1, "schema registry should be invoked once due to cache")
}

func TestDeliverRejectsUnknownSubject(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{}
	d := NewDispatcher(nil, producer, registry, 0, 10)

	msg := testMessage(1, events.TypeActivityCreated)
	msg.SchemaSubject = "mystery-value"
	err := d.deliver(context.Background(), []Message{msg})
	require.ErrorContains(t, err, "no schema metadata for schema_subject=mystery-value")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverPropagatesRegistryErrors(t *testing.T) {
	registry := &stubRegistry{err: errors.New("registry down")}
	d := NewDispatcher(nil, &stubProducer{}, registry, 0, 10)

	err := d.deliver(context.Background(), []Message{testMessage(1, events.TypeActivityCreated)})
	require.ErrorContains(t, err, "registry down")
}

func TestBackoffDelayCapsAtOneHour(t *testing.T) {
	m := NewDLQManager(nil, 0, time.Minute)
	require.Equal(t, defaultMaxRetries, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(100))
}

func TestDLQReasonIsBounded(t *testing.T) {
	require.Equal(t, "broker down (topic=activity_events)", dlqReason("broker down", "activity_events"))

	long := dlqReason(strings.Repeat("é", maxReasonBytes), "activity_events")
	require.LessOrEqual(t, len(long), maxReasonBytes)
	require.True(t, utf8.ValidString(long))
}

func TestRecordBatchCountsPerEventType(t *testing.T) {
	created := testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityCreated))
	shifted := testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityShifted))

	recordBatch(deliveredCounter, []Message{
		testMessage(1, events.TypeActivityCreated),
		testMessage(2, events.TypeActivityCreated),
		testMessage(3, events.TypeActivityShifted),
	})

	require.InDelta(t, created+2, testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityCreated)), 0.0001)
	require.InDelta(t, shifted+1, testutil.ToFloat64(deliveredCounter.WithLabelValues(events.TypeActivityShifted)), 0.0001)
}
