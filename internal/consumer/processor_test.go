package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func framed(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"activity_id":12,"workflow_id":3}`)
	msg := kafka.Message{
		Topic:     "activity_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.created")},
			{Key: "workflow_id", Value: []byte("3")},
			{Key: "schema_subject", Value: []byte("activity_events-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	before := testutil.ToFloat64(eventsLogged.WithLabelValues("activity_events", "activity.created"))
	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(eventsLogged.WithLabelValues("activity_events", "activity.created")), 0.0001)
	require.Equal(t, "activity.created", handler.last.EventType)
	require.NotNil(t, handler.last.WorkflowID)
	require.Equal(t, int64(3), *handler.last.WorkflowID)
	require.Equal(t, "activity_events-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:     "workflow_events",
		Partition: 0,
		Offset:    20,
		Time:      time.Now().UTC(),
		Value:     framed(99, []byte(`{"workflow_id":4}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("workflow.deleted")},
			{Key: "workflow_id", Value: []byte("4")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	before := testutil.ToFloat64(handlerErrorCounter.WithLabelValues("workflow_events", "workflow.deleted"))
	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(handlerErrorCounter.WithLabelValues("workflow_events", "workflow.deleted")), 0.0001)
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	cases := map[string]kafka.Message{
		"short value":        {Topic: "poison", Value: []byte{0, 1}},
		"missing event type": {Topic: "poison", Value: framed(1, []byte(`{}`))},
		"bad workflow header": {Topic: "poison", Value: framed(1, []byte(`{}`)), Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.created")},
			{Key: "workflow_id", Value: []byte("three")},
		}},
		"bad magic byte": {Topic: "poison", Value: append([]byte{1}, framed(1, []byte(`{}`))[1:]...), Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.created")},
		}},
		"invalid json": {Topic: "poison", Value: framed(1, []byte(`{`)), Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.created")},
		}},
	}

	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
			handler := &stubHandler{}

			before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("poison"))
			err := NewProcessor(reader, handler).Run(context.Background())
			require.ErrorIs(t, err, context.Canceled)

			require.Zero(t, handler.calls)
			require.Equal(t, 1, reader.commitCalls)
			require.InDelta(t, before+1, testutil.ToFloat64(decodeErrorCounter.WithLabelValues("poison")), 0.0001)
		})
	}
}

func TestProcessorCommitsMalformedPayloads(t *testing.T) {
	msg := kafka.Message{
		Topic:   "malformed",
		Offset:  7,
		Value:   framed(3, []byte(`[1,2]`)),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("activity.deleted")}},
	}
	reader := &stubReader{messages: []kafka.Message{msg}, after: contextCanceled}
	handler := &stubHandler{err: fmt.Errorf("activity.deleted: %w", ErrMalformedPayload)}

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("malformed"))
	err := NewProcessor(reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(decodeErrorCounter.WithLabelValues("malformed")), 0.0001)
}

func TestDecodeMessageWithoutWorkflowHeader(t *testing.T) {
	msg, err := decodeMessage(kafka.Message{
		Topic:   "activity_events",
		Value:   framed(5, []byte(`{}`)),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("activity.updated")}},
	})
	require.NoError(t, err)
	require.Nil(t, msg.WorkflowID)
	require.Equal(t, 5, msg.SchemaID)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
