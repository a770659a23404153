package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "siren/pkg/domain"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/audit/store/memory"
	"siren/pkg/platform/circuit"
)

type fakeProducer struct {
	err     error
	records []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func newEvent() audit.Event {
	return audit.Event{
		ID:        uuid.New(),
		Category:  audit.CategoryCompliance,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UserID:    id.UserID(uuid.New()),
		Subject:   "123456789",
		Action:    string(audit.EventCompanyImported),
	}
}

func TestAppendProducesKeyedRecord(t *testing.T) {
	producer := &fakeProducer{}
	store := New(producer, "audit.registry")
	event := newEvent()

	require.NoError(t, store.Append(context.Background(), event))
	require.Len(t, producer.records, 1)

	record := producer.records[0]
	assert.Equal(t, "audit.registry", record.Topic)
	assert.Equal(t, event.ID.String(), string(record.Key))

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, event.Action, decoded.Action)
	assert.Equal(t, event.UserID, decoded.UserID)
}

func TestAppendFallsBackWhenCircuitOpens(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	fallback := memory.NewInMemoryStore()
	store := New(producer, "audit.registry",
		WithFallback(fallback),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))),
	)

	// below threshold the error surfaces
	err := store.Append(context.Background(), newEvent())
	require.Error(t, err)
	assert.Equal(t, 0, fallback.Len())

	// threshold reached: fallback absorbs the event
	require.NoError(t, store.Append(context.Background(), newEvent()))
	require.NoError(t, store.Append(context.Background(), newEvent()))
	assert.Equal(t, 2, fallback.Len())

	// brokers back: one success closes the circuit
	producer.err = nil
	require.NoError(t, store.Append(context.Background(), newEvent()))
	assert.Len(t, producer.records, 1)
	assert.Equal(t, circuit.StateClosed, store.breaker.State())
}

func TestAppendWithoutFallbackReturnsError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	store := New(producer, "audit.registry", WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))

	assert.Error(t, store.Append(context.Background(), newEvent()))
	assert.Error(t, store.Append(context.Background(), newEvent()))
}
