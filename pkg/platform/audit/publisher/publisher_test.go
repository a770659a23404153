package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "siren/pkg/domain"
	audit "siren/pkg/platform/audit"
	"siren/pkg/platform/audit/store/memory"
	"siren/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		UserID:  userID,
		Subject: "123456789",
		Action:  string(audit.EventCompanyImported),
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCompanyImported), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
}

func TestPublisher_RequiresAction(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{UserID: id.UserID(uuid.New())})
	assert.Error(t, err)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.UserID(uuid.New())
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: string(audit.EventCompanyLookedUp),
		})
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	release chan struct{}
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	<-s.release
	return nil
}

func TestPublisher_BufferFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer func() {
		close(store.release)
		pub.Close()
	}()

	event := audit.Event{UserID: id.UserID(uuid.New()), Action: string(audit.EventCompanyLookedUp)}
	var full bool
	for range 5 {
		if err := pub.Emit(context.Background(), event); errors.Is(err, ErrBufferFull) {
			full = true
			break
		}
	}
	assert.True(t, full, "buffer of one with a stuck store must saturate")
}

func TestPublisher_StampsFromRequestContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	userID := id.UserID(uuid.New())
	require.NoError(t, pub.Emit(ctx, audit.Event{UserID: userID, Action: string(audit.EventCompanyImported)}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		UserID:    userID,
		Action:    string(audit.EventCompanyImported),
		Timestamp: customTime,
	}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_UnknownActionIsOperations(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: "something_else"}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	for name, opts := range map[string][]Option{
		"sync":  nil,
		"async": {WithAsyncBuffer(4)},
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.NewInMemoryStore()
			pub := NewPublisher(store, opts...)
			require.NoError(t, pub.Close())

			err := pub.Emit(context.Background(), audit.Event{
				UserID: id.UserID(uuid.New()),
				Action: string(audit.EventCompanyLookedUp),
			})
			assert.ErrorIs(t, err, ErrPublisherClosed)
			assert.Equal(t, 0, store.Len())
			assert.NoError(t, pub.Close(), "second Close is a no-op")
		})
	}
}

func TestPublisher_CloseWhileEmitting(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))
	event := audit.Event{UserID: id.UserID(uuid.New()), Action: string(audit.EventCompanyLookedUp)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			err := pub.Emit(context.Background(), event)
			if err != nil && !errors.Is(err, ErrBufferFull) && !errors.Is(err, ErrPublisherClosed) {
				t.Errorf("unexpected emit error: %v", err)
				return
			}
		}
	}()

	require.NoError(t, pub.Close())
	<-done
}
