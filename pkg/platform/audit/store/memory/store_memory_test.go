package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "ballotgate/pkg/platform/audit"
)

func TestAppendEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(3))

	for i := range 10 {
		require.NoError(t, store.Append(ctx, audit.Event{
			Action:        fmt.Sprintf("event-%d", i),
			SubjectDigest: "digest-a",
		}))
	}
	assert.Equal(t, 3, store.Len())

	events, err := store.ListBySubject(ctx, "digest-a")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "event-7", events[0].Action)
	assert.Equal(t, "event-9", events[2].Action)
}

func TestListBySubjectBeforeWrap(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(4))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "a", SubjectDigest: "x"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "b", SubjectDigest: "y"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: "c", SubjectDigest: "x"}))

	events, err := store.ListBySubject(ctx, "x")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Action)
	assert.Equal(t, "c", events[1].Action)
	assert.Equal(t, 3, store.Len())
}

func TestDefaultCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	for range DefaultCapacity + 5 {
		require.NoError(t, store.Append(ctx, audit.Event{Action: "tick"}))
	}
	assert.Equal(t, DefaultCapacity, store.Len())
}
