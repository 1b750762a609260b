package registry

import (
	"testing"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/narrow"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLookupRemove(t *testing.T) {
	r := New()
	q := NewQueue("q1", 1, 100, "website", false, false, false)
	r.Add(q)

	got, ok := r.Lookup("q1")
	require.True(t, ok)
	assert.Same(t, q, got)

	r.Remove("q1")
	_, ok = r.Lookup("q1")
	assert.False(t, ok)
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Remove("missing") })
}

func TestQueuesForUser(t *testing.T) {
	r := New()
	r.Add(NewQueue("q1", 1, 100, "website", false, false, false))
	r.Add(NewQueue("q2", 1, 100, "mobile", false, false, false))
	r.Add(NewQueue("q3", 2, 100, "website", false, false, false))

	qs := r.QueuesForUser(1)
	assert.Len(t, qs, 2)

	assert.True(t, r.HasQueue(1))
	assert.False(t, r.HasQueue(999))
}

func TestQueuesForRealmAllStreams(t *testing.T) {
	r := New()
	r.Add(NewQueue("q1", 1, 100, "website", true, false, false))
	r.Add(NewQueue("q2", 2, 100, "website", false, false, false))

	qs := r.QueuesForRealmAllStreams(100)
	require.Len(t, qs, 1)
	assert.Equal(t, types.QueueId("q1"), qs[0].Id)
}

func TestAddReplacesExistingId(t *testing.T) {
	r := New()
	r.Add(NewQueue("q1", 1, 100, "website", true, false, false))
	r.Add(NewQueue("q1", 2, 200, "website", false, false, false))

	assert.False(t, r.HasQueue(1))
	assert.True(t, r.HasQueue(2))
	assert.Empty(t, r.QueuesForRealmAllStreams(100))
}

func TestQueuePushDrain(t *testing.T) {
	q := NewQueue("q1", 1, 100, "website", false, false, false)
	assert.Nil(t, q.Drain())

	q.Push(nil)
	q.Push(nil)
	got := q.Drain()
	assert.Len(t, got, 2)
	assert.Nil(t, q.Drain())
}

func TestHasMessageQueue_DistinguishesFromNonMessageQueue(t *testing.T) {
	r := New()
	r.Add(NewQueue("q1", 1, 100, "website", false, false, false).SetAcceptsMessages(false))

	assert.True(t, r.HasQueue(1), "a registered queue of any kind still counts for HasQueue")
	assert.False(t, r.HasMessageQueue(1), "a queue that only watches non-message events is off-Zulip")

	r.Add(NewQueue("q2", 1, 100, "mobile", false, false, false))
	assert.True(t, r.HasMessageQueue(1))
}

func TestQueue_AcceptsEvent(t *testing.T) {
	q := NewQueue("q1", 1, 100, "website", false, false, false)
	q.WithNarrow(narrow.Narrow{{Operator: narrow.OperatorStream, Operand: "12"}})

	streamID := int64(12)
	inNarrow := &message.Message{StreamId: &streamID}
	assert.True(t, q.AcceptsEvent(inNarrow, 9))

	otherID := int64(13)
	outOfNarrow := &message.Message{StreamId: &otherID}
	assert.False(t, q.AcceptsEvent(outOfNarrow, 9))
}

func TestQueue_AcceptsEventWithEmptyNarrowAcceptsEverything(t *testing.T) {
	q := NewQueue("q1", 1, 100, "website", false, false, false)
	assert.True(t, q.AcceptsEvent(&message.Message{}, 9))
}

func TestStats(t *testing.T) {
	r := New()
	r.Add(NewQueue("q1", 1, 100, "website", false, false, false))
	r.Add(NewQueue("q2", 2, 200, "website", false, false, false))

	s := r.Stats()
	assert.Equal(t, 2, s.TotalQueues)
	assert.Equal(t, 1, s.QueuesByRealm[100])
	assert.Equal(t, 1, s.QueuesByRealm[200])
}
