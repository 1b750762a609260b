// Package registry provides the client event queue registry: the
// authoritative record of which queues exist, which user each belongs to,
// and which queues want realm-wide public-stream traffic.
//
// Unlike an actor-per-user model, this registry is a single exclusive lock
// guarding three plain indices. The dispatch path never blocks for
// arbitrarily long while holding it — no channel send, no I/O, no call into
// client code happens between Lock and Unlock. That keeps a registry
// operation O(1) in the number of indices touched, independent of how slow
// any one client's queue is to drain.
package registry

import (
	"sync"
	"time"

	"github.com/boq-project/notify-dispatch/internal/domain/message"
	"github.com/boq-project/notify-dispatch/internal/domain/narrow"
	"github.com/boq-project/notify-dispatch/internal/domain/types"
)

// Queue is one client's in-memory event queue: the registry's unit of
// bookkeeping. Delivery itself (Push appending to the events slice) happens
// outside the registry's lock, via the snapshot returned by the lookup
// methods below.
type Queue struct {
	Id             types.QueueId
	UserId         types.UserId
	RealmId        types.RealmId
	ClientTypeName string

	// AllStreams marks a queue that wants realm-wide public-stream fan-out
	// in addition to messages on streams/topics it is explicitly a member
	// of (e.g. the web app's "all messages" queue).
	AllStreams bool

	// ApplyMarkdown and ClientGravatar are the flavor preferences this
	// queue registered with; together they select which MessageFlavor a
	// delivered Message is materialized under.
	ApplyMarkdown  bool
	ClientGravatar bool

	// AcceptsMessages is false for queues registered only to receive
	// non-message events (presence, custom_profile_fields, ...). Such a
	// queue still counts as registered but never as "online" for
	// receiver_is_off_zulip purposes.
	AcceptsMessages bool

	// Narrow is this queue's subscribed filter. A nil/empty Narrow accepts
	// every message; AcceptsEvent is the only place it's consulted.
	Narrow narrow.Narrow

	mu         sync.Mutex
	events     []*message.Message
	lastActive time.Time
}

// NewQueue constructs a Queue ready for registration. It always accepts
// message events and carries no narrow filter; use WithNarrow and
// SetAcceptsMessages to configure a queue beyond those defaults.
func NewQueue(id types.QueueId, userID types.UserId, realmID types.RealmId, clientTypeName string, allStreams, applyMarkdown, clientGravatar bool) *Queue {
	return &Queue{
		Id:              id,
		UserId:          userID,
		RealmId:         realmID,
		ClientTypeName:  clientTypeName,
		ApplyMarkdown:   applyMarkdown,
		ClientGravatar:  clientGravatar,
		AllStreams:      allStreams,
		AcceptsMessages: true,
		lastActive:      time.Now(),
	}
}

// WithNarrow sets the queue's subscribed narrow filter and returns q for
// chaining after NewQueue.
func (q *Queue) WithNarrow(n narrow.Narrow) *Queue {
	q.Narrow = n
	return q
}

// SetAcceptsMessages overrides whether this queue accepts message events,
// for queues registered purely to watch non-message event types.
func (q *Queue) SetAcceptsMessages(accepts bool) *Queue {
	q.AcceptsMessages = accepts
	return q
}

// AcceptsEvent reports whether this queue's narrow filter admits m, sent by
// senderID. A queue with no narrow terms admits everything.
func (q *Queue) AcceptsEvent(m *message.Message, senderID types.UserId) bool {
	if len(q.Narrow) == 0 {
		return true
	}
	return q.Narrow.Matches(*m, int64(senderID))
}

// Push appends an event to the queue. It takes its own per-queue lock, not
// the registry's: the registry may be read concurrently by another
// dispatch while a slow client drains its own queue.
func (q *Queue) Push(m *message.Message) {
	q.mu.Lock()
	q.events = append(q.events, m)
	q.lastActive = time.Now()
	q.mu.Unlock()
}

// Drain removes and returns every pending event.
func (q *Queue) Drain() []*message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Registry is the exclusive-lock-guarded set of three consistent indices:
// primary id lookup, per-user membership, and per-realm all-streams
// membership. All three are updated together under one Lock/Unlock so a
// reader can never observe one index mid-update relative to the others.
type Registry struct {
	mu sync.Mutex

	byId            map[types.QueueId]*Queue
	byUser          map[types.UserId]map[types.QueueId]struct{}
	byRealmAllStreams map[types.RealmId]map[types.QueueId]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byId:            make(map[types.QueueId]*Queue),
		byUser:          make(map[types.UserId]map[types.QueueId]struct{}),
		byRealmAllStreams: make(map[types.RealmId]map[types.QueueId]struct{}),
	}
}

// Add registers q, indexing it by id, by user, and — if q.AllStreams — by
// realm. Re-adding an id already present replaces the prior queue and
// leaves stale index entries for the old queue's user/realm cleaned up.
func (r *Registry) Add(q *Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byId[q.Id]; ok {
		r.removeLocked(old)
	}

	r.byId[q.Id] = q
	r.indexByUserLocked(q)
	if q.AllStreams {
		r.indexByRealmLocked(q)
	}
}

func (r *Registry) indexByUserLocked(q *Queue) {
	set := r.byUser[q.UserId]
	if set == nil {
		set = make(map[types.QueueId]struct{})
		r.byUser[q.UserId] = set
	}
	set[q.Id] = struct{}{}
}

func (r *Registry) indexByRealmLocked(q *Queue) {
	set := r.byRealmAllStreams[q.RealmId]
	if set == nil {
		set = make(map[types.QueueId]struct{})
		r.byRealmAllStreams[q.RealmId] = set
	}
	set[q.Id] = struct{}{}
}

// Remove deregisters id from all three indices. Removing an id that is not
// present is a no-op: cleanup_queue is idempotent by contract.
func (r *Registry) Remove(id types.QueueId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.byId[id]
	if !ok {
		return
	}
	r.removeLocked(q)
}

func (r *Registry) removeLocked(q *Queue) {
	delete(r.byId, q.Id)
	if set := r.byUser[q.UserId]; set != nil {
		delete(set, q.Id)
		if len(set) == 0 {
			delete(r.byUser, q.UserId)
		}
	}
	if q.AllStreams {
		if set := r.byRealmAllStreams[q.RealmId]; set != nil {
			delete(set, q.Id)
			if len(set) == 0 {
				delete(r.byRealmAllStreams, q.RealmId)
			}
		}
	}
}

// Lookup returns the queue registered under id, if any.
func (r *Registry) Lookup(id types.QueueId) (*Queue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byId[id]
	return q, ok
}

// QueuesForUser returns a snapshot of every queue currently registered for
// userID. The slice is safe to iterate and deliver to without holding the
// registry's lock.
func (r *Registry) QueuesForUser(userID types.UserId) []*Queue {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Queue, 0, len(set))
	for id := range set {
		out = append(out, r.byId[id])
	}
	return out
}

// QueuesForRealmAllStreams returns a snapshot of every all-streams queue
// registered for realmID.
func (r *Registry) QueuesForRealmAllStreams(realmID types.RealmId) []*Queue {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byRealmAllStreams[realmID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Queue, 0, len(set))
	for id := range set {
		out = append(out, r.byId[id])
	}
	return out
}

// HasQueue reports whether userID has at least one registered queue of any
// kind, message-accepting or not.
func (r *Registry) HasQueue(userID types.UserId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// HasMessageQueue reports whether userID holds at least one queue with
// AcceptsMessages true — the registry-backed notion of "is this user
// currently online to accept messages" used by receiverIsOffZulip. A user
// whose only queues watch non-message events still counts as off-Zulip.
func (r *Registry) HasMessageQueue(userID types.UserId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.byUser[userID] {
		if q := r.byId[id]; q != nil && q.AcceptsMessages {
			return true
		}
	}
	return false
}

// Stats is a point-in-time snapshot of registry occupancy, exposed only for
// the health endpoint and tests. It takes the same lock as every other
// method and never blocks a dispatch any longer than a map read would.
type Stats struct {
	TotalQueues      int
	QueuesByRealm    map[types.RealmId]int
}

// Stats returns a snapshot of current registry occupancy.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byRealm := make(map[types.RealmId]int)
	for _, q := range r.byId {
		byRealm[q.RealmId]++
	}
	return Stats{TotalQueues: len(r.byId), QueuesByRealm: byRealm}
}
