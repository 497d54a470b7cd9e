package complaint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// memoryStore is both the Lookup and the Writer, so written transitions
// are visible to the next call.
type memoryStore struct {
	mu       sync.Mutex
	items    map[string]complaint.Complaint
	failWith error
	writes   int
}

func newMemoryStore(cs ...complaint.Complaint) *memoryStore {
	s := &memoryStore{items: make(map[string]complaint.Complaint)}
	for _, c := range cs {
		s.items[c.ID] = c
	}
	return s
}

func (s *memoryStore) Get(id string) (complaint.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	return c, ok
}

func (s *memoryStore) Create(_ context.Context, c complaint.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.ID] = c
	return nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, u complaint.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.writes++
	c := s.items[u.ID]
	c.Status = u.To
	c.UpdatedAt = u.At
	if u.Priority != nil {
		c.Priority = *u.Priority
	}
	s.items[u.ID] = c
	return nil
}

func (s *memoryStore) UpdatePriority(_ context.Context, id string, p complaint.Priority, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.writes++
	c := s.items[id]
	c.Priority = p
	c.UpdatedAt = at
	s.items[id] = c
	return nil
}

type recordingPublisher struct {
	events []complaint.TransitionEvent
	err    error
}

func (p *recordingPublisher) PublishTransition(_ context.Context, e complaint.TransitionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

var (
	created  = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	official = complaint.Actor{ID: "officer-1", Role: complaint.RoleDepartment, Department: "public works"}
	admin    = complaint.Actor{ID: "admin-1", Role: complaint.RoleAdmin}
	citizen  = complaint.Actor{ID: "citizen-1", Role: complaint.RoleCitizen}
)

func newTestLifecycle(store *memoryStore, events *recordingPublisher, now time.Time) *Lifecycle {
	return NewLifecycle(store, store, RoleAuthorizer{}, events, LifecycleConfig{
		Now: func() time.Time { return now },
	})
}

func pendingComplaint() complaint.Complaint {
	return complaint.Complaint{
		ID:         "c1",
		Status:     complaint.StatusPending,
		Priority:   complaint.PriorityNormal,
		Department: "Public Works",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(complaint.StatusPending, complaint.StatusInProgress))
	assert.True(t, CanTransition(complaint.StatusInProgress, complaint.StatusResolved))
	assert.True(t, CanTransition(complaint.StatusPending, complaint.StatusRejected))
	assert.True(t, CanTransition(complaint.StatusInProgress, complaint.StatusRejected))

	assert.False(t, CanTransition(complaint.StatusPending, complaint.StatusResolved))
	assert.False(t, CanTransition(complaint.StatusPending, complaint.StatusPending))
	assert.False(t, CanTransition(complaint.StatusResolved, complaint.StatusPending))
	assert.False(t, CanTransition(complaint.StatusRejected, complaint.StatusInProgress))
	assert.Empty(t, NextStatuses(complaint.StatusResolved))
}

func TestLifecycle_HappyPath(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	events := &recordingPublisher{}
	now := created.Add(2 * time.Hour)
	l := newTestLifecycle(store, events, now)
	ctx := context.Background()

	c, err := l.Transition(ctx, official, "c1", complaint.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, complaint.StatusInProgress, c.Status)
	assert.Equal(t, now, c.UpdatedAt)

	urgent := complaint.PriorityUrgent
	c, err = l.Transition(ctx, admin, "c1", complaint.StatusResolved, &urgent)
	require.NoError(t, err)
	assert.Equal(t, complaint.StatusResolved, c.Status)
	assert.Equal(t, complaint.PriorityUrgent, c.Priority)

	stored, _ := store.Get("c1")
	assert.Equal(t, complaint.StatusResolved, stored.Status)
	assert.Equal(t, complaint.PriorityUrgent, stored.Priority)

	require.Len(t, events.events, 2)
	assert.Equal(t, complaint.StatusPending, events.events[0].From)
	assert.Equal(t, complaint.StatusInProgress, events.events[0].To)
	assert.Equal(t, "officer-1", events.events[0].ActorID)
	assert.Equal(t, "c1", events.events[1].ComplaintID)
	assert.NotEmpty(t, events.events[1].ID)
}

func TestLifecycle_ResolvedIsTerminal(t *testing.T) {
	resolved := pendingComplaint()
	resolved.Status = complaint.StatusResolved
	store := newMemoryStore(resolved)
	l := newTestLifecycle(store, &recordingPublisher{}, created.Add(time.Hour))

	_, err := l.Transition(context.Background(), admin, "c1", complaint.StatusPending, nil)
	require.Error(t, err)
	assert.True(t, complaint.IsTransitionError(err))
	assert.Equal(t, 0, store.writes)
}

func TestLifecycle_PendingToRejected(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	l := newTestLifecycle(store, &recordingPublisher{}, created.Add(time.Hour))

	c, err := l.Transition(context.Background(), official, "c1", complaint.StatusRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, complaint.StatusRejected, c.Status)
}

func TestLifecycle_UnauthorizedLeavesComplaintUnchanged(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	events := &recordingPublisher{}
	l := newTestLifecycle(store, events, created.Add(time.Hour))

	outsider := complaint.Actor{ID: "officer-2", Role: complaint.RoleDepartment, Department: "Water Department"}
	for _, actor := range []complaint.Actor{citizen, outsider} {
		_, err := l.Transition(context.Background(), actor, "c1", complaint.StatusInProgress, nil)
		require.Error(t, err)
		assert.True(t, complaint.IsAuthorizationError(err))
	}

	stored, _ := store.Get("c1")
	assert.Equal(t, complaint.StatusPending, stored.Status)
	assert.Equal(t, created, stored.UpdatedAt)
	assert.Empty(t, events.events)
}

func TestLifecycle_UnknownComplaint(t *testing.T) {
	l := newTestLifecycle(newMemoryStore(), &recordingPublisher{}, created)
	ctx := context.Background()

	_, err := l.Transition(ctx, admin, "missing", complaint.StatusInProgress, nil)
	assert.ErrorIs(t, err, complaint.ErrNotFound)

	// Actors without rights get the same answer for missing and existing ids
	_, err = l.Transition(ctx, citizen, "missing", complaint.StatusInProgress, nil)
	assert.True(t, complaint.IsAuthorizationError(err))
	_, err = l.SetPriority(ctx, official, "missing", complaint.PriorityHigh)
	assert.True(t, complaint.IsAuthorizationError(err))
}

func TestLifecycle_StaleStoredStatusIsTransitionError(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	store.failWith = complaint.NewTransitionError("c1", complaint.StatusRejected, complaint.StatusInProgress)
	events := &recordingPublisher{}
	l := newTestLifecycle(store, events, created.Add(time.Hour))

	_, err := l.Transition(context.Background(), admin, "c1", complaint.StatusInProgress, nil)
	require.Error(t, err)
	assert.True(t, complaint.IsTransitionError(err))
	assert.False(t, complaint.IsUpstreamUnavailable(err))
	assert.Empty(t, events.events)
}

func TestLifecycle_WriterFailureIsUpstream(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	store.failWith = errors.New("connection refused")
	events := &recordingPublisher{}
	l := newTestLifecycle(store, events, created.Add(time.Hour))

	_, err := l.Transition(context.Background(), admin, "c1", complaint.StatusInProgress, nil)
	require.Error(t, err)
	assert.True(t, complaint.IsUpstreamUnavailable(err))
	assert.Empty(t, events.events)
}

func TestLifecycle_PublishFailureDoesNotFailTransition(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	events := &recordingPublisher{err: errors.New("nats down")}
	l := newTestLifecycle(store, events, created.Add(time.Hour))

	c, err := l.Transition(context.Background(), admin, "c1", complaint.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, complaint.StatusInProgress, c.Status)
}

func TestLifecycle_StampNeverBeforeCreation(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	l := newTestLifecycle(store, &recordingPublisher{}, created.Add(-24*time.Hour))

	c, err := l.Transition(context.Background(), admin, "c1", complaint.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, created, c.UpdatedAt)
}

func TestLifecycle_SetPriority(t *testing.T) {
	store := newMemoryStore(pendingComplaint())
	now := created.Add(time.Hour)
	l := newTestLifecycle(store, &recordingPublisher{}, now)

	c, err := l.SetPriority(context.Background(), official, "c1", complaint.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, complaint.PriorityHigh, c.Priority)
	assert.Equal(t, complaint.StatusPending, c.Status)
	assert.Equal(t, now, c.UpdatedAt)

	_, err = l.SetPriority(context.Background(), citizen, "c1", complaint.PriorityLow)
	assert.True(t, complaint.IsAuthorizationError(err))
}

func TestRoleAuthorizer(t *testing.T) {
	c := pendingComplaint()
	auth := RoleAuthorizer{}
	ctx := context.Background()

	ok, _ := auth.CanModify(ctx, admin, c)
	assert.True(t, ok)
	ok, _ = auth.CanModify(ctx, official, c)
	assert.True(t, ok)
	ok, _ = auth.CanModify(ctx, complaint.Actor{ID: "x", Role: complaint.RoleDepartment}, c)
	assert.False(t, ok)
	ok, _ = auth.CanModify(ctx, citizen, c)
	assert.False(t, ok)
}
