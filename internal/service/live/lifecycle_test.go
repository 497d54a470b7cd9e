package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
)

// silentWriter keeps its own copy of each row and never feeds changes back,
// like a backing store whose change notifications are delayed or lost
type silentWriter struct {
	mu       sync.Mutex
	statuses map[string]complaint.Status
	updates  []complaint.StatusUpdate
}

func newSilentWriter() *silentWriter {
	return &silentWriter{statuses: make(map[string]complaint.Status)}
}

func (w *silentWriter) Create(_ context.Context, c complaint.Complaint) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statuses[c.ID] = c.Status
	return nil
}

func (w *silentWriter) UpdateStatus(_ context.Context, u complaint.StatusUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	stored, ok := w.statuses[u.ID]
	if !ok {
		return complaint.ErrNotFound
	}
	if err := u.CheckStored(stored); err != nil {
		return err
	}
	w.statuses[u.ID] = u.To
	w.updates = append(w.updates, u)
	return nil
}

func (w *silentWriter) UpdatePriority(context.Context, string, complaint.Priority, time.Time) error {
	return nil
}

func newWriteThroughFixture(t *testing.T) (*Store, *silentWriter, *complaintService.Lifecycle) {
	t.Helper()

	store := newTestStore()
	t.Cleanup(store.Close)

	r := record("c1", 1)
	r.Department = "Public Works"
	store.Replace([]complaint.Record{r})

	writer := newSilentWriter()
	writer.statuses["c1"] = complaint.StatusPending

	now := base.Add(time.Hour)
	lifecycle := complaintService.NewLifecycle(store, writer, complaintService.RoleAuthorizer{}, nil,
		complaintService.LifecycleConfig{
			Sink: store,
			Now: func() time.Time {
				now = now.Add(time.Minute)
				return now
			},
		})
	return store, writer, lifecycle
}

func TestLifecycle_WritesThroughToStore(t *testing.T) {
	store, writer, lifecycle := newWriteThroughFixture(t)
	admin := complaint.Actor{ID: "admin-1", Role: complaint.RoleAdmin}
	ctx := context.Background()

	_, err := lifecycle.Transition(ctx, admin, "c1", complaint.StatusInProgress, nil)
	require.NoError(t, err)

	c, ok := store.Get("c1")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusInProgress, c.Status)

	_, err = lifecycle.Transition(ctx, admin, "c1", complaint.StatusResolved, nil)
	require.NoError(t, err)

	c, _ = store.Get("c1")
	assert.Equal(t, complaint.StatusResolved, c.Status)

	require.Len(t, writer.updates, 2)
	assert.Equal(t, complaint.StatusInProgress, writer.updates[1].From)
}

func TestLifecycle_RepeatedTransitionIsRejected(t *testing.T) {
	_, writer, lifecycle := newWriteThroughFixture(t)
	admin := complaint.Actor{ID: "admin-1", Role: complaint.RoleAdmin}
	ctx := context.Background()

	_, err := lifecycle.Transition(ctx, admin, "c1", complaint.StatusInProgress, nil)
	require.NoError(t, err)

	_, err = lifecycle.Transition(ctx, admin, "c1", complaint.StatusInProgress, nil)
	assert.True(t, complaint.IsTransitionError(err))
	assert.Len(t, writer.updates, 1)
}

func TestLifecycle_ConcurrentTransitionsWriteOnce(t *testing.T) {
	_, writer, lifecycle := newWriteThroughFixture(t)
	admin := complaint.Actor{ID: "admin-1", Role: complaint.RoleAdmin}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lifecycle.Transition(context.Background(), admin, "c1", complaint.StatusInProgress, nil)
		}()
	}
	wg.Wait()

	assert.Len(t, writer.updates, 1)
}

func TestLifecycle_StoredStatusGuardsStaleView(t *testing.T) {
	store, writer, lifecycle := newWriteThroughFixture(t)
	admin := complaint.Actor{ID: "admin-1", Role: complaint.RoleAdmin}

	// Resolved in the backing store by another instance; the live set has
	// not heard about it yet.
	store.Upsert(func() complaint.Record {
		r := record("c1", 1)
		r.Department = "Public Works"
		r.Status = "in_progress"
		return r
	}())
	writer.statuses["c1"] = complaint.StatusResolved

	_, err := lifecycle.Transition(context.Background(), admin, "c1", complaint.StatusRejected, nil)
	assert.True(t, complaint.IsTransitionError(err))
	assert.Empty(t, writer.updates)

	c, _ := store.Get("c1")
	assert.Equal(t, complaint.StatusInProgress, c.Status)
}
