package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
)

var base = time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

func record(id string, minutes int) complaint.Record {
	return complaint.Record{
		ID:        id,
		IssueType: "pothole",
		Status:    "pending",
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func newTestStore() *Store {
	return NewStore(complaintService.NewValidator(), nil)
}

type collector struct {
	ch chan []complaint.Complaint
}

func newCollector() *collector {
	return &collector{ch: make(chan []complaint.Complaint, 64)}
}

func (c *collector) onChange(snapshot []complaint.Complaint) {
	c.ch <- snapshot
}

func (c *collector) next(t *testing.T) []complaint.Complaint {
	t.Helper()
	select {
	case s := <-c.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func snapshotIDs(cs []complaint.Complaint) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestStore_SubscribeDeliversCurrentSetImmediately(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	c := newCollector()
	unsubscribe := store.Subscribe(c.onChange)
	defer unsubscribe()

	assert.Empty(t, c.next(t))

	store.Upsert(record("a", 1))
	assert.Equal(t, []string{"a"}, snapshotIDs(c.next(t)))
}

func TestStore_OrdersNewestFirstThenID(t *testing.T) {
	store := newTestStore()
	store.Replace([]complaint.Record{record("b", 1), record("a", 1), record("c", 5)})

	assert.Equal(t, []string{"c", "a", "b"}, snapshotIDs(store.Snapshot()))
	assert.Equal(t, uint64(1), store.Version())
}

func TestStore_DeliversChangesInArrivalOrder(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	c := newCollector()
	unsubscribe := store.Subscribe(c.onChange)
	defer unsubscribe()
	c.next(t)

	store.Upsert(record("a", 1))
	store.Upsert(record("b", 2))
	store.Remove("a")
	store.Replace([]complaint.Record{record("x", 3)})

	assert.Equal(t, []string{"a"}, snapshotIDs(c.next(t)))
	assert.Equal(t, []string{"b", "a"}, snapshotIDs(c.next(t)))
	assert.Equal(t, []string{"b"}, snapshotIDs(c.next(t)))
	assert.Equal(t, []string{"x"}, snapshotIDs(c.next(t)))
}

func TestStore_UpsertUpdatesInPlace(t *testing.T) {
	store := newTestStore()
	store.Upsert(record("a", 1))

	updated := record("a", 1)
	updated.Status = "in_progress"
	store.Upsert(updated)

	c, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusInProgress, c.Status)
	assert.Len(t, store.Snapshot(), 1)
}

func TestStore_DropsMalformedRecords(t *testing.T) {
	store := newTestStore()
	store.Upsert(record("a", 1))
	version := store.Version()

	bad := record("a", 1)
	bad.Status = "archived"
	store.Upsert(bad)
	store.Upsert(complaint.Record{Status: "pending"})

	c, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusPending, c.Status)
	assert.Equal(t, version, store.Version())

	store.Replace([]complaint.Record{record("b", 2), {ID: ""}, bad})
	assert.Equal(t, []string{"b"}, snapshotIDs(store.Snapshot()))
}

func TestStore_RemoveUnknownIsNoop(t *testing.T) {
	store := newTestStore()
	store.Remove("ghost")
	assert.Equal(t, uint64(0), store.Version())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	store := newTestStore()
	store.Upsert(record("a", 1))

	snap := store.Snapshot()
	snap[0].ID = "mutated"

	assert.Equal(t, []string{"a"}, snapshotIDs(store.Snapshot()))
}

func TestStore_SnapshotsShareNoCoordinates(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	lat, lng := 28.61, 77.21
	r := record("a", 1)
	r.Latitude, r.Longitude = &lat, &lng
	store.Upsert(r)

	snap := store.Snapshot()
	snap[0].Location.Coords.Lat = 0

	c := newCollector()
	unsubscribe := store.Subscribe(c.onChange)
	delivered := c.next(t)
	delivered[0].Location.Coords.Lng = 0
	unsubscribe()

	held, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, complaint.LatLng{Lat: 28.61, Lng: 77.21}, *held.Location.Coords)
	assert.Equal(t, complaint.LatLng{Lat: 28.61, Lng: 77.21}, *store.Snapshot()[0].Location.Coords)
}

func TestStore_UpsertIgnoresOlderRecord(t *testing.T) {
	store := newTestStore()

	newer := record("a", 1)
	newer.Status = "in_progress"
	newer.UpdatedAt = base.Add(time.Hour)
	store.Upsert(newer)
	version := store.Version()

	store.Upsert(record("a", 1))

	c, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, complaint.StatusInProgress, c.Status)
	assert.Equal(t, version, store.Version())
}

func TestStore_CallbacksNeverOverlap(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	var active, overlaps, calls int32
	done := make(chan struct{})
	unsubscribe := store.Subscribe(func([]complaint.Complaint) {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		if atomic.AddInt32(&calls, 1) == 21 {
			close(done)
		}
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Upsert(record(string(rune('a'+i)), i))
		}(i)
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("not every change was delivered")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlaps))
}

func TestStore_NoCallbackAfterUnsubscribe(t *testing.T) {
	store := newTestStore()
	defer store.Close()

	var calls int32
	unsubscribe := store.Subscribe(func([]complaint.Complaint) {
		atomic.AddInt32(&calls, 1)
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	unsubscribe()
	unsubscribe()

	store.Upsert(record("a", 1))
	store.Upsert(record("b", 2))
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStore_Close(t *testing.T) {
	store := newTestStore()

	c := newCollector()
	unsubscribe := store.Subscribe(c.onChange)
	c.next(t)

	store.Close()
	unsubscribe()

	store.Upsert(record("a", 1))
	select {
	case <-c.ch:
		t.Fatal("callback after close")
	case <-time.After(20 * time.Millisecond):
	}

	// Changes still apply after close
	assert.Len(t, store.Snapshot(), 1)
}

type stubReader struct {
	records []complaint.Record
	err     error
}

func (r stubReader) ListAll(context.Context) ([]complaint.Record, error) {
	return r.records, r.err
}

func TestResyncer_RunOnce(t *testing.T) {
	store := newTestStore()
	store.Upsert(record("stale", 1))

	r, err := NewResyncer(stubReader{records: []complaint.Record{record("fresh", 2)}}, store, ResyncConfig{Schedule: "@every 5m"}, nil)
	require.NoError(t, err)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, []string{"fresh"}, snapshotIDs(store.Snapshot()))
}

func TestResyncer_FailureKeepsLastSnapshot(t *testing.T) {
	store := newTestStore()
	store.Upsert(record("kept", 1))

	r, err := NewResyncer(stubReader{err: errors.New("db down")}, store, ResyncConfig{Schedule: "@every 5m"}, nil)
	require.NoError(t, err)

	err = r.RunOnce(context.Background())
	assert.True(t, complaint.IsUpstreamUnavailable(err))
	assert.Equal(t, []string{"kept"}, snapshotIDs(store.Snapshot()))
}

func TestResyncer_InvalidSchedule(t *testing.T) {
	_, err := NewResyncer(stubReader{}, newTestStore(), ResyncConfig{Schedule: "every now and then"}, nil)
	assert.Error(t, err)
}

type flakyFeed struct {
	runs int32
}

func (f *flakyFeed) Run(ctx context.Context, sink complaint.Sink) error {
	n := atomic.AddInt32(&f.runs, 1)
	if n == 1 {
		return errors.New("connection reset")
	}
	sink.Upsert(record("from-feed", 1))
	<-ctx.Done()
	return ctx.Err()
}

func TestFollow_RestartsFailedFeed(t *testing.T) {
	store := newTestStore()
	feed := &flakyFeed{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Follow(ctx, feed, store, time.Millisecond, nil) }()

	require.Eventually(t, func() bool {
		_, ok := store.Get("from-feed")
		return ok
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, int32(2), atomic.LoadInt32(&feed.runs))
}
