// internal/service/live/store.go

package live

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
)

// Store holds the authoritative in-memory complaint set and fans every
// change out to its subscribers. It implements complaint.Sink.
//
// Each subscriber gets its own FIFO queue and delivery goroutine, so a
// slow view never delays another and callbacks for one subscriber never
// overlap.
type Store struct {
	validator *complaintService.Validator
	logger    *slog.Logger

	mu       sync.Mutex
	items    map[string]complaint.Complaint
	snapshot []complaint.Complaint
	version  uint64
	subs     map[uint64]*subscriber
	nextSub  uint64
	closed   bool
}

// NewStore creates an empty live store
func NewStore(validator *complaintService.Validator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		validator: validator,
		logger:    logger,
		items:     make(map[string]complaint.Complaint),
		snapshot:  []complaint.Complaint{},
		subs:      make(map[uint64]*subscriber),
	}
}

// Subscribe registers onChange. It is called with the current set right
// away and again after every change, in the order changes were applied.
//
// The returned function cancels the subscription. It is idempotent and
// returns once no callback is running, after which onChange is never
// called again. It must not be called from inside onChange.
func (s *Store) Subscribe(onChange func([]complaint.Complaint)) (unsubscribe func()) {
	sub := newSubscriber(onChange)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	sub.enqueue(s.snapshot)
	s.mu.Unlock()

	metrics.Subscribers.Inc()
	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()

			if sub.stop() {
				metrics.Subscribers.Dec()
			}
		})
	}
}

// Replace swaps the whole set for a fresh snapshot from the source
func (s *Store) Replace(records []complaint.Record) {
	items := make(map[string]complaint.Complaint, len(records))
	for _, r := range records {
		c, ok := s.normalize(r)
		if !ok {
			continue
		}
		items[c.ID] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	s.publishLocked("replace")
}

// Upsert adds or updates a single complaint. A malformed record, or one
// older than the complaint already held, leaves the store untouched.
func (s *Store) Upsert(record complaint.Record) {
	c, ok := s.normalize(record)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.items[c.ID]; ok && held.UpdatedAt.After(c.UpdatedAt) {
		return
	}
	s.items[c.ID] = c
	s.publishLocked("upsert")
}

// Remove deletes a complaint by id
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	s.publishLocked("remove")
}

// Snapshot returns a copy of the current set, newest first
func (s *Store) Snapshot() []complaint.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copySnapshot(s.snapshot)
}

// Get returns the current state of one complaint
func (s *Store) Get(id string) (complaint.Complaint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[id]
	if !ok {
		return complaint.Complaint{}, false
	}
	return c.Clone(), true
}

// Version increases by one for every applied change
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}

// Close tears down every subscription. Later changes are still applied
// but nobody is notified.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.stop() {
			metrics.Subscribers.Dec()
		}
	}
}

func (s *Store) normalize(r complaint.Record) (complaint.Complaint, bool) {
	c, err := s.validator.Normalize(r)
	if err != nil {
		metrics.RecordsDropped.Inc()
		s.logger.Warn("dropping malformed complaint record",
			"complaint_id", r.ID,
			"error", err,
		)
		return complaint.Complaint{}, false
	}
	return c, true
}

// publishLocked rebuilds the snapshot and queues it for every subscriber.
// Callers must hold s.mu, which fixes the delivery order.
func (s *Store) publishLocked(kind string) {
	snapshot := make([]complaint.Complaint, 0, len(s.items))
	for _, c := range s.items {
		snapshot = append(snapshot, c)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		a, b := snapshot[i], snapshot[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	s.snapshot = snapshot
	s.version++

	for _, sub := range s.subs {
		sub.enqueue(snapshot)
	}

	metrics.StoreChanges.WithLabelValues(kind).Inc()
	metrics.StoreComplaints.Set(float64(len(snapshot)))
}

func copySnapshot(snapshot []complaint.Complaint) []complaint.Complaint {
	out := make([]complaint.Complaint, len(snapshot))
	for i, c := range snapshot {
		out[i] = c.Clone()
	}
	return out
}

// subscriber delivers queued snapshots one at a time on its own goroutine
type subscriber struct {
	onChange func([]complaint.Complaint)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]complaint.Complaint
	stopped bool
	done    chan struct{}
}

func newSubscriber(onChange func([]complaint.Complaint)) *subscriber {
	sub := &subscriber{
		onChange: onChange,
		done:     make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

func (sub *subscriber) enqueue(snapshot []complaint.Complaint) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.stopped {
		return
	}
	sub.queue = append(sub.queue, snapshot)
	sub.cond.Signal()
}

func (sub *subscriber) run() {
	defer close(sub.done)

	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.stopped {
			sub.cond.Wait()
		}
		if sub.stopped {
			sub.mu.Unlock()
			return
		}
		next := sub.queue[0]
		sub.queue[0] = nil
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		sub.onChange(copySnapshot(next))
	}
}

// stop discards undelivered snapshots and waits for the delivery
// goroutine to exit. It reports whether this call did the stopping.
func (sub *subscriber) stop() bool {
	sub.mu.Lock()
	first := !sub.stopped
	sub.stopped = true
	sub.queue = nil
	sub.cond.Broadcast()
	sub.mu.Unlock()

	<-sub.done
	return first
}
