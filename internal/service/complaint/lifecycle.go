// internal/service/complaint/lifecycle.go

package complaint

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/metrics"
)

// allowed lists the outgoing edges of the status graph.
// Resolved and rejected have none.
var allowed = map[complaint.Status][]complaint.Status{
	complaint.StatusPending:    {complaint.StatusInProgress, complaint.StatusRejected},
	complaint.StatusInProgress: {complaint.StatusResolved, complaint.StatusRejected},
}

// CanTransition reports whether from -> to is an edge of the status graph
func CanTransition(from, to complaint.Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step
func NextStatuses(s complaint.Status) []complaint.Status {
	next := make([]complaint.Status, len(allowed[s]))
	copy(next, allowed[s])
	return next
}

// Lookup finds the current state of a complaint
type Lookup interface {
	Get(id string) (complaint.Complaint, bool)
}

// LifecycleConfig contains optional collaborators for the lifecycle
type LifecycleConfig struct {
	// Sink receives every written change, usually the live store that
	// also serves as the Lookup
	Sink   complaint.Sink
	Now    func() time.Time
	Logger *slog.Logger
}

// Lifecycle performs authorized status and priority changes.
// Mutations are serialized so each one reads the previous one's result.
type Lifecycle struct {
	lookup     Lookup
	writer     complaint.Writer
	authorizer complaint.Authorizer
	events     complaint.EventPublisher
	sink       complaint.Sink
	now        func() time.Time
	logger     *slog.Logger

	mu sync.Mutex
}

// NewLifecycle creates a new lifecycle service
func NewLifecycle(
	lookup Lookup,
	writer complaint.Writer,
	authorizer complaint.Authorizer,
	events complaint.EventPublisher,
	config LifecycleConfig,
) *Lifecycle {
	l := &Lifecycle{
		lookup:     lookup,
		writer:     writer,
		authorizer: authorizer,
		events:     events,
		sink:       config.Sink,
		now:        config.Now,
		logger:     config.Logger,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Transition moves a complaint to a new status, optionally changing its
// priority in the same write. On any error nothing is written.
func (l *Lifecycle) Transition(
	ctx context.Context,
	actor complaint.Actor,
	id string,
	to complaint.Status,
	priority *complaint.Priority,
) (complaint.Complaint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.load(ctx, actor, id)
	if err != nil {
		if complaint.IsAuthorizationError(err) {
			metrics.Transitions.WithLabelValues(string(to), "unauthorized").Inc()
		}
		return complaint.Complaint{}, err
	}

	if !CanTransition(current.Status, to) {
		metrics.Transitions.WithLabelValues(string(to), "invalid").Inc()
		return complaint.Complaint{}, complaint.NewTransitionError(id, current.Status, to)
	}

	at := l.stamp(current)
	update := complaint.StatusUpdate{
		ID:       id,
		From:     current.Status,
		To:       to,
		Priority: priority,
		ActorID:  actor.ID,
		At:       at,
	}

	if err := l.writer.UpdateStatus(ctx, update); err != nil {
		metrics.Transitions.WithLabelValues(string(to), "failed").Inc()
		return complaint.Complaint{}, upstream(err)
	}
	metrics.Transitions.WithLabelValues(string(to), "ok").Inc()

	updated := current.Clone()
	updated.Status = to
	updated.UpdatedAt = at
	if priority != nil {
		updated.Priority = *priority
	}
	l.writeThrough(updated)

	l.publish(ctx, complaint.TransitionEvent{
		ID:          uuid.New().String(),
		ComplaintID: id,
		From:        current.Status,
		To:          to,
		Priority:    priority,
		ActorID:     actor.ID,
		Timestamp:   at,
	})

	l.logger.Info("complaint transitioned",
		"complaint_id", id,
		"from", current.Status,
		"to", to,
		"actor_id", actor.ID,
	)

	return updated, nil
}

// SetPriority changes only the priority of a complaint. Priority may be
// changed in any status by an actor allowed to modify the complaint.
func (l *Lifecycle) SetPriority(
	ctx context.Context,
	actor complaint.Actor,
	id string,
	priority complaint.Priority,
) (complaint.Complaint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.load(ctx, actor, id)
	if err != nil {
		return complaint.Complaint{}, err
	}

	at := l.stamp(current)
	if err := l.writer.UpdatePriority(ctx, id, priority, at); err != nil {
		return complaint.Complaint{}, upstream(err)
	}

	updated := current.Clone()
	updated.Priority = priority
	updated.UpdatedAt = at
	l.writeThrough(updated)

	l.logger.Info("complaint reprioritized",
		"complaint_id", id,
		"priority", priority,
		"actor_id", actor.ID,
	)

	return updated, nil
}

// load returns the current complaint once actor is authorized for it.
// An unknown id is authorized against an empty complaint first, so only
// actors that could modify it learn that it does not exist.
func (l *Lifecycle) load(ctx context.Context, actor complaint.Actor, id string) (complaint.Complaint, error) {
	current, ok := l.lookup.Get(id)
	if !ok {
		current = complaint.Complaint{ID: id}
	}

	if err := l.authorize(ctx, actor, current); err != nil {
		return complaint.Complaint{}, err
	}
	if !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return current, nil
}

func (l *Lifecycle) authorize(ctx context.Context, actor complaint.Actor, c complaint.Complaint) error {
	ok, err := l.authorizer.CanModify(ctx, actor, c)
	if err != nil {
		return complaint.NewUpstreamUnavailable("authorizer", err)
	}
	if !ok {
		return complaint.NewAuthorizationError(actor.ID, "cannot modify complaint "+c.ID)
	}
	return nil
}

// writeThrough applies a written change to the sink ahead of the feed's echo
func (l *Lifecycle) writeThrough(c complaint.Complaint) {
	if l.sink != nil {
		l.sink.Upsert(c.ToRecord())
	}
}

// stamp returns the transition time, never earlier than creation
func (l *Lifecycle) stamp(c complaint.Complaint) time.Time {
	at := l.now().UTC()
	if at.Before(c.CreatedAt) {
		at = c.CreatedAt
	}
	return at
}

func (l *Lifecycle) publish(ctx context.Context, event complaint.TransitionEvent) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishTransition(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		l.logger.Warn("failed to publish transition event",
			"complaint_id", event.ComplaintID,
			"error", err,
		)
	}
}

func upstream(err error) error {
	if errors.Is(err, complaint.ErrNotFound) || complaint.IsTransitionError(err) || complaint.IsUpstreamUnavailable(err) {
		return err
	}
	return complaint.NewUpstreamUnavailable("complaint store", err)
}

// RoleAuthorizer grants modification rights to admins and to department
// officials whose department owns the complaint.
type RoleAuthorizer struct{}

// CanModify implements complaint.Authorizer
func (RoleAuthorizer) CanModify(_ context.Context, actor complaint.Actor, c complaint.Complaint) (bool, error) {
	switch actor.Role {
	case complaint.RoleAdmin:
		return true, nil
	case complaint.RoleDepartment:
		dept := strings.TrimSpace(actor.Department)
		return dept != "" && strings.EqualFold(dept, strings.TrimSpace(c.Department)), nil
	default:
		return false, nil
	}
}
