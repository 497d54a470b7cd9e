package complaint

import (
	"context"
	"time"
)

// Sink receives changes pushed by a Feed, in source order
type Sink interface {
	// Replace swaps the whole known set for a fresh snapshot
	Replace(records []Record)

	// Upsert adds or updates a single record
	Upsert(record Record)

	// Remove deletes a record by id
	Remove(id string)
}

// Feed is a push-based source of complaint changes
type Feed interface {
	// Run delivers changes into sink until ctx is done or the source fails
	Run(ctx context.Context, sink Sink) error
}

// Reader reads the complete complaint set from the system of record
type Reader interface {
	// ListAll returns every stored complaint record
	ListAll(ctx context.Context) ([]Record, error)
}

// Writer persists complaint mutations
type Writer interface {
	// Create stores a new complaint
	Create(ctx context.Context, c Complaint) error

	// UpdateStatus writes a status transition and optional priority atomically
	UpdateStatus(ctx context.Context, update StatusUpdate) error

	// UpdatePriority changes only the priority of a complaint
	UpdatePriority(ctx context.Context, id string, priority Priority, at time.Time) error
}

// EventPublisher delivers lifecycle events to interested consumers
type EventPublisher interface {
	// PublishTransition emits a transition event
	PublishTransition(ctx context.Context, event TransitionEvent) error
}

// Authorizer answers whether an actor may change a complaint
type Authorizer interface {
	// CanModify reports whether actor may transition or reprioritize c
	CanModify(ctx context.Context, actor Actor, c Complaint) (bool, error)
}

// Classifier suggests an issue type for a photo
type Classifier interface {
	// Classify returns a suggested issue type and confidence
	Classify(ctx context.Context, image []byte) (Classification, error)
}

// Drafter writes a formal complaint letter
type Drafter interface {
	// Draft returns the letter body for the complaint
	Draft(ctx context.Context, c Complaint) (string, error)
}
