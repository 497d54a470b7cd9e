// internal/adapter/firestoredb/store.go

package firestoredb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// transitionsCollection is the audit subcollection under each complaint
const transitionsCollection = "transitions"

// Config holds Firestore connection settings
type Config struct {
	ProjectID       string
	CredentialsFile string
	// CredentialsBase64 is a base64 encoded service account JSON
	CredentialsBase64 string
}

// clientOptions builds the credential options for the Firebase app
func clientOptions(cfg Config) ([]option.ClientOption, error) {
	switch {
	case cfg.CredentialsBase64 != "":
		creds, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding firestore credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	default:
		// Application default credentials
		return nil, nil
	}
}

// NewClient initializes a Firestore client through the Firebase app
func NewClient(ctx context.Context, cfg Config) (*firestore.Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	return client, nil
}

// Store keeps complaints in a Firestore collection. It is both the
// system of record and a push feed.
type Store struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewStore creates a new Firestore complaint store
func NewStore(client *firestore.Client, collection string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if collection == "" {
		collection = "complaints"
	}
	return &Store{
		client:     client,
		collection: collection,
		logger:     logger,
	}
}

// Run implements complaint.Feed. Every query snapshot replaces the
// complete set.
func (s *Store) Run(ctx context.Context, sink complaint.Sink) error {
	it := s.client.Collection(s.collection).Snapshots(ctx)
	defer it.Stop()

	s.logger.Info("listening to firestore collection", "collection", s.collection)

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return complaint.NewUpstreamUnavailable("firestore", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return complaint.NewUpstreamUnavailable("firestore", err)
		}

		sink.Replace(s.decode(docs))
	}
}

// ListAll returns every stored complaint
func (s *Store) ListAll(ctx context.Context) ([]complaint.Record, error) {
	docs, err := s.client.Collection(s.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing complaints: %w", err)
	}
	return s.decode(docs), nil
}

// decode converts documents into records, skipping any that do not fit
func (s *Store) decode(docs []*firestore.DocumentSnapshot) []complaint.Record {
	records := make([]complaint.Record, 0, len(docs))
	for _, doc := range docs {
		var r complaint.Record
		if err := doc.DataTo(&r); err != nil {
			s.logger.Warn("skipping undecodable complaint document", "doc_id", doc.Ref.ID, "error", err)
			continue
		}
		r.ID = doc.Ref.ID
		records = append(records, r)
	}
	return records
}

// Create inserts a new complaint document keyed by its ID
func (s *Store) Create(ctx context.Context, c complaint.Complaint) error {
	_, err := s.client.Collection(s.collection).Doc(c.ID).Create(ctx, c.ToRecord())
	if err != nil {
		return fmt.Errorf("error creating complaint: %w", err)
	}
	return nil
}

// UpdateStatus writes a transition and its audit entry in one transaction
func (s *Store) UpdateStatus(ctx context.Context, update complaint.StatusUpdate) error {
	ref := s.client.Collection(s.collection).Doc(update.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return complaint.ErrNotFound
			}
			return fmt.Errorf("error reading complaint: %w", err)
		}
		if err := checkStored(update, snap.Data()); err != nil {
			return err
		}

		if err := tx.Update(ref, statusUpdates(update)); err != nil {
			return fmt.Errorf("error updating complaint status: %w", err)
		}

		return tx.Create(ref.Collection(transitionsCollection).NewDoc(), auditEntry(update))
	})
	if err != nil {
		if errors.Is(err, complaint.ErrNotFound) || complaint.IsTransitionError(err) {
			return err
		}
		return fmt.Errorf("error running transition: %w", err)
	}

	return nil
}

// UpdatePriority changes the priority of a complaint
func (s *Store) UpdatePriority(ctx context.Context, id string, priority complaint.Priority, at time.Time) error {
	_, err := s.client.Collection(s.collection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "priority", Value: string(priority)},
		{Path: "updated_at", Value: at},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return complaint.ErrNotFound
		}
		return fmt.Errorf("error updating complaint priority: %w", err)
	}
	return nil
}

// checkStored compares the document's status with the transition's origin
func checkStored(update complaint.StatusUpdate, data map[string]interface{}) error {
	raw, _ := data["status"].(string)
	stored, ok := complaint.ParseStatus(raw)
	if !ok {
		stored = complaint.Status(raw)
	}
	return update.CheckStored(stored)
}

// statusUpdates lists the fields a transition touches
func statusUpdates(update complaint.StatusUpdate) []firestore.Update {
	updates := []firestore.Update{
		{Path: "status", Value: string(update.To)},
		{Path: "updated_at", Value: update.At},
	}
	if update.Priority != nil {
		updates = append(updates, firestore.Update{Path: "priority", Value: string(*update.Priority)})
	}
	return updates
}

func auditEntry(update complaint.StatusUpdate) map[string]interface{} {
	entry := map[string]interface{}{
		"from_status":     string(update.From),
		"to_status":       string(update.To),
		"actor_id":        update.ActorID,
		"transitioned_at": update.At,
	}
	if update.Priority != nil {
		entry["priority"] = string(*update.Priority)
	}
	return entry
}
