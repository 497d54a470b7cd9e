// internal/adapter/storage/complaint_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// Notifier announces committed changes so every instance's live store
// picks them up
type Notifier interface {
	NotifyUpsert(ctx context.Context, record complaint.Record) error
}

// ComplaintStore is the Postgres system of record for complaints
type ComplaintStore struct {
	db       *pgxpool.Pool
	notifier Notifier
	logger   *slog.Logger
}

// NewComplaintStore creates a new complaint store. notifier may be nil.
func NewComplaintStore(db *pgxpool.Pool, notifier Notifier, logger *slog.Logger) *ComplaintStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplaintStore{
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
}

const complaintColumns = `
	id, user_id, issue_type, status, priority, department,
	latitude, longitude, address, description, formal_complaint, image_path,
	created_at, updated_at
`

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (complaint.Record, error) {
	var r complaint.Record
	err := row.Scan(
		&r.ID,
		&r.SubmitterID,
		&r.IssueType,
		&r.Status,
		&r.Priority,
		&r.Department,
		&r.Latitude,
		&r.Longitude,
		&r.Address,
		&r.Description,
		&r.FormalComplaint,
		&r.ImagePath,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// ListAll returns every stored complaint
func (s *ComplaintStore) ListAll(ctx context.Context) ([]complaint.Record, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints ORDER BY created_at DESC, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying complaints: %w", err)
	}
	defer rows.Close()

	var records []complaint.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning complaint: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complaints: %w", err)
	}

	return records, nil
}

// Create inserts a new complaint
func (s *ComplaintStore) Create(ctx context.Context, c complaint.Complaint) error {
	query := `
		INSERT INTO complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	r := c.ToRecord()
	_, err := s.db.Exec(
		ctx,
		query,
		r.ID,
		r.SubmitterID,
		r.IssueType,
		r.Status,
		r.Priority,
		r.Department,
		r.Latitude,
		r.Longitude,
		r.Address,
		r.Description,
		r.FormalComplaint,
		r.ImagePath,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting complaint: %w", err)
	}

	s.notifyUpsert(ctx, r)
	return nil
}

// UpdateStatus writes a transition and its audit row in one transaction.
// The row is only changed while its stored status still equals update.From.
func (s *ComplaintStore) UpdateStatus(ctx context.Context, update complaint.StatusUpdate) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var priority *string
	if update.Priority != nil {
		p := string(*update.Priority)
		priority = &p
	}

	query := `
		UPDATE complaints
		SET status = $2, priority = COALESCE($3, priority), updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + complaintColumns

	r, err := scanRecord(tx.QueryRow(ctx, query, update.ID, string(update.To), priority, update.At, string(update.From)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.staleTransition(ctx, tx, update)
		}
		return fmt.Errorf("error updating complaint status: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO complaint_transitions (complaint_id, from_status, to_status, priority, actor_id, transitioned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, update.ID, string(update.From), string(update.To), priority, update.ActorID, update.At)
	if err != nil {
		return fmt.Errorf("error recording transition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transition: %w", err)
	}

	s.notifyUpsert(ctx, r)
	return nil
}

// staleTransition explains a guarded update that matched no row
func (s *ComplaintStore) staleTransition(ctx context.Context, tx pgx.Tx, update complaint.StatusUpdate) error {
	var stored string
	err := tx.QueryRow(ctx, `SELECT status FROM complaints WHERE id = $1`, update.ID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return complaint.ErrNotFound
		}
		return fmt.Errorf("error reading complaint status: %w", err)
	}
	if err := update.CheckStored(complaint.Status(stored)); err != nil {
		return err
	}
	return fmt.Errorf("complaint %q changed during transition", update.ID)
}

// UpdatePriority changes the priority of a complaint
func (s *ComplaintStore) UpdatePriority(ctx context.Context, id string, priority complaint.Priority, at time.Time) error {
	query := `
		UPDATE complaints
		SET priority = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + complaintColumns

	r, err := scanRecord(s.db.QueryRow(ctx, query, id, string(priority), at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return complaint.ErrNotFound
		}
		return fmt.Errorf("error updating complaint priority: %w", err)
	}

	s.notifyUpsert(ctx, r)
	return nil
}

// notifyUpsert announces a committed row. A lost notification is repaired
// by the next scheduled resync.
func (s *ComplaintStore) notifyUpsert(ctx context.Context, r complaint.Record) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUpsert(ctx, r); err != nil {
		s.logger.Warn("failed to announce complaint change", "complaint_id", r.ID, "error", err)
	}
}
