package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const columns = `id, sender_id, receiver_id, amount, description, scheduled_at, status,
	recurrence, recurrence_end, total_occurrences, current_occurrence, parent_id,
	processed, retry_count, reference, failure_reason, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

func (r *Repository) Insert(ctx context.Context, s *ScheduledTransfer) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_transfers
			(id, sender_id, receiver_id, amount, description, scheduled_at, status,
			 recurrence, recurrence_end, total_occurrences, current_occurrence, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, s.ID, s.SenderID, s.ReceiverID, s.Amount, s.Description, s.ScheduledAt, s.Status,
		s.Recurrence, s.RecurrenceEnd, s.TotalOccurrences, s.CurrentOccurrence, s.ParentID)
	if err != nil {
		return fmt.Errorf("schedule repository insert: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*ScheduledTransfer, error) {
	var s ScheduledTransfer
	err := r.db.GetContext(ctx, &s, `
		SELECT `+columns+` FROM scheduled_transfers WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule repository get by id: %w", err)
	}
	return &s, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]ScheduledTransfer, error) {
	var rows []ScheduledTransfer
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+columns+` FROM scheduled_transfers
		WHERE sender_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("schedule repository list by user: %w", err)
	}
	return rows, nil
}

// ListSeries returns every member of a recurring series, oldest first
func (r *Repository) ListSeries(ctx context.Context, parentID uuid.UUID) ([]ScheduledTransfer, error) {
	var rows []ScheduledTransfer
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+columns+` FROM scheduled_transfers
		WHERE parent_id = $1
		ORDER BY current_occurrence ASC
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("schedule repository list series: %w", err)
	}
	return rows, nil
}

// ClaimDue atomically picks due PENDING rows and marks them processed so a
// worker on another instance cannot pick the same row. SKIP LOCKED keeps
// competing workers from blocking each other.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]ScheduledTransfer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rows []ScheduledTransfer
	err = tx.SelectContext(ctx, &rows, `
		SELECT `+columns+` FROM scheduled_transfers
		WHERE status = 'PENDING' AND processed = FALSE AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("schedule repository claim due select: %w", err)
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	query, args, err := sqlx.In(`
		UPDATE scheduled_transfers SET processed = TRUE, updated_at = now() WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("schedule repository claim due: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("schedule repository claim due update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkExecuted(ctx context.Context, id uuid.UUID, reference string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET status = 'EXECUTED', reference = $1, updated_at = now()
		WHERE id = $2
	`, reference, id)
	if err != nil {
		return fmt.Errorf("schedule repository mark executed: %w", err)
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET status = 'FAILED', failure_reason = $1, updated_at = now()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return fmt.Errorf("schedule repository mark failed: %w", err)
	}
	return nil
}

// Release puts a claimed row back for another attempt and bumps the retry
// counter
func (r *Repository) Release(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET processed = FALSE, retry_count = retry_count + 1, failure_reason = $1, updated_at = now()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return fmt.Errorf("schedule repository release: %w", err)
	}
	return nil
}

// Cancel moves a PENDING row to CANCELLED. Returns ErrNotPending when the
// row is in a terminal state already.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET status = 'CANCELLED', processed = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	if err != nil {
		return fmt.Errorf("schedule repository cancel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// CancelSeries cancels every PENDING member of a series, leaving executed
// members untouched. Returns how many rows were cancelled.
func (r *Repository) CancelSeries(ctx context.Context, parentID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET status = 'CANCELLED', processed = TRUE, updated_at = now()
		WHERE parent_id = $1 AND status = 'PENDING'
	`, parentID)
	if err != nil {
		return 0, fmt.Errorf("schedule repository cancel series: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Update rewrites the mutable fields of a PENDING row
func (r *Repository) Update(ctx context.Context, s *ScheduledTransfer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_transfers
		SET amount = $1, description = $2, scheduled_at = $3, recurrence = $4,
		    recurrence_end = $5, total_occurrences = $6, updated_at = now()
		WHERE id = $7 AND status = 'PENDING'
	`, s.Amount, s.Description, s.ScheduledAt, s.Recurrence,
		s.RecurrenceEnd, s.TotalOccurrences, s.ID)
	if err != nil {
		return fmt.Errorf("schedule repository update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}
