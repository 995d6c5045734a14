package kyc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kyc_documents (id, user_id, kind, status, object_key, file_name, content_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.UserID, d.Kind, d.Status, d.ObjectKey, d.FileName, d.ContentType)
	if err != nil {
		return fmt.Errorf("kyc repository insert: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var d Document
	err := r.db.GetContext(ctx, &d, `
		SELECT id, user_id, kind, status, object_key, file_name, content_type, reason, created_at, updated_at
		FROM kyc_documents WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kyc repository get by id: %w", err)
	}
	return &d, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	var docs []Document
	err := r.db.SelectContext(ctx, &docs, `
		SELECT id, user_id, kind, status, object_key, file_name, content_type, reason, created_at, updated_at
		FROM kyc_documents WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("kyc repository list by user: %w", err)
	}
	return docs, nil
}

// ListPending returns documents awaiting review, oldest first
func (r *Repository) ListPending(ctx context.Context, limit, offset int) ([]Document, error) {
	var docs []Document
	err := r.db.SelectContext(ctx, &docs, `
		SELECT id, user_id, kind, status, object_key, file_name, content_type, reason, created_at, updated_at
		FROM kyc_documents WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("kyc repository list pending: %w", err)
	}
	return docs, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE kyc_documents SET status = $1, reason = $2, updated_at = now() WHERE id = $3
	`, status, reason, id)
	if err != nil {
		return fmt.Errorf("kyc repository update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// HasApproved reports whether the user has an APPROVED document of the kind
func (r *Repository) HasApproved(ctx context.Context, userID uuid.UUID, kind Kind) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM kyc_documents
			WHERE user_id = $1 AND kind = $2 AND status = 'APPROVED'
		)
	`, userID, kind)
	if err != nil {
		return false, fmt.Errorf("kyc repository has approved: %w", err)
	}
	return exists, nil
}
