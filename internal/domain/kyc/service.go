package kyc

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finvault/finvault-api/internal/pkg/storage"
)

// Service stores document files in object storage and the review state in
// the database. Approval state feeds verification tier derivation.
type Service struct {
	repo  *Repository
	store storage.Storage
}

func NewService(repo *Repository, store storage.Storage) *Service {
	return &Service{repo: repo, store: store}
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIdentity, KindAddress:
		return Kind(s), nil
	}
	return "", ErrInvalidKind
}

// Upload stores the file and records a PENDING document
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, kind Kind, fileName, contentType string, file io.Reader) (*Document, error) {
	doc := &Document{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		Status:      StatusPending,
		FileName:    fileName,
		ContentType: contentType,
	}
	doc.ObjectKey = fmt.Sprintf("kyc/%s/%s%s", userID, doc.ID, path.Ext(fileName))

	if err := s.store.Put(ctx, doc.ObjectKey, file, contentType); err != nil {
		return nil, fmt.Errorf("kyc upload: %w", err)
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		// metadata write failed, don't leave an orphan object behind
		if delErr := s.store.Delete(ctx, doc.ObjectKey); delErr != nil {
			log.Error().Err(delErr).Str("key", doc.ObjectKey).Msg("orphan kyc object cleanup failed")
		}
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("document_id", doc.ID.String()).
		Str("kind", string(kind)).
		Msg("kyc document uploaded")
	return doc, nil
}

// Download streams a stored document, review tooling only
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, doc.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("kyc download: %w", err)
	}
	return doc, rc, nil
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]Document, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.repo.ListPending(ctx, limit, offset)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusApproved, ""); err != nil {
		return err
	}
	log.Info().Str("document_id", id.String()).Str("user_id", doc.UserID.String()).Msg("kyc document approved")
	return nil
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusRejected, reason); err != nil {
		return err
	}
	log.Info().Str("document_id", id.String()).Str("reason", reason).Msg("kyc document rejected")
	return nil
}

// ApprovalState reports which document kinds the user has approved. The
// limits service derives the verification tier from this.
func (s *Service) ApprovalState(ctx context.Context, userID uuid.UUID) (identity, address bool, err error) {
	identity, err = s.repo.HasApproved(ctx, userID, KindIdentity)
	if err != nil {
		return false, false, err
	}
	address, err = s.repo.HasApproved(ctx, userID, KindAddress)
	if err != nil {
		return false, false, err
	}
	return identity, address, nil
}
