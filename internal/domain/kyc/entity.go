package kyc

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the document category a tier derivation cares about
type Kind string

const (
	KindIdentity Kind = "IDENTITY"
	KindAddress  Kind = "ADDRESS"
)

// Status is the review state of a submitted document
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Document is one uploaded verification document. The file itself lives in
// object storage under ObjectKey; only metadata is in the database.
type Document struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Kind        Kind      `db:"kind"`
	Status      Status    `db:"status"`
	ObjectKey   string    `db:"object_key"`
	FileName    string    `db:"file_name"`
	ContentType string    `db:"content_type"`
	Reason      string    `db:"reason"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
