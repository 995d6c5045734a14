package kyc

import "errors"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidKind      = errors.New("invalid document kind")
	ErrAlreadyApproved  = errors.New("document already approved")
	ErrFileTooLarge     = errors.New("file exceeds size limit")
)
