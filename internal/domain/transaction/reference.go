package transaction

import (
	"context"
	"crypto/rand"
)

const (
	// ReferenceLength is the fixed length of every reference code
	ReferenceLength = 16

	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxReferenceAttempts bounds the regenerate-on-collision loop. With a
	// 36^16 space collisions are vanishingly rare; hitting the bound means
	// the random source is broken.
	maxReferenceAttempts = 5
)

func randomReference() string {
	b := make([]byte, ReferenceLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = referenceAlphabet[int(b[i])%len(referenceAlphabet)]
	}
	return string(b)
}

// GenerateReference produces a globally unique 16-character uppercase
// alphanumeric code and reserves it in the reference_links table, so no two
// transactions can ever share a code.
func (r *Repository) GenerateReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref := randomReference()
		reserved, err := r.reserveReference(ctx, ref)
		if err != nil {
			return "", err
		}
		if reserved {
			return ref, nil
		}
	}
	return "", ErrReferenceExhausted
}
