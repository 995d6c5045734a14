package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/domain/user"
	"github.com/finvault/finvault-api/internal/pkg/email"
)

// CompletionNotifier tells both parties a transfer landed. Fire-and-forget,
// failures never block the financial operation.
type CompletionNotifier interface {
	TransferCompleted(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, reference string)
}

// EmailNotifier delivers one-time codes and completion notices over the
// async email queue
type EmailNotifier struct {
	users  UserDirectory
	emails *email.Service
}

func NewEmailNotifier(users UserDirectory, emails *email.Service) *EmailNotifier {
	return &EmailNotifier{users: users, emails: emails}
}

func (n *EmailNotifier) SendCode(u *user.User, code string, p *Pending) {
	subject := "Your transfer verification code"
	if p.Kind == KindWithdrawal {
		subject = "Your withdrawal verification code"
	}
	n.emails.Queue(u.Email, u.DisplayName, "otp_code", subject, map[string]interface{}{
		"Name":   u.DisplayName,
		"Code":   code,
		"Amount": p.Amount.String(),
		"Kind":   string(p.Kind),
	})
}

func (n *EmailNotifier) TransferCompleted(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, reference string) {
	for _, id := range []uuid.UUID{senderID, receiverID} {
		u, err := n.users.GetByID(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("user_id", id.String()).Msg("resolving notification recipient failed")
			continue
		}
		n.emails.Queue(u.Email, u.DisplayName, "transfer_completed", "Transfer completed", map[string]interface{}{
			"Name":      u.DisplayName,
			"Amount":    amount.String(),
			"Reference": reference,
		})
	}
}
