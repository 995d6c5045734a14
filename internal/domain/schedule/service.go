package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finvault/finvault-api/internal/domain/transfer"
	"github.com/finvault/finvault-api/internal/domain/user"
	"github.com/finvault/finvault-api/internal/events"
	"github.com/finvault/finvault-api/internal/pkg/email"
)

// Service creates, mutates and chains scheduled transfers. Due-date
// execution reuses the same executor as an instant transfer; the OTP step
// is skipped because the user authorized the movement at scheduling time.
type Service struct {
	repo       *Repository
	users      transfer.UserDirectory
	wallets    transfer.WalletDirectory
	executor   transfer.Executor
	hub        *events.Hub
	emails     *email.Service
	maxRetries int
}

func NewService(
	repo *Repository,
	users transfer.UserDirectory,
	wallets transfer.WalletDirectory,
	executor transfer.Executor,
	hub *events.Hub,
	emails *email.Service,
	maxRetries int,
) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		wallets:    wallets,
		executor:   executor,
		hub:        hub,
		emails:     emails,
		maxRetries: maxRetries,
	}
}

func validateRecurrence(recurrence Recurrence, end *time.Time, total *int, now time.Time) error {
	if recurrence == RecurrenceNone {
		return nil
	}
	if end != nil && end.After(now) {
		return nil
	}
	if total != nil && *total > 0 {
		return nil
	}
	return ErrRecurrenceParams
}

// Schedule creates a PENDING row with occurrence index 1. A recurring
// series uses its first row's id as the parent id for every member.
func (s *Service) Schedule(ctx context.Context, callerID uuid.UUID, req ScheduleRequest) (*ScheduledTransfer, error) {
	now := time.Now().UTC()
	if !req.ScheduledAt.After(now) {
		return nil, ErrPastSchedule
	}

	recurrence := RecurrenceNone
	if req.Recurrence != "" {
		recurrence = Recurrence(req.Recurrence)
	}
	if err := validateRecurrence(recurrence, req.RecurrenceEnd, req.TotalOccurrences, now); err != nil {
		return nil, err
	}

	receiver, err := s.users.GetByEmail(ctx, req.ReceiverEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}
	if receiver.ID == callerID {
		return nil, ErrSelfSchedule
	}

	row := &ScheduledTransfer{
		ID:                uuid.New(),
		SenderID:          callerID,
		ReceiverID:        receiver.ID,
		Amount:            req.Amount,
		Description:       req.Description,
		ScheduledAt:       req.ScheduledAt.UTC(),
		Status:            StatusPending,
		Recurrence:        recurrence,
		RecurrenceEnd:     req.RecurrenceEnd,
		TotalOccurrences:  req.TotalOccurrences,
		CurrentOccurrence: 1,
	}
	row.ParentID = row.ID

	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, events.Event{
		Type:   events.EventScheduleCreated,
		UserID: callerID,
		Data: map[string]interface{}{
			"schedule_id":  row.ID,
			"amount":       row.Amount,
			"scheduled_at": row.ScheduledAt,
			"recurrence":   row.Recurrence,
		},
	})
	s.notify(ctx, callerID, "schedule_created", "Transfer scheduled", map[string]interface{}{
		"Amount":      row.Amount.String(),
		"ScheduledAt": row.ScheduledAt.Format(time.RFC1123),
	})

	log.Info().
		Str("schedule_id", row.ID.String()).
		Str("amount", row.Amount.String()).
		Str("recurrence", string(row.Recurrence)).
		Time("scheduled_at", row.ScheduledAt).
		Msg("transfer scheduled")
	return row, nil
}

// Update rewrites a PENDING row's fields, re-validating recurrence
// parameters when they change
func (s *Service) Update(ctx context.Context, id, callerID uuid.UUID, req UpdateRequest) (*ScheduledTransfer, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.SenderID != callerID {
		return nil, ErrNotOwner
	}
	if row.Status != StatusPending {
		return nil, ErrNotPending
	}

	now := time.Now().UTC()
	if req.Amount != nil {
		row.Amount = *req.Amount
	}
	if req.Description != nil {
		row.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		if !req.ScheduledAt.After(now) {
			return nil, ErrPastSchedule
		}
		row.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Recurrence != nil {
		row.Recurrence = Recurrence(*req.Recurrence)
	}
	if req.RecurrenceEnd != nil {
		row.RecurrenceEnd = req.RecurrenceEnd
	}
	if req.TotalOccurrences != nil {
		row.TotalOccurrences = req.TotalOccurrences
	}
	if err := validateRecurrence(row.Recurrence, row.RecurrenceEnd, row.TotalOccurrences, now); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Cancel moves a PENDING row to CANCELLED; terminal rows are rejected
func (s *Service) Cancel(ctx context.Context, id, callerID uuid.UUID) error {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if row.SenderID != callerID {
		return ErrNotOwner
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return err
	}

	s.hub.Publish(ctx, events.Event{
		Type:   events.EventScheduleCancelled,
		UserID: callerID,
		Data:   map[string]interface{}{"schedule_id": id},
	})
	s.notify(ctx, callerID, "schedule_cancelled", "Scheduled transfer cancelled", map[string]interface{}{
		"Amount": row.Amount.String(),
	})
	return nil
}

// CancelSeries cancels every PENDING member of a recurring series, leaving
// executed members untouched
func (s *Service) CancelSeries(ctx context.Context, parentID, callerID uuid.UUID) (int64, error) {
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if parent.SenderID != callerID {
		return 0, ErrNotOwner
	}

	n, err := s.repo.CancelSeries(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hub.Publish(ctx, events.Event{
			Type:   events.EventScheduleCancelled,
			UserID: callerID,
			Data:   map[string]interface{}{"series_id": parentID, "cancelled": n},
		})
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, callerID uuid.UUID, limit, offset int) ([]ScheduledTransfer, error) {
	return s.repo.ListByUser(ctx, callerID, limit, offset)
}

func (s *Service) Series(ctx context.Context, parentID, callerID uuid.UUID) ([]ScheduledTransfer, error) {
	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.SenderID != callerID {
		return nil, ErrNotOwner
	}
	return s.repo.ListSeries(ctx, parentID)
}

// ExecuteDue claims due rows and runs each through the transfer executor.
// Claiming marks rows processed first, so a redelivered or concurrently
// polled row is a no-op; transient failures are released for retry until
// the retry ceiling, then marked FAILED.
func (s *Service) ExecuteDue(ctx context.Context, batchSize int) error {
	rows, err := s.repo.ClaimDue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return err
	}

	for i := range rows {
		s.executeOne(ctx, &rows[i])
	}
	return nil
}

func (s *Service) executeOne(ctx context.Context, row *ScheduledTransfer) {
	receipt, err := s.execute(ctx, row)
	if err != nil {
		if row.RetryCount+1 >= s.maxRetries {
			log.Error().Err(err).
				Str("schedule_id", row.ID.String()).
				Int("retries", row.RetryCount).
				Msg("scheduled transfer failed permanently")
			if markErr := s.repo.MarkFailed(ctx, row.ID, err.Error()); markErr != nil {
				log.Error().Err(markErr).Str("schedule_id", row.ID.String()).Msg("marking schedule failed")
			}
			s.hub.Publish(ctx, events.Event{
				Type:   events.EventScheduleFailed,
				UserID: row.SenderID,
				Data:   map[string]interface{}{"schedule_id": row.ID, "reason": err.Error()},
			})
			s.notify(ctx, row.SenderID, "schedule_failed", "Scheduled transfer failed", map[string]interface{}{
				"Amount": row.Amount.String(),
				"Reason": err.Error(),
			})
			return
		}

		log.Warn().Err(err).
			Str("schedule_id", row.ID.String()).
			Int("retry", row.RetryCount+1).
			Msg("scheduled transfer execution failed, will retry")
		if relErr := s.repo.Release(ctx, row.ID, err.Error()); relErr != nil {
			log.Error().Err(relErr).Str("schedule_id", row.ID.String()).Msg("releasing schedule for retry failed")
		}
		return
	}

	if err := s.repo.MarkExecuted(ctx, row.ID, receipt.Reference); err != nil {
		log.Error().Err(err).Str("schedule_id", row.ID.String()).Msg("marking schedule executed failed")
	}

	s.hub.Publish(ctx, events.Event{
		Type:   events.EventScheduleExecuted,
		UserID: row.SenderID,
		Data: map[string]interface{}{
			"schedule_id": row.ID,
			"reference":   receipt.Reference,
			"amount":      row.Amount,
		},
	})
	s.notify(ctx, row.SenderID, "schedule_executed", "Scheduled transfer executed", map[string]interface{}{
		"Amount":    row.Amount.String(),
		"Reference": receipt.Reference,
	})

	if err := s.ScheduleNextOccurrenceIfNeeded(ctx, row); err != nil {
		log.Error().Err(err).Str("schedule_id", row.ID.String()).Msg("chaining next occurrence failed")
	}
}

// execute builds the pending payload an instant transfer would have parked
// and runs the shared execution path
func (s *Service) execute(ctx context.Context, row *ScheduledTransfer) (*transfer.Receipt, error) {
	senderWallet, err := s.wallets.GetByUserID(ctx, row.SenderID)
	if err != nil {
		return nil, err
	}
	receiverWallet, err := s.wallets.GetForUser(ctx, row.ReceiverID, senderWallet.Currency)
	if err != nil {
		return nil, err
	}

	return s.executor.Execute(ctx, &transfer.Pending{
		Kind:             transfer.KindTransfer,
		SenderID:         row.SenderID,
		SenderWalletID:   senderWallet.ID,
		ReceiverID:       row.ReceiverID,
		ReceiverWalletID: receiverWallet.ID,
		Amount:           row.Amount,
		Description:      row.Description,
		CreatedAt:        row.CreatedAt,
	})
}

// ScheduleNextOccurrenceIfNeeded chains the next PENDING row of a recurring
// series: same parent, occurrence incremented, timestamp advanced by one
// recurrence unit. One-time transfers, a reached occurrence cap or a next
// date past the series end all stop the chain.
func (s *Service) ScheduleNextOccurrenceIfNeeded(ctx context.Context, current *ScheduledTransfer) error {
	if current.Recurrence == RecurrenceNone {
		return nil
	}
	if current.TotalOccurrences != nil && current.CurrentOccurrence >= *current.TotalOccurrences {
		return nil
	}

	next := current.NextScheduledAt()
	if current.RecurrenceEnd != nil && next.After(*current.RecurrenceEnd) {
		return nil
	}

	row := &ScheduledTransfer{
		ID:                uuid.New(),
		SenderID:          current.SenderID,
		ReceiverID:        current.ReceiverID,
		Amount:            current.Amount,
		Description:       current.Description,
		ScheduledAt:       next,
		Status:            StatusPending,
		Recurrence:        current.Recurrence,
		RecurrenceEnd:     current.RecurrenceEnd,
		TotalOccurrences:  current.TotalOccurrences,
		CurrentOccurrence: current.CurrentOccurrence + 1,
		ParentID:          current.ParentID,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return err
	}

	log.Info().
		Str("series_id", current.ParentID.String()).
		Int("occurrence", row.CurrentOccurrence).
		Time("scheduled_at", next).
		Msg("next occurrence scheduled")
	return nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, template, subject string, data map[string]interface{}) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("resolving notification recipient failed")
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Name"] = u.DisplayName
	s.emails.Queue(u.Email, u.DisplayName, template, subject, data)
}
