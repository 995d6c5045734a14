package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/finvault-api/internal/domain/user"
	"github.com/finvault/finvault-api/internal/domain/wallet"
)

type fakeStore struct {
	mu       sync.Mutex
	pending  map[string]*Pending
	codes    map[string]string
	attempts map[string]int
	cooldown map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pending:  map[string]*Pending{},
		codes:    map[string]string{},
		attempts: map[string]int{},
		cooldown: map[string]bool{},
	}
}

func storeKey(userID uuid.UUID, kind Kind) string {
	return userID.String() + ":" + string(kind)
}

func (s *fakeStore) SavePending(ctx context.Context, token string, p *Pending, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pending[token] = &cp
	return nil
}

func (s *fakeStore) GetPending(ctx context.Context, token string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[token]
	if !ok {
		return nil, ErrPendingExpired
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ConsumePending(ctx context.Context, token string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[token]
	if !ok {
		return nil, ErrPendingExpired
	}
	delete(s.pending, token)
	cp := *p
	return &cp, nil
}

func (s *fakeStore) DeletePending(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, token)
	return nil
}

func (s *fakeStore) SaveCode(ctx context.Context, userID uuid.UUID, kind Kind, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[storeKey(userID, kind)] = hash
	s.attempts[storeKey(userID, kind)] = 0
	return nil
}

func (s *fakeStore) GetCode(ctx context.Context, userID uuid.UUID, kind Kind) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.codes[storeKey(userID, kind)]
	if !ok {
		return "", 0, ErrPendingExpired
	}
	return hash, s.attempts[storeKey(userID, kind)], nil
}

func (s *fakeStore) IncrementAttempts(ctx context.Context, userID uuid.UUID, kind Kind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[storeKey(userID, kind)]++
	return s.attempts[storeKey(userID, kind)], nil
}

func (s *fakeStore) DeleteCode(ctx context.Context, userID uuid.UUID, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, storeKey(userID, kind))
	delete(s.attempts, storeKey(userID, kind))
	return nil
}

func (s *fakeStore) MarkSent(ctx context.Context, userID uuid.UUID, kind Kind, cooldown time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldown[storeKey(userID, kind)] = true
	return nil
}

func (s *fakeStore) RecentlySent(ctx context.Context, userID uuid.UUID, kind Kind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldown[storeKey(userID, kind)], nil
}

func (s *fakeStore) clearCooldown(userID uuid.UUID, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldown[storeKey(userID, kind)] = false
}

type fakeUsers struct {
	byID    map[uuid.UUID]*user.User
	byEmail map[string]*user.User
}

func newFakeUsers(users ...*user.User) *fakeUsers {
	f := &fakeUsers{byID: map[uuid.UUID]*user.User{}, byEmail: map[string]*user.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

type fakeWallets struct {
	byUser map[uuid.UUID]*wallet.Wallet
}

func (f *fakeWallets) GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error) {
	if w, ok := f.byUser[userID]; ok {
		return w, nil
	}
	return nil, wallet.ErrWalletNotFound
}

func (f *fakeWallets) GetForUser(ctx context.Context, userID uuid.UUID, currency string) (*wallet.Wallet, error) {
	if w, ok := f.byUser[userID]; ok {
		return w, nil
	}
	w := &wallet.Wallet{ID: uuid.New(), UserID: userID, Currency: currency}
	f.byUser[userID] = w
	return w, nil
}

type fakeLimits struct {
	transferErr   error
	withdrawalErr error
	dailyErr      error
}

func (f *fakeLimits) WouldExceedTransferLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return f.transferErr
}
func (f *fakeLimits) WouldExceedWithdrawalLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return f.withdrawalErr
}
func (f *fakeLimits) WouldExceedDailyLimit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return f.dailyErr
}

type captureSender struct {
	mu    sync.Mutex
	codes []string
}

func (c *captureSender) SendCode(u *user.User, code string, p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
}

func (c *captureSender) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.codes) == 0 {
		return ""
	}
	return c.codes[len(c.codes)-1]
}

type fakeExecutor struct {
	mu       sync.Mutex
	executed []*Pending
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, p *Pending) (*Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.executed = append(f.executed, p)
	f.mu.Unlock()
	return &Receipt{Reference: "REF0000000000001", Kind: p.Kind, Amount: p.Amount, At: time.Now()}, nil
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	codes    *captureSender
	executor *fakeExecutor
	sender   *user.User
	receiver *user.User
	wallets  *fakeWallets
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sender := &user.User{ID: uuid.New(), Email: "sender@example.com", DisplayName: "Sender"}
	receiver := &user.User{ID: uuid.New(), Email: "receiver@example.com", DisplayName: "Receiver"}
	wallets := &fakeWallets{byUser: map[uuid.UUID]*wallet.Wallet{
		sender.ID:   {ID: uuid.New(), UserID: sender.ID, Balance: decimal.NewFromInt(500), Currency: "EUR"},
		receiver.ID: {ID: uuid.New(), UserID: receiver.ID, Balance: decimal.Zero, Currency: "EUR"},
	}}
	store := newFakeStore()
	cs := &captureSender{}
	exec := &fakeExecutor{}
	svc := NewService(newFakeUsers(sender, receiver), wallets, &fakeLimits{}, store, cs, exec, Options{
		CodeLength:     6,
		CodeTTL:        5 * time.Minute,
		MaxAttempts:    3,
		ResendCooldown: time.Minute,
	})
	return &fixture{svc: svc, store: store, codes: cs, executor: exec, sender: sender, receiver: receiver, wallets: wallets}
}

func TestInitiateAndVerifyTransfer(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(100),
		Description:   "rent",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if fx.codes.last() == "" {
		t.Fatal("expected a code to be sent")
	}
	if len(fx.executor.executed) != 0 {
		t.Fatal("no execution may happen before verification")
	}

	receipt, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, fx.codes.last())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if receipt.Kind != KindTransfer {
		t.Fatalf("expected transfer receipt, got %s", receipt.Kind)
	}
	if len(fx.executor.executed) != 1 {
		t.Fatalf("expected exactly one execution, got %d", len(fx.executor.executed))
	}
}

func TestVerifyTokenIsSingleUse(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	code := fx.codes.last()

	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, code); !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("expected ErrPendingExpired on replay, got %v", err)
	}
	if len(fx.executor.executed) != 1 {
		t.Fatalf("replay must not execute again, got %d executions", len(fx.executor.executed))
	}
}

// gatedStore holds every peek until all expected verifiers have read the
// payload, so the atomic consume is the only thing deciding the winner.
type gatedStore struct {
	Store
	barrier *sync.WaitGroup
}

func (g *gatedStore) GetPending(ctx context.Context, token string) (*Pending, error) {
	p, err := g.Store.GetPending(ctx, token)
	g.barrier.Done()
	g.barrier.Wait()
	return p, err
}

func TestConcurrentVerifyExecutesOnce(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(75),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	code := fx.codes.last()

	var barrier sync.WaitGroup
	barrier.Add(2)
	gated := &gatedStore{Store: fx.store, barrier: &barrier}
	svc := NewService(newFakeUsers(fx.sender, fx.receiver), fx.wallets, &fakeLimits{}, gated, fx.codes, fx.executor, fx.svc.opts)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, code)
			errs <- err
		}()
	}

	var won, lost int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			won++
		case errors.Is(err, ErrPendingExpired):
			lost++
		default:
			t.Fatalf("unexpected verify error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected one winner and one ErrPendingExpired, got %d/%d", won, lost)
	}
	if len(fx.executor.executed) != 1 {
		t.Fatalf("same token executed %d times", len(fx.executor.executed))
	}
}

func TestVerifyAttemptCeilingSurvivesCorrectCode(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	code := fx.codes.last()

	for i := 0; i < 2; i++ {
		if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, "000000"); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: expected ErrInvalidOTP, got %v", i+1, err)
		}
	}
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, "000000"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts on third miss, got %v", err)
	}

	// the correct code arrives too late, the ceiling holds
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts after ceiling, got %v", err)
	}
	if len(fx.executor.executed) != 0 {
		t.Fatal("nothing may execute after the attempt ceiling")
	}
}

func TestVerifyRejectsWrongCaller(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	code := fx.codes.last()

	// the receiver never got a code, so their lookup misses entirely
	if _, err := fx.svc.Verify(context.Background(), fx.receiver.ID, KindTransfer, token, code); !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("expected ErrPendingExpired for foreign caller, got %v", err)
	}
}

func TestVerifyRejectsKindMismatch(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	code := fx.codes.last()

	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindWithdrawal, token, code); !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("expected ErrPendingExpired for kind mismatch, got %v", err)
	}
	if len(fx.executor.executed) != 0 {
		t.Fatal("kind mismatch must not execute")
	}
}

func TestInitiateTransferToSelf(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.sender.Email,
		Amount:        decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestInitiateTransferUnknownReceiver(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: "nobody@example.com",
		Amount:        decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("expected ErrReceiverNotFound, got %v", err)
	}
}

func TestInitiateTransferInsufficientBalance(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(10_000),
	})
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestInitiateTransferFlaggedWallet(t *testing.T) {
	fx := newFixture(t)
	fx.wallets.byUser[fx.sender.ID].Flagged = true

	_, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(10),
	})
	if !errors.Is(err, wallet.ErrWalletFlagged) {
		t.Fatalf("expected ErrWalletFlagged, got %v", err)
	}
}

func TestInitiateTransferCurrencyMismatch(t *testing.T) {
	fx := newFixture(t)
	fx.wallets.byUser[fx.receiver.ID].Currency = "USD"

	_, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(10),
	})
	if !errors.Is(err, wallet.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestResendCooldownAndRotation(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	firstCode := fx.codes.last()

	if err := fx.svc.Resend(context.Background(), fx.sender.ID, token); !errors.Is(err, ErrResendCooldown) {
		t.Fatalf("expected ErrResendCooldown right after initiate, got %v", err)
	}

	fx.store.clearCooldown(fx.sender.ID, KindTransfer)
	if err := fx.svc.Resend(context.Background(), fx.sender.ID, token); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	secondCode := fx.codes.last()

	// only the rotated code verifies now
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, firstCode); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected stale code to be rejected, got %v", err)
	}
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, secondCode); err != nil {
		t.Fatalf("rotated code failed to verify: %v", err)
	}
}

func TestResendResetsAttempts(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateTransfer(context.Background(), fx.sender.ID, InitiateTransferRequest{
		ReceiverEmail: fx.receiver.Email,
		Amount:        decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, "000000"); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("expected ErrInvalidOTP, got %v", err)
		}
	}

	fx.store.clearCooldown(fx.sender.ID, KindTransfer)
	if err := fx.svc.Resend(context.Background(), fx.sender.ID, token); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if _, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindTransfer, token, fx.codes.last()); err != nil {
		t.Fatalf("verify after resend failed: %v", err)
	}
}

func TestInitiateAndVerifyWithdrawal(t *testing.T) {
	fx := newFixture(t)

	token, err := fx.svc.InitiateWithdrawal(context.Background(), fx.sender.ID, InitiateWithdrawalRequest{
		Amount:      decimal.NewFromInt(120),
		AccountName: "Sender Example",
		AccountIBAN: "DE89370400440532013000",
	})
	if err != nil {
		t.Fatalf("initiate withdrawal failed: %v", err)
	}

	receipt, err := fx.svc.Verify(context.Background(), fx.sender.ID, KindWithdrawal, token, fx.codes.last())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if receipt.Kind != KindWithdrawal {
		t.Fatalf("expected withdrawal receipt, got %s", receipt.Kind)
	}
	executed := fx.executor.executed[0]
	if executed.AccountIBAN != "DE89370400440532013000" {
		t.Fatalf("payout target lost: %q", executed.AccountIBAN)
	}
}
