package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/adapter/repository/postgres"
	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
	"github.com/iho/hostledger/tests/testutil"
)

// testBucket keeps checkpoint folding tests fast: a bucket closes well
// within a single test run.
const testBucket = 100 * time.Millisecond

type ledgerStack struct {
	ledgerUC     *usecase.LedgerUseCase
	balanceUC    *usecase.BalanceUseCase
	checkpointUC *usecase.CheckpointUseCase
	settlementUC *usecase.SettlementUseCase
	entryRepo    *postgres.EntryRepository
	outboxRepo   *postgres.OutboxRepository
}

func newLedgerStack(pool *pgxpool.Pool) *ledgerStack {
	txManager := postgres.NewTxManager(pool)
	entryRepo := postgres.NewEntryRepository(pool, testBucket)
	checkpointRepo := postgres.NewCheckpointRepository(pool)
	settlementRepo := postgres.NewSettlementRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()

	return &ledgerStack{
		ledgerUC: usecase.NewLedgerUseCase(
			txManager, entryRepo, checkpointRepo, settlementRepo, outboxRepo, nil, idGen,
			usecase.LedgerConfig{TimeBucket: testBucket},
		),
		balanceUC: usecase.NewBalanceUseCase(
			entryRepo, checkpointRepo, nil, nil,
			usecase.BalanceConfig{},
		),
		checkpointUC: usecase.NewCheckpointUseCase(
			entryRepo, checkpointRepo, outboxRepo, idGen, nil,
			usecase.CheckpointConfig{TimeBucket: testBucket},
		),
		settlementUC: usecase.NewSettlementUseCase(
			txManager, settlementRepo, entryRepo, outboxRepo, idGen,
			usecase.SettlementConfig{GracePeriod: time.Millisecond},
		),
		entryRepo:  entryRepo,
		outboxRepo: outboxRepo,
	}
}

func TestRecordEventAndBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(testDB.Pool)

	from := testutil.GenerateID()
	to := testutil.GenerateID()
	host := testutil.GenerateID()

	groupID, err := stack.ledgerUC.RecordEvent(ctx, testutil.ContributionEvent(from, to, host, 100))
	if err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	legs, err := stack.ledgerUC.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("failed to get group: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}

	net := decimal.Zero
	for _, leg := range legs {
		net = net.Add(leg.AmountInHostCurrency)
	}
	if !net.IsZero() {
		t.Fatalf("group does not net to zero: %s", net)
	}

	toBalance, err := stack.balanceUC.CurrentBalance(ctx, to, usecase.BalanceOptions{})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !toBalance.Available.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected receiver balance 100, got %s", toBalance.Available)
	}

	fromBalance, err := stack.balanceUC.CurrentBalance(ctx, from, usecase.BalanceOptions{})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !fromBalance.Available.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("expected sender balance -100, got %s", fromBalance.Available)
	}

	consistent, err := stack.ledgerUC.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("consistency check failed: %v", err)
	}
	if !consistent {
		t.Fatal("expected a consistent ledger")
	}
}

func TestReverseGroup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(testDB.Pool)

	from := testutil.GenerateID()
	to := testutil.GenerateID()
	host := testutil.GenerateID()

	groupID, err := stack.ledgerUC.RecordEvent(ctx, testutil.ContributionEvent(from, to, host, 250))
	if err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	reversalID, err := stack.ledgerUC.ReverseGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("failed to reverse group: %v", err)
	}
	if reversalID == groupID {
		t.Fatal("reversal must get its own group id")
	}

	balance, err := stack.balanceUC.CurrentBalance(ctx, to, usecase.BalanceOptions{Fresh: true})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !balance.Available.IsZero() {
		t.Fatalf("expected zero balance after reversal, got %s", balance.Available)
	}

	// The original group cannot be reversed twice.
	if _, err := stack.ledgerUC.ReverseGroup(ctx, groupID); !errors.Is(err, domain.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}

	// A reversal group cannot be reversed again.
	if _, err := stack.ledgerUC.ReverseGroup(ctx, reversalID); !errors.Is(err, domain.ErrReversalOfReversal) {
		t.Fatalf("expected ErrReversalOfReversal, got %v", err)
	}
}

func TestVoidEntry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(testDB.Pool)

	from := testutil.GenerateID()
	to := testutil.GenerateID()
	host := testutil.GenerateID()

	groupID, err := stack.ledgerUC.RecordEvent(ctx, testutil.ContributionEvent(from, to, host, 40))
	if err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	legs, err := stack.ledgerUC.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("failed to get group: %v", err)
	}

	var creditID string
	for _, leg := range legs {
		if leg.Direction == domain.Credit {
			creditID = leg.ID
		}
	}

	if err := stack.ledgerUC.VoidEntry(ctx, creditID); err != nil {
		t.Fatalf("failed to void entry: %v", err)
	}

	// The voided leg no longer counts.
	balance, err := stack.balanceUC.CurrentBalance(ctx, to, usecase.BalanceOptions{Fresh: true})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !balance.Available.IsZero() {
		t.Fatalf("expected zero balance after void, got %s", balance.Available)
	}

	// Voiding an orphaned leg breaks the ledger-wide invariant.
	if _, err := stack.ledgerUC.CheckConsistency(ctx); !errors.Is(err, usecase.ErrInconsistentLedger) {
		t.Fatalf("expected ErrInconsistentLedger, got %v", err)
	}

	// A leg is voided at most once.
	if err := stack.ledgerUC.VoidEntry(ctx, creditID); !errors.Is(err, domain.ErrEntryDeleted) {
		t.Fatalf("expected ErrEntryDeleted, got %v", err)
	}
}

func TestDisputedReversalCountsAsAvailable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := newLedgerStack(testDB.Pool)

	from := testutil.GenerateID()
	to := testutil.GenerateID()
	host := testutil.GenerateID()

	disputedLeg := func(accountID string, amount int64, dir domain.Direction) *domain.LedgerEntry {
		return &domain.LedgerEntry{
			AccountID:               accountID,
			HostAccountID:           host,
			Direction:               dir,
			Kind:                    domain.KindContribution,
			AccountCurrency:         "USD",
			HostCurrency:            "USD",
			AmountInAccountCurrency: decimal.NewFromInt(amount),
			AmountInHostCurrency:    decimal.NewFromInt(amount),
			HostCurrencyFxRate:      decimal.NewFromInt(1),
			IsDisputed:              true,
		}
	}

	groupID, err := stack.ledgerUC.RecordGroup(ctx, []*domain.LedgerEntry{
		disputedLeg(from, -100, domain.Debit),
		disputedLeg(to, 100, domain.Credit),
	})
	if err != nil {
		t.Fatalf("failed to record disputed group: %v", err)
	}

	balance, err := stack.balanceUC.CurrentBalance(ctx, to, usecase.BalanceOptions{Fresh: true})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !balance.Disputed.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected disputed 100, got %s", balance.Disputed)
	}
	if !balance.Available.IsZero() {
		t.Fatalf("expected available 0, got %s", balance.Available)
	}

	// A producer closing the dispute writes offsetting legs that still
	// carry the disputed flag but reference the originals. They must move
	// the amount back to available, not add to the exposure.
	originals, err := stack.ledgerUC.GetGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("failed to get group: %v", err)
	}

	var resolutions []*domain.LedgerEntry
	for _, orig := range originals {
		leg := disputedLeg(orig.AccountID, 0, domain.Debit)
		leg.AmountInAccountCurrency = orig.AmountInAccountCurrency.Neg()
		leg.AmountInHostCurrency = orig.AmountInHostCurrency.Neg()
		leg.Direction = domain.Credit
		if orig.Direction == domain.Credit {
			leg.Direction = domain.Debit
		}
		id := orig.ID
		leg.ReversalOfID = &id
		resolutions = append(resolutions, leg)
	}

	if _, err := stack.ledgerUC.RecordGroup(ctx, resolutions); err != nil {
		t.Fatalf("failed to record resolution group: %v", err)
	}

	balance, err = stack.balanceUC.CurrentBalance(ctx, to, usecase.BalanceOptions{Fresh: true})
	if err != nil {
		t.Fatalf("failed to resolve balance: %v", err)
	}
	if !balance.Disputed.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected disputed 100, got %s", balance.Disputed)
	}
	if !balance.Available.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("expected available -100, got %s", balance.Available)
	}
}
