package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
	"github.com/shopspring/decimal"
)

// MockEntryRepository is a mock implementation of EntryRepository. Its
// default behavior is a complete in-memory store with rank-ordered
// aggregation, so tests can compare use-case output against a reference
// fold over the same legs.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry

	// Bucket is the ordering window the in-memory ranking uses.
	Bucket time.Duration

	CreateBatchFunc   func(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	GetByGroupFunc    func(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error)
	ListByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	HasReversalFunc   func(ctx context.Context, id string) (bool, error)
	SetDeletedFunc    func(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error
	SumAfterRankFunc  func(ctx context.Context, accountID, hostCurrency string, after domain.Rank) (decimal.Decimal, error)
	SumDisputedFunc   func(ctx context.Context, accountID, hostCurrency string) (decimal.Decimal, error)
	FullScanFunc      func(ctx context.Context, accountID, hostCurrency string, maxLegs int) (*usecase.ScanResult, error)
	FoldRangeFunc     func(ctx context.Context, accountID, hostCurrency string, after domain.Rank, maxBucket int64) (*usecase.FoldResult, error)
	ProfileFunc       func(ctx context.Context, accountID string) (usecase.AccountProfile, error)
	ActivePairsFunc   func(ctx context.Context, since time.Time, limit int) ([]usecase.AccountCurrency, error)
	SumLedgerFunc     func(ctx context.Context) (decimal.Decimal, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.LedgerEntry),
		Bucket:  usecase.DefaultTimeBucket,
	}
}

func (m *MockEntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, entries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		copied := *e
		m.entries[e.ID] = &copied
	}
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByGroup(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error) {
	if m.GetByGroupFunc != nil {
		return m.GetByGroupFunc(ctx, groupID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.sorted() {
		if e.GroupID == groupID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.sorted() {
		if e.AccountID == accountID {
			copied := *e
			out = append(out, &copied)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEntryRepository) HasReversal(ctx context.Context, id string) (bool, error) {
	if m.HasReversalFunc != nil {
		return m.HasReversalFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ReversalOfID != nil && *e.ReversalOfID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockEntryRepository) SetDeleted(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	if m.SetDeletedFunc != nil {
		return m.SetDeletedFunc(ctx, tx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	e.DeletedAt = &at
	return nil
}

func (m *MockEntryRepository) SumAfterRank(ctx context.Context, accountID, hostCurrency string, after domain.Rank) (decimal.Decimal, error) {
	if m.SumAfterRankFunc != nil {
		return m.SumAfterRankFunc(ctx, accountID, hostCurrency, after)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID != accountID || e.HostCurrency != hostCurrency {
			continue
		}
		if !e.Countable() || e.InDispute() {
			continue
		}
		if domain.RankOf(e, m.Bucket).Compare(after) > 0 {
			sum = sum.Add(e.NetAmount())
		}
	}
	return sum, nil
}

func (m *MockEntryRepository) SumDisputed(ctx context.Context, accountID, hostCurrency string) (decimal.Decimal, error) {
	if m.SumDisputedFunc != nil {
		return m.SumDisputedFunc(ctx, accountID, hostCurrency)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID != accountID || e.HostCurrency != hostCurrency {
			continue
		}
		if !e.Countable() || !e.InDispute() {
			continue
		}
		sum = sum.Add(e.NetAmount())
	}
	return sum, nil
}

func (m *MockEntryRepository) FullScan(ctx context.Context, accountID, hostCurrency string, maxLegs int) (*usecase.ScanResult, error) {
	if m.FullScanFunc != nil {
		return m.FullScanFunc(ctx, accountID, hostCurrency, maxLegs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := &usecase.ScanResult{Available: decimal.Zero, Disputed: decimal.Zero}
	for _, e := range m.sorted() {
		if e.AccountID != accountID || e.HostCurrency != hostCurrency || !e.Countable() {
			continue
		}
		if maxLegs > 0 && result.Scanned >= maxLegs {
			result.Truncated = true
			return result, nil
		}
		result.Scanned++
		if e.InDispute() {
			result.Disputed = result.Disputed.Add(e.NetAmount())
			continue
		}
		result.Available = result.Available.Add(e.NetAmount())
	}
	return result, nil
}

func (m *MockEntryRepository) FoldRange(ctx context.Context, accountID, hostCurrency string, after domain.Rank, maxBucket int64) (*usecase.FoldResult, error) {
	if m.FoldRangeFunc != nil {
		return m.FoldRangeFunc(ctx, accountID, hostCurrency, after, maxBucket)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := &usecase.FoldResult{Sum: decimal.Zero}
	for _, e := range m.sorted() {
		if e.AccountID != accountID || e.HostCurrency != hostCurrency {
			continue
		}
		if !e.Countable() || e.InDispute() {
			continue
		}
		rank := domain.RankOf(e, m.Bucket)
		if rank.Compare(after) <= 0 || rank.TimeBucket >= maxBucket {
			continue
		}
		result.Sum = result.Sum.Add(e.NetAmount())
		result.LastRank = rank
		result.AsOf = e.CreatedAt
		result.Count++
	}
	return result, nil
}

func (m *MockEntryRepository) Profile(ctx context.Context, accountID string) (usecase.AccountProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var profile usecase.AccountProfile
	seenCurrency := make(map[string]bool)
	seenHost := make(map[string]bool)
	legs := m.sorted()
	// Most recent first.
	for i := len(legs) - 1; i >= 0; i-- {
		e := legs[i]
		if e.AccountID != accountID {
			continue
		}
		if !seenCurrency[e.HostCurrency] {
			seenCurrency[e.HostCurrency] = true
			profile.HostCurrencies = append(profile.HostCurrencies, e.HostCurrency)
		}
		if !seenHost[e.HostAccountID] {
			seenHost[e.HostAccountID] = true
			profile.HostAccounts = append(profile.HostAccounts, e.HostAccountID)
		}
	}
	return profile, nil
}

func (m *MockEntryRepository) ActivePairs(ctx context.Context, since time.Time, limit int) ([]usecase.AccountCurrency, error) {
	if m.ActivePairsFunc != nil {
		return m.ActivePairsFunc(ctx, since, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[usecase.AccountCurrency]bool)
	var out []usecase.AccountCurrency
	for _, e := range m.sorted() {
		if e.CreatedAt.Before(since) {
			continue
		}
		pair := usecase.AccountCurrency{AccountID: e.AccountID, HostCurrency: e.HostCurrency}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockEntryRepository) SumLedger(ctx context.Context) (decimal.Decimal, error) {
	if m.SumLedgerFunc != nil {
		return m.SumLedgerFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.Countable() {
			sum = sum.Add(e.AmountInHostCurrency)
		}
	}
	return sum, nil
}

func (m *MockEntryRepository) sorted() []*domain.LedgerEntry {
	out := make([]*domain.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return domain.RankOf(out[i], m.Bucket).Less(domain.RankOf(out[j], m.Bucket))
	})
	return out
}

// MockCheckpointRepository is a mock implementation of CheckpointRepository.
type MockCheckpointRepository struct {
	mu          sync.RWMutex
	checkpoints map[usecase.AccountCurrency]*domain.BalanceCheckpoint

	GetLatestFunc  func(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error)
	ReplaceFunc    func(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error
	InvalidateFunc func(ctx context.Context, tx usecase.Transaction, accountID, hostCurrency string) error
}

func NewMockCheckpointRepository() *MockCheckpointRepository {
	return &MockCheckpointRepository{
		checkpoints: make(map[usecase.AccountCurrency]*domain.BalanceCheckpoint),
	}
}

func (m *MockCheckpointRepository) GetLatest(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error) {
	if m.GetLatestFunc != nil {
		return m.GetLatestFunc(ctx, accountID, hostCurrency)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cp, ok := m.checkpoints[usecase.AccountCurrency{AccountID: accountID, HostCurrency: hostCurrency}]; ok {
		copied := *cp
		return &copied, nil
	}
	return nil, domain.ErrCheckpointNotFound
}

func (m *MockCheckpointRepository) Replace(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, cp, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := usecase.AccountCurrency{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
	if existing, ok := m.checkpoints[key]; ok && existing.Rank.Compare(expected) != 0 {
		return &domain.RefreshConflictError{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
	}
	copied := *cp
	m.checkpoints[key] = &copied
	return nil
}

func (m *MockCheckpointRepository) Invalidate(ctx context.Context, tx usecase.Transaction, accountID, hostCurrency string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, tx, accountID, hostCurrency)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, usecase.AccountCurrency{AccountID: accountID, HostCurrency: hostCurrency})
	return nil
}

// MockSettlementRepository is a mock implementation of SettlementRepository.
type MockSettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]*domain.Settlement

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error
	GetByGroupAndKindFunc func(ctx context.Context, groupID string, kind domain.Kind) (*domain.Settlement, error)
	ListByGroupFunc       func(ctx context.Context, groupID string) ([]*domain.Settlement, error)
	MarkSettledFunc       func(ctx context.Context, tx usecase.Transaction, id, settlementGroupID string, at time.Time) error
	ListOutstandingFunc   func(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error)
	ListOverdueFunc       func(ctx context.Context, hostAccountID string, before time.Time) ([]*domain.Settlement, error)
}

func NewMockSettlementRepository() *MockSettlementRepository {
	return &MockSettlementRepository{
		settlements: make(map[string]*domain.Settlement),
	}
}

func (m *MockSettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.settlements[s.ID] = &copied
	return nil
}

func (m *MockSettlementRepository) GetByGroupAndKind(ctx context.Context, groupID string, kind domain.Kind) (*domain.Settlement, error) {
	if m.GetByGroupAndKindFunc != nil {
		return m.GetByGroupAndKindFunc(ctx, groupID, kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.settlements {
		if s.GroupID == groupID && s.Kind == kind {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrSettlementNotFound
}

func (m *MockSettlementRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.Settlement, error) {
	if m.ListByGroupFunc != nil {
		return m.ListByGroupFunc(ctx, groupID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Settlement
	for _, s := range m.settlements {
		if s.GroupID == groupID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockSettlementRepository) MarkSettled(ctx context.Context, tx usecase.Transaction, id, settlementGroupID string, at time.Time) error {
	if m.MarkSettledFunc != nil {
		return m.MarkSettledFunc(ctx, tx, id, settlementGroupID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[id]
	if !ok {
		return domain.ErrSettlementNotFound
	}
	if s.Status == domain.SettlementSettled {
		return domain.ErrAlreadySettled
	}
	s.Status = domain.SettlementSettled
	s.SettlementGroupID = &settlementGroupID
	s.SettledAt = &at
	return nil
}

func (m *MockSettlementRepository) ListOutstanding(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error) {
	if m.ListOutstandingFunc != nil {
		return m.ListOutstandingFunc(ctx, hostAccountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Settlement
	for _, s := range m.settlements {
		if s.HostAccountID == hostAccountID && s.Status == domain.SettlementOwed {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSettlementRepository) ListOverdue(ctx context.Context, hostAccountID string, before time.Time) ([]*domain.Settlement, error) {
	if m.ListOverdueFunc != nil {
		return m.ListOverdueFunc(ctx, hostAccountID, before)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Settlement
	for _, s := range m.settlements {
		if s.HostAccountID == hostAccountID && s.Status == domain.SettlementOwed && s.CreatedAt.Before(before) {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *event
	m.events = append(m.events, &copied)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if e.Published {
			continue
		}
		copied := *e
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// Events returns a snapshot of everything recorded, for assertions.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OutboxEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{data: make(map[string][]byte)}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	m.data[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
