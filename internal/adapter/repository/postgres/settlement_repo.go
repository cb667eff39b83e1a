package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

const settlementColumns = `id, group_id, kind, host_account_id, host_currency,
	amount, status, settlement_group_id, created_at, settled_at`

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// Create inserts an OWED settlement within the debt's transaction.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	q := txQuerier(tx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO settlements (
			id, group_id, kind, host_account_id, host_currency,
			amount, status, settlement_group_id, created_at, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.GroupID, string(s.Kind), s.HostAccountID, s.HostCurrency,
		decimalToNumeric(s.Amount), string(s.Status), s.SettlementGroupID,
		timeToPgTimestamptz(s.CreatedAt), timePtrToPgTimestamptz(s.SettledAt))

	return err
}

// GetByGroupAndKind retrieves the settlement for a (group, kind) pair.
func (r *SettlementRepository) GetByGroupAndKind(ctx context.Context, groupID string, kind domain.Kind) (*domain.Settlement, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = $1 AND kind = $2`,
		groupID, string(kind))

	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound
	}

	return s, err
}

// ListByGroup retrieves all settlements of a group.
func (r *SettlementRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.Settlement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = $1 ORDER BY created_at, id`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSettlements(rows)
}

// MarkSettled transitions a settlement OWED -> SETTLED. Settling an
// already settled row fails with ErrAlreadySettled; the guard is in the
// UPDATE itself so two concurrent settlements cannot both win.
func (r *SettlementRepository) MarkSettled(ctx context.Context, tx usecase.Transaction, id, settlementGroupID string, at time.Time) error {
	q := txQuerier(tx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE settlements
		SET status = $2, settlement_group_id = $3, settled_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(domain.SettlementSettled), settlementGroupID,
		timeToPgTimestamptz(at), string(domain.SettlementOwed))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM settlements WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadySettled
		}

		return domain.ErrSettlementNotFound
	}

	return nil
}

// ListOutstanding retrieves a host's OWED settlements, oldest first.
func (r *SettlementRepository) ListOutstanding(ctx context.Context, hostAccountID string, limit, offset int) ([]*domain.Settlement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE host_account_id = $1 AND status = $2
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`,
		hostAccountID, string(domain.SettlementOwed), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSettlements(rows)
}

// ListOverdue retrieves a host's OWED settlements created before the
// cutoff.
func (r *SettlementRepository) ListOverdue(ctx context.Context, hostAccountID string, before time.Time) ([]*domain.Settlement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE host_account_id = $1 AND status = $2 AND created_at < $3
		ORDER BY created_at, id`,
		hostAccountID, string(domain.SettlementOwed), timeToPgTimestamptz(before))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSettlements(rows)
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s            domain.Settlement
		kind, status string
		amount       pgtype.Numeric
		createdAt    pgtype.Timestamptz
		settledAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&s.ID, &s.GroupID, &kind, &s.HostAccountID, &s.HostCurrency,
		&amount, &status, &s.SettlementGroupID, &createdAt, &settledAt,
	)
	if err != nil {
		return nil, err
	}

	s.Kind = domain.Kind(kind)
	s.Status = domain.SettlementStatus(status)
	s.Amount = numericToDecimal(amount)
	s.CreatedAt = createdAt.Time
	s.SettledAt = pgTimestamptzToTimePtr(settledAt)

	return &s, nil
}

func scanSettlements(rows pgx.Rows) ([]*domain.Settlement, error) {
	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	return settlements, rows.Err()
}
