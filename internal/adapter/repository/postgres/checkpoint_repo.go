package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

// CheckpointRepository implements usecase.CheckpointRepository. One row
// exists per account-currency pair; Replace enforces the optimistic
// expected-rank guard so two refreshers can never both apply a fold on
// top of the same base.
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{pool: pool}
}

// GetLatest retrieves the pair's checkpoint.
func (r *CheckpointRepository) GetLatest(ctx context.Context, accountID, hostCurrency string) (*domain.BalanceCheckpoint, error) {
	var (
		cp        domain.BalanceCheckpoint
		balance   pgtype.Numeric
		asOf      pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT account_id, host_currency,
		       time_bucket, rank_group_id, kind_priority, direction_priority, rank_entry_id,
		       balance, as_of, created_at, updated_at
		FROM balance_checkpoints
		WHERE account_id = $1 AND host_currency = $2`,
		accountID, hostCurrency,
	).Scan(
		&cp.AccountID, &cp.HostCurrency,
		&cp.Rank.TimeBucket, &cp.Rank.GroupID, &cp.Rank.KindPriority, &cp.Rank.DirectionPriority, &cp.Rank.EntryID,
		&balance, &asOf, &createdAt, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}

	cp.Balance = numericToDecimal(balance)
	cp.AsOf = asOf.Time
	cp.CreatedAt = createdAt.Time
	cp.UpdatedAt = updatedAt.Time

	return &cp, nil
}

// Replace writes the checkpoint if and only if the stored rank still
// equals expected. A zero expected rank means the caller saw no
// checkpoint and wants an insert.
func (r *CheckpointRepository) Replace(ctx context.Context, cp *domain.BalanceCheckpoint, expected domain.Rank) error {
	if expected.IsZero() {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO balance_checkpoints (
				account_id, host_currency,
				time_bucket, rank_group_id, kind_priority, direction_priority, rank_entry_id,
				balance, as_of, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (account_id, host_currency) DO NOTHING`,
			cp.AccountID, cp.HostCurrency,
			cp.Rank.TimeBucket, cp.Rank.GroupID, cp.Rank.KindPriority, cp.Rank.DirectionPriority, cp.Rank.EntryID,
			decimalToNumeric(cp.Balance), timeToPgTimestamptz(cp.AsOf),
			timeToPgTimestamptz(cp.CreatedAt), timeToPgTimestamptz(cp.UpdatedAt))
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return &domain.RefreshConflictError{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
		}

		return nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE balance_checkpoints
		SET time_bucket = $3, rank_group_id = $4, kind_priority = $5,
		    direction_priority = $6, rank_entry_id = $7,
		    balance = $8, as_of = $9, updated_at = $10
		WHERE account_id = $1 AND host_currency = $2
		  AND (time_bucket, rank_group_id, kind_priority, direction_priority, rank_entry_id)
		      = ($11, $12, $13, $14, $15)`,
		cp.AccountID, cp.HostCurrency,
		cp.Rank.TimeBucket, cp.Rank.GroupID, cp.Rank.KindPriority, cp.Rank.DirectionPriority, cp.Rank.EntryID,
		decimalToNumeric(cp.Balance), timeToPgTimestamptz(cp.AsOf), timeToPgTimestamptz(cp.UpdatedAt),
		expected.TimeBucket, expected.GroupID, expected.KindPriority, expected.DirectionPriority, expected.EntryID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return &domain.RefreshConflictError{AccountID: cp.AccountID, HostCurrency: cp.HostCurrency}
	}

	return nil
}

// Invalidate deletes the pair's checkpoint. Called in the same
// transaction that voids or disputes a leg already folded into it, so
// reads fall back to a full scan until the refresher rebuilds the
// checkpoint from scratch.
func (r *CheckpointRepository) Invalidate(ctx context.Context, tx usecase.Transaction, accountID, hostCurrency string) error {
	q := txQuerier(tx, r.pool)

	_, err := q.Exec(ctx,
		`DELETE FROM balance_checkpoints WHERE account_id = $1 AND host_currency = $2`,
		accountID, hostCurrency)

	return err
}
