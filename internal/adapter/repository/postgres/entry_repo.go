package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/hostledger/internal/domain"
	"github.com/iho/hostledger/internal/usecase"
)

// entryColumns is the scan order every leg query uses.
const entryColumns = `id, group_id, account_id, host_account_id, direction, kind,
	account_currency, host_currency,
	amount_in_account_currency, amount_in_host_currency, host_currency_fx_rate,
	platform_fee_in_host_currency, host_fee_in_host_currency, processor_fee_in_host_currency,
	tax_amount, is_refund, is_debt, is_disputed, is_internal,
	reversal_of_id, created_at, cleared_at, deleted_at`

// netAmountExpr mirrors domain.LedgerEntry.NetAmount: the principal
// amount plus the legacy embedded fee columns.
const netAmountExpr = `amount_in_host_currency + platform_fee_in_host_currency +
	host_fee_in_host_currency + processor_fee_in_host_currency`

// inDisputeExpr mirrors domain.LedgerEntry.InDispute: a disputed leg
// that is itself a reversal resolves a dispute and counts as available.
const inDisputeExpr = `(is_disputed AND reversal_of_id IS NULL)`

// rankTuple is the stored denormalization of domain.Rank. The columns
// are written at insert time from the same attributes RankOf reads, and
// group_id/id carry COLLATE "C" so the tuple comparison sorts by byte
// order, reproducing Rank.Compare exactly.
const rankTuple = `(time_bucket, group_id, kind_priority, direction_priority, id)`

// EntryRepository implements usecase.EntryRepository on PostgreSQL. The
// ledger_entries table is append-only: the only UPDATE it ever issues
// sets deleted_at.
type EntryRepository struct {
	pool   *pgxpool.Pool
	bucket time.Duration
}

// NewEntryRepository creates a new EntryRepository. The bucket width
// must match the one the use cases were configured with, otherwise
// stored ranks and computed ranks diverge.
func NewEntryRepository(pool *pgxpool.Pool, bucket time.Duration) *EntryRepository {
	if bucket <= 0 {
		bucket = usecase.DefaultTimeBucket
	}

	return &EntryRepository{pool: pool, bucket: bucket}
}

// CreateBatch inserts all legs of a group in one pgx batch.
func (r *EntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	q := txQuerier(tx, r.pool)

	batch := &pgx.Batch{}
	for _, e := range entries {
		rank := domain.RankOf(e, r.bucket)

		batch.Queue(`
			INSERT INTO ledger_entries (
				id, group_id, account_id, host_account_id, direction, kind,
				account_currency, host_currency,
				amount_in_account_currency, amount_in_host_currency, host_currency_fx_rate,
				platform_fee_in_host_currency, host_fee_in_host_currency, processor_fee_in_host_currency,
				tax_amount, is_refund, is_debt, is_disputed, is_internal,
				reversal_of_id, created_at, cleared_at,
				time_bucket, kind_priority, direction_priority
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
				$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
			)`,
			e.ID, e.GroupID, e.AccountID, e.HostAccountID, string(e.Direction), string(e.Kind),
			e.AccountCurrency, e.HostCurrency,
			decimalToNumeric(e.AmountInAccountCurrency), decimalToNumeric(e.AmountInHostCurrency), decimalToNumeric(e.HostCurrencyFxRate),
			decimalToNumeric(e.PlatformFeeInHostCurrency), decimalToNumeric(e.HostFeeInHostCurrency), decimalToNumeric(e.ProcessorFeeInHostCurrency),
			decimalToNumeric(e.TaxAmount), e.IsRefund, e.IsDebt, e.IsDisputed, e.IsInternal,
			e.ReversalOfID, timeToPgTimestamptz(e.CreatedAt), timePtrToPgTimestamptz(e.ClearedAt),
			rank.TimeBucket, rank.KindPriority, rank.DirectionPriority,
		)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return results.Close()
}

// GetByID retrieves a single leg, deleted or not.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)

	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}

	return e, err
}

// GetByGroup retrieves all legs of a group in rank order.
func (r *EntryRepository) GetByGroup(ctx context.Context, groupID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE group_id = $1
		ORDER BY time_bucket, group_id, kind_priority, direction_priority, id`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListByAccount retrieves an account's legs in rank order with
// pagination.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY time_bucket, group_id, kind_priority, direction_priority, id
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// HasReversal reports whether any leg references the given one as its
// reversal target.
func (r *EntryRepository) HasReversal(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE reversal_of_id = $1 AND deleted_at IS NULL)`,
		id).Scan(&exists)

	return exists, err
}

// SetDeleted soft-deletes a leg.
func (r *EntryRepository) SetDeleted(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	q := txQuerier(tx, r.pool)

	tag, err := q.Exec(ctx,
		`UPDATE ledger_entries SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, timeToPgTimestamptz(at))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

// SumAfterRank sums the net amounts of countable, undisputed legs
// strictly after the given rank. This is the delta read of the
// incremental balance resolver.
func (r *EntryRepository) SumAfterRank(ctx context.Context, accountID, hostCurrency string, after domain.Rank) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(`+netAmountExpr+`), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND host_currency = $2
		  AND deleted_at IS NULL
		  AND NOT `+inDisputeExpr+`
		  AND `+rankTuple+` > ($3, $4, $5, $6, $7)`,
		accountID, hostCurrency,
		after.TimeBucket, after.GroupID, after.KindPriority, after.DirectionPriority, after.EntryID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// SumDisputed sums the net amounts of countable legs in dispute.
func (r *EntryRepository) SumDisputed(ctx context.Context, accountID, hostCurrency string) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(`+netAmountExpr+`), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND host_currency = $2
		  AND deleted_at IS NULL
		  AND `+inDisputeExpr,
		accountID, hostCurrency,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

// FullScan aggregates every countable leg of the pair from epoch,
// stopping once the leg budget is exhausted.
func (r *EntryRepository) FullScan(ctx context.Context, accountID, hostCurrency string, maxLegs int) (*usecase.ScanResult, error) {
	// One row past the budget distinguishes "exactly at budget" from
	// "over budget".
	rows, err := r.pool.Query(ctx, `
		SELECT `+netAmountExpr+`, `+inDisputeExpr+`
		FROM ledger_entries
		WHERE account_id = $1
		  AND host_currency = $2
		  AND deleted_at IS NULL
		ORDER BY time_bucket, group_id, kind_priority, direction_priority, id
		LIMIT $3`,
		accountID, hostCurrency, maxLegs+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &usecase.ScanResult{Available: decimal.Zero, Disputed: decimal.Zero}
	for rows.Next() {
		if result.Scanned == maxLegs {
			result.Truncated = true
			return result, nil
		}

		var (
			net      pgtype.Numeric
			disputed bool
		)
		if err := rows.Scan(&net, &disputed); err != nil {
			return nil, err
		}

		result.Scanned++
		if disputed {
			result.Disputed = result.Disputed.Add(numericToDecimal(net))
		} else {
			result.Available = result.Available.Add(numericToDecimal(net))
		}
	}

	return result, rows.Err()
}

// FoldRange aggregates countable, undisputed legs strictly after the
// given rank and strictly before the given time bucket, returning the
// rank and timestamp of the last folded leg.
func (r *EntryRepository) FoldRange(ctx context.Context, accountID, hostCurrency string, after domain.Rank, maxBucket int64) (*usecase.FoldResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+netAmountExpr+`, time_bucket, group_id, kind_priority, direction_priority, id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		  AND host_currency = $2
		  AND deleted_at IS NULL
		  AND NOT `+inDisputeExpr+`
		  AND `+rankTuple+` > ($3, $4, $5, $6, $7)
		  AND time_bucket < $8
		ORDER BY time_bucket, group_id, kind_priority, direction_priority, id`,
		accountID, hostCurrency,
		after.TimeBucket, after.GroupID, after.KindPriority, after.DirectionPriority, after.EntryID,
		maxBucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &usecase.FoldResult{Sum: decimal.Zero}
	for rows.Next() {
		var (
			net       pgtype.Numeric
			rank      domain.Rank
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&net, &rank.TimeBucket, &rank.GroupID, &rank.KindPriority, &rank.DirectionPriority, &rank.EntryID, &createdAt); err != nil {
			return nil, err
		}

		result.Sum = result.Sum.Add(numericToDecimal(net))
		result.LastRank = rank
		result.AsOf = createdAt.Time
		result.Count++
	}

	return result, rows.Err()
}

// Profile returns the distinct host currencies and host accounts of an
// account's legs, most recently used first.
func (r *EntryRepository) Profile(ctx context.Context, accountID string) (usecase.AccountProfile, error) {
	var profile usecase.AccountProfile

	rows, err := r.pool.Query(ctx, `
		SELECT host_currency
		FROM ledger_entries
		WHERE account_id = $1
		GROUP BY host_currency
		ORDER BY MAX(created_at) DESC`,
		accountID)
	if err != nil {
		return profile, err
	}
	defer rows.Close()

	for rows.Next() {
		var currency string
		if err := rows.Scan(&currency); err != nil {
			return profile, err
		}
		profile.HostCurrencies = append(profile.HostCurrencies, currency)
	}
	if err := rows.Err(); err != nil {
		return profile, err
	}

	hostRows, err := r.pool.Query(ctx, `
		SELECT host_account_id
		FROM ledger_entries
		WHERE account_id = $1
		GROUP BY host_account_id
		ORDER BY MAX(created_at) DESC`,
		accountID)
	if err != nil {
		return profile, err
	}
	defer hostRows.Close()

	for hostRows.Next() {
		var host string
		if err := hostRows.Scan(&host); err != nil {
			return profile, err
		}
		profile.HostAccounts = append(profile.HostAccounts, host)
	}

	return profile, hostRows.Err()
}

// ActivePairs lists distinct account-currency pairs with legs created
// since the given time. The refresher sweeps these.
func (r *EntryRepository) ActivePairs(ctx context.Context, since time.Time, limit int) ([]usecase.AccountCurrency, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT account_id, host_currency
		FROM ledger_entries
		WHERE created_at >= $1
		LIMIT $2`,
		timeToPgTimestamptz(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []usecase.AccountCurrency
	for rows.Next() {
		var pair usecase.AccountCurrency
		if err := rows.Scan(&pair.AccountID, &pair.HostCurrency); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

// SumLedger nets every countable leg's principal amount across the whole
// ledger. Non-zero means the double-entry invariant is broken.
func (r *EntryRepository) SumLedger(ctx context.Context) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_in_host_currency), 0) FROM ledger_entries WHERE deleted_at IS NULL`,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e                 domain.LedgerEntry
		direction, kind   string
		amountAcc         pgtype.Numeric
		amountHost        pgtype.Numeric
		fxRate            pgtype.Numeric
		platformFee       pgtype.Numeric
		hostFee           pgtype.Numeric
		processorFee      pgtype.Numeric
		taxAmount         pgtype.Numeric
		createdAt         pgtype.Timestamptz
		clearedAt         pgtype.Timestamptz
		deletedAt         pgtype.Timestamptz
	)

	err := row.Scan(
		&e.ID, &e.GroupID, &e.AccountID, &e.HostAccountID, &direction, &kind,
		&e.AccountCurrency, &e.HostCurrency,
		&amountAcc, &amountHost, &fxRate,
		&platformFee, &hostFee, &processorFee,
		&taxAmount, &e.IsRefund, &e.IsDebt, &e.IsDisputed, &e.IsInternal,
		&e.ReversalOfID, &createdAt, &clearedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Direction = domain.Direction(direction)
	e.Kind = domain.Kind(kind)
	e.AmountInAccountCurrency = numericToDecimal(amountAcc)
	e.AmountInHostCurrency = numericToDecimal(amountHost)
	e.HostCurrencyFxRate = numericToDecimal(fxRate)
	e.PlatformFeeInHostCurrency = numericToDecimal(platformFee)
	e.HostFeeInHostCurrency = numericToDecimal(hostFee)
	e.ProcessorFeeInHostCurrency = numericToDecimal(processorFee)
	e.TaxAmount = numericToDecimal(taxAmount)
	e.CreatedAt = createdAt.Time
	e.ClearedAt = pgTimestamptzToTimePtr(clearedAt)
	e.DeletedAt = pgTimestamptzToTimePtr(deletedAt)

	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
