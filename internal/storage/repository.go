package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested pool record does not exist.
	ErrNotFound = errors.New("storage: pool record not found")
)

const (
	selectPoolSQL = `SELECT
        pool_id,
        dex_id,
        pair_label,
        url,
        price_native,
        price_usd,
        liquidity_usd,
        supply,
        last_seen,
        created_at
    FROM pools
    WHERE pool_id = $1;`

	insertPoolSQL = `INSERT INTO pools (
        pool_id,
        dex_id,
        pair_label,
        url,
        price_native,
        price_usd,
        liquidity_usd,
        supply,
        last_seen
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (pool_id) DO NOTHING;`

	updatePoolPricesSQL = `UPDATE pools
    SET price_native  = $2,
        price_usd     = $3,
        liquidity_usd = $4,
        last_seen     = GREATEST(last_seen, $5)
    WHERE pool_id = $1;`

	selectBucketForUpdateSQL = `SELECT price_usd FROM pools WHERE pool_id = $1 FOR UPDATE;`

	insertBucketSQL = `INSERT INTO pools (pool_id, dex_id, last_seen, price_usd)
    VALUES ($1, 'bucket', $2, $3);`

	updateBucketPriceSQL = `UPDATE pools
    SET price_usd = $2,
        last_seen = GREATEST(last_seen, $3)
    WHERE pool_id = $1;`

	recordSupplySQL = `INSERT INTO pools (pool_id, dex_id, last_seen, supply)
    VALUES ($1, 'bucket', $2, $3)
    ON CONFLICT (pool_id) DO UPDATE
    SET supply    = EXCLUDED.supply,
        last_seen = GREATEST(pools.last_seen, EXCLUDED.last_seen);`

	listRecentPoolsSQL = `SELECT
        pool_id,
        dex_id,
        pair_label,
        url,
        price_native,
        price_usd,
        liquidity_usd,
        supply,
        last_seen,
        created_at
    FROM pools
    ORDER BY last_seen DESC
    LIMIT $1;`

	countPoolsSQL = `SELECT COUNT(*) FROM pools;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PoolStore defines the persistence operations the reconciliation engine
// needs. Upserts are per-key and independently committed.
type PoolStore interface {
	GetPool(ctx context.Context, poolID string) (PoolRecord, error)
	InsertPool(ctx context.Context, record PoolRecord) error
	UpdatePoolPrices(ctx context.Context, poolID string, native, usd, liquidity *decimal.Decimal, seen time.Time) error
	SwapBucketPrice(ctx context.Context, bucketID string, price decimal.Decimal, seen time.Time) (*decimal.Decimal, error)
	RecordSupply(ctx context.Context, bucketID string, supply decimal.Decimal, seen time.Time) error
}

// PoolLister exposes read-only listing for operational commands.
type PoolLister interface {
	ListRecentPools(ctx context.Context, limit int) ([]PoolRecord, error)
	CountPools(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers used to keep full
// reconciliation passes from overlapping across cadences.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides PostgreSQL-backed pool persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// GetPool looks up a single record by pool id.
func (s *Store) GetPool(ctx context.Context, poolID string) (PoolRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return PoolRecord{}, err
	}

	record, err := scanPoolRecord(pool.QueryRow(ctx, selectPoolSQL, poolID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PoolRecord{}, ErrNotFound
		}
		return PoolRecord{}, fmt.Errorf("get pool %s: %w", poolID, err)
	}
	return record, nil
}

// InsertPool creates a record on first observation. A concurrent pass may
// have inserted the same key already; that is treated as success.
func (s *Store) InsertPool(ctx context.Context, record PoolRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertPoolSQL,
		record.PoolID,
		record.DexID,
		record.PairLabel,
		record.URL,
		decimalArg(record.PriceNative),
		decimalArg(record.PriceUsd),
		decimalArg(record.LiquidityUsd),
		decimalArg(record.Supply),
		record.LastSeen,
	)
	if execErr != nil {
		return fmt.Errorf("insert pool %s: %w", record.PoolID, execErr)
	}
	return nil
}

// UpdatePoolPrices refreshes the mutable price fields of an existing record.
// Identity fields are never touched after insert.
func (s *Store) UpdatePoolPrices(ctx context.Context, poolID string, native, usd, liquidity *decimal.Decimal, seen time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cmdTag, execErr := pool.Exec(ctx, updatePoolPricesSQL,
		poolID,
		decimalArg(native),
		decimalArg(usd),
		decimalArg(liquidity),
		seen,
	)
	if execErr != nil {
		return fmt.Errorf("update pool %s: %w", poolID, execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapBucketPrice atomically reads the previous sample stored at bucketID
// and overwrites it with price. It returns nil when the bucket did not
// exist yet (cold start). The row lock serialises concurrent
// read-modify-write passes against the same bucket.
func (s *Store) SwapBucketPrice(ctx context.Context, bucketID string, price decimal.Decimal, seen time.Time) (*decimal.Decimal, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin bucket swap: %w", err)
	}
	defer tx.Rollback(ctx)

	var prevStr sql.NullString
	err = tx.QueryRow(ctx, selectBucketForUpdateSQL, bucketID).Scan(&prevStr)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, execErr := tx.Exec(ctx, insertBucketSQL, bucketID, seen, price.String()); execErr != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucketID, execErr)
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return nil, fmt.Errorf("commit bucket create: %w", commitErr)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("lock bucket %s: %w", bucketID, err)
	}

	if _, execErr := tx.Exec(ctx, updateBucketPriceSQL, bucketID, price.String(), seen); execErr != nil {
		return nil, fmt.Errorf("overwrite bucket %s: %w", bucketID, execErr)
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("commit bucket swap: %w", commitErr)
	}

	if !prevStr.Valid {
		return nil, nil
	}
	prev, convErr := decimal.NewFromString(prevStr.String)
	if convErr != nil {
		return nil, fmt.Errorf("parse previous bucket price: %w", convErr)
	}
	return &prev, nil
}

// RecordSupply stores the last observed supply on a synthetic bucket row.
func (s *Store) RecordSupply(ctx context.Context, bucketID string, supply decimal.Decimal, seen time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, recordSupplySQL, bucketID, seen, supply.String()); execErr != nil {
		return fmt.Errorf("record supply on %s: %w", bucketID, execErr)
	}
	return nil
}

// ListRecentPools lists records ordered by most recently seen.
func (s *Store) ListRecentPools(ctx context.Context, limit int) ([]PoolRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPoolsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent pools: %w", queryErr)
	}
	defer rows.Close()

	records := make([]PoolRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanPoolRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountPools counts stored records, buckets included.
func (s *Store) CountPools(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPoolsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count pools: %w", scanErr)
	}
	return count, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanPoolRecord(row pgx.Row) (PoolRecord, error) {
	var (
		record    PoolRecord
		native    sql.NullString
		usd       sql.NullString
		liquidity sql.NullString
		supply    sql.NullString
	)

	if err := row.Scan(
		&record.PoolID,
		&record.DexID,
		&record.PairLabel,
		&record.URL,
		&native,
		&usd,
		&liquidity,
		&supply,
		&record.LastSeen,
		&record.CreatedAt,
	); err != nil {
		return PoolRecord{}, err
	}

	var convErr error
	if record.PriceNative, convErr = nullableDecimal(native); convErr != nil {
		return PoolRecord{}, fmt.Errorf("parse price_native: %w", convErr)
	}
	if record.PriceUsd, convErr = nullableDecimal(usd); convErr != nil {
		return PoolRecord{}, fmt.Errorf("parse price_usd: %w", convErr)
	}
	if record.LiquidityUsd, convErr = nullableDecimal(liquidity); convErr != nil {
		return PoolRecord{}, fmt.Errorf("parse liquidity_usd: %w", convErr)
	}
	if record.Supply, convErr = nullableDecimal(supply); convErr != nil {
		return PoolRecord{}, fmt.Errorf("parse supply: %w", convErr)
	}

	return record, nil
}

func nullableDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var (
	_ PoolStore      = (*Store)(nil)
	_ PoolLister     = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
