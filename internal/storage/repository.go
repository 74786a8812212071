package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
	"github.com/yourdesigncoza/get-insider-db/internal/exclusion"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO cluster_alerts (
        ticker,
        window_start,
        window_end,
        cluster_score,
        num_people,
        total_value
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (ticker, window_start) DO NOTHING
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        ticker,
        window_start,
        window_end,
        cluster_score,
        num_people,
        total_value::text,
        created_at
    FROM cluster_alerts
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM cluster_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PurchaseStore reads the insider purchases view.
type PurchaseStore interface {
	LatestFilingDate(ctx context.Context) (time.Time, error)
	ListPurchases(ctx context.Context, q PurchaseQuery) ([]insider.Transaction, error)
}

// ExclusionStore manages the user-curated exclusion rules.
type ExclusionStore interface {
	ListExclusions(ctx context.Context, activeOnly bool) ([]exclusion.Rule, error)
	AddExclusion(ctx context.Context, pattern, reason string) (exclusion.Rule, error)
	SetExclusionActive(ctx context.Context, id int64, active bool) error
}

// AlertStore defines operations for alert de-duplication and auditing.
type AlertStore interface {
	// RecordAlert stores rec unless the campaign was alerted before.
	RecordAlert(ctx context.Context, rec AlertRecord) (AlertRecord, bool, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to purchases, exclusions, classifications and alerts.
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

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
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
		// Best effort: the session lock also goes away when the connection closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// RecordAlert persists an alert emission. The bool is false when an alert for
// the same (ticker, window_start) already exists.
func (s *Store) RecordAlert(ctx context.Context, rec AlertRecord) (AlertRecord, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, false, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		rec.Ticker,
		rec.WindowStart,
		rec.WindowEnd,
		rec.ClusterScore,
		rec.NumPeople,
		rec.TotalValue.String(),
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return rec, false, nil
		}
		return AlertRecord{}, false, fmt.Errorf("record alert: %w", scanErr)
	}
	return rec, true, nil
}

// ListRecentAlerts lists alerts ordered by descending creation time.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var totalStr string
		if scanErr := rows.Scan(
			&rec.ID,
			&rec.Ticker,
			&rec.WindowStart,
			&rec.WindowEnd,
			&rec.ClusterScore,
			&rec.NumPeople,
			&totalStr,
			&rec.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan alert: %w", scanErr)
		}
		total, convErr := decimal.NewFromString(totalStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert total value: %w", convErr)
		}
		rec.TotalValue = total
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts and reports how many were removed.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete alerts before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

var (
	_ PurchaseStore         = (*Store)(nil)
	_ ExclusionStore        = (*Store)(nil)
	_ AlertStore            = (*Store)(nil)
	_ AdvisoryLocker        = (*Store)(nil)
	_ classify.ManagedStore = (*Store)(nil)
)
