package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

const (
	latestFilingDateSQL = `SELECT MAX(COALESCE(filing_date, transaction_date))
    FROM insider_buy_signals;`

	listPurchasesSQL = `SELECT
        UPPER(TRIM(ticker)),
        COALESCE(issuer_name, ''),
        transaction_date,
        filing_date,
        COALESCE(insider_cik, ''),
        COALESCE(insider_name, ''),
        COALESCE(insider_relationship, ''),
        COALESCE(insider_title, ''),
        COALESCE(is_director, FALSE),
        COALESCE(is_officer, FALSE),
        COALESCE(is_ten_percent_owner, FALSE),
        COALESCE(is_other, FALSE),
        COALESCE(transaction_code, ''),
        shares::text,
        price::text
    FROM insider_buy_signals
    WHERE transaction_date >= $1
      AND transaction_date <= $2
      AND ticker IS NOT NULL
      AND TRIM(ticker) <> ''
      AND UPPER(TRIM(ticker)) <> 'NONE'
      AND ($3::text = '' OR UPPER(TRIM(ticker)) = $3::text)
      AND transaction_code = ANY($4::text[])
      AND COALESCE(total_value, 0) >= $5::numeric
    ORDER BY UPPER(TRIM(ticker)), transaction_date, insider_name;`
)

// LatestFilingDate returns the most recent filing date in the purchases view,
// or the zero time when the view is empty.
func (s *Store) LatestFilingDate(ctx context.Context) (time.Time, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, err
	}
	var latest sql.NullTime
	if scanErr := pool.QueryRow(ctx, latestFilingDateSQL).Scan(&latest); scanErr != nil {
		return time.Time{}, fmt.Errorf("latest filing date: %w", scanErr)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return insider.DateOnly(latest.Time), nil
}

// ListPurchases reads purchase transactions matching q. Unparseable or missing
// share and price values are zeroed and the row is marked Malformed.
func (s *Store) ListPurchases(ctx context.Context, q PurchaseQuery) ([]insider.Transaction, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	codes := q.Codes
	if len(codes) == 0 {
		codes = []string{"P"}
	}

	rows, queryErr := pool.Query(ctx, listPurchasesSQL,
		q.From,
		q.To,
		strings.ToUpper(strings.TrimSpace(q.Ticker)),
		codes,
		q.MinTradeValue.String(),
	)
	if queryErr != nil {
		return nil, fmt.Errorf("list purchases: %w", queryErr)
	}
	defer rows.Close()

	txs := make([]insider.Transaction, 0)
	for rows.Next() {
		var (
			tx        insider.Transaction
			filing    sql.NullTime
			columns   insider.Flags
			sharesStr sql.NullString
			priceStr  sql.NullString
		)
		if scanErr := rows.Scan(
			&tx.Ticker,
			&tx.IssuerName,
			&tx.TransactionDate,
			&filing,
			&tx.PartyCIK,
			&tx.PartyName,
			&tx.Relationship,
			&tx.OfficerTitle,
			&columns.IsDirector,
			&columns.IsOfficer,
			&columns.IsTenPercentOwner,
			&columns.IsOther,
			&tx.TransactionCode,
			&sharesStr,
			&priceStr,
		); scanErr != nil {
			return nil, fmt.Errorf("scan purchase: %w", scanErr)
		}

		tx.TransactionDate = insider.DateOnly(tx.TransactionDate)
		if filing.Valid {
			tx.FilingDate = insider.DateOnly(filing.Time)
		}
		tx.PartyKey = insider.NormalizeName(tx.PartyName)
		tx.Flags = insider.DeriveFlags(columns, tx.Relationship)

		var okShares, okPrice bool
		tx.Shares, okShares = parseAmount(sharesStr)
		tx.Price, okPrice = parseAmount(priceStr)
		tx.Malformed = !okShares || !okPrice

		txs = append(txs, tx)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return txs, nil
}

// parseAmount converts a text column to a decimal. Missing, unparseable and
// negative values yield zero and false.
func parseAmount(v sql.NullString) (decimal.Decimal, bool) {
	if !v.Valid {
		return decimal.Zero, false
	}
	raw := strings.ReplaceAll(strings.TrimSpace(v.String), ",", "")
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}
