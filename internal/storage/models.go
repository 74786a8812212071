package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseQuery filters rows of the purchases view.
type PurchaseQuery struct {
	From time.Time
	To   time.Time
	// Ticker restricts to a single issuer when non-empty.
	Ticker        string
	MinTradeValue decimal.Decimal
	// Codes are the transaction codes treated as purchases; empty means "P".
	Codes []string
}

// AlertRecord captures a campaign alert for de-duplication and auditing.
type AlertRecord struct {
	ID           int64
	Ticker       string
	WindowStart  time.Time
	WindowEnd    time.Time
	ClusterScore float64
	NumPeople    int
	TotalValue   decimal.Decimal
	CreatedAt    time.Time
}
