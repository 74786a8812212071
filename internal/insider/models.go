package insider

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used across the CLI and exports.
const DateLayout = "2006-01-02"

// Flags are the structural relationship flags reported on Form 3/4/5.
// They are not mutually exclusive.
type Flags struct {
	IsDirector        bool `json:"is_director"`
	IsOfficer         bool `json:"is_officer"`
	IsTenPercentOwner bool `json:"is_ten_percent_owner"`
	IsOther           bool `json:"is_other"`
}

// Merge ORs two flag sets.
func (f Flags) Merge(other Flags) Flags {
	return Flags{
		IsDirector:        f.IsDirector || other.IsDirector,
		IsOfficer:         f.IsOfficer || other.IsOfficer,
		IsTenPercentOwner: f.IsTenPercentOwner || other.IsTenPercentOwner,
		IsOther:           f.IsOther || other.IsOther,
	}
}

// Transaction is one insider purchase line item as read from the purchases view.
type Transaction struct {
	Ticker          string
	IssuerName      string
	PartyKey        string
	PartyCIK        string
	PartyName       string
	Relationship    string
	OfficerTitle    string
	Flags           Flags
	TransactionCode string
	TransactionDate time.Time
	FilingDate      time.Time
	Shares          decimal.Decimal
	Price           decimal.Decimal
	// Malformed is set when shares or price could not be parsed and were zeroed.
	Malformed bool
}

// TotalValue is shares × price. Negative inputs contribute zero.
func (t Transaction) TotalValue() decimal.Decimal {
	if t.Shares.IsNegative() || t.Price.IsNegative() {
		return decimal.Zero
	}
	return t.Shares.Mul(t.Price)
}

// NormalizeName uppercases and collapses whitespace. The result is the party key.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// DeriveFlags combines the boolean columns with the free-text relationship
// (e.g. "Director, Officer", "TenPercentOwner").
func DeriveFlags(columns Flags, relationship string) Flags {
	rel := strings.ToLower(relationship)
	derived := Flags{
		IsDirector:        strings.Contains(rel, "director"),
		IsOfficer:         strings.Contains(rel, "officer"),
		IsTenPercentOwner: strings.Contains(rel, "tenpercent") || strings.Contains(rel, "ten percent") || strings.Contains(rel, "10%"),
		IsOther:           strings.Contains(rel, "other"),
	}
	return columns.Merge(derived)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// FormatUSD renders a whole-dollar amount with thousands separators, e.g. "$2,564,984".
func FormatUSD(d decimal.Decimal) string {
	digits := d.Abs().Round(0).StringFixed(0)
	var b strings.Builder
	if d.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
