package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType is the normalized role of an opportunity row.
type EventType string

const (
	EventNewOrIncrease EventType = "new_or_increase"
	EventReduction     EventType = "reduction"
	EventTermination   EventType = "termination"
	EventOther         EventType = "other"
)

// AccountStatus is the normalized account status column.
type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountChurned AccountStatus = "churned"
	AccountUnknown AccountStatus = "unknown" // empty cell
	AccountOther   AccountStatus = "other"
)

// Event is one opportunity row as read from the source ledger.
type Event struct {
	AccountID       string
	AccountName     string
	AccountNumber   string
	ProductCode     string
	Date            time.Time
	DateValid       bool
	RawDate         string
	Amount          decimal.NullDecimal
	OpportunityType string // raw column value, written back unchanged
	Type            EventType
	OpportunityID   string
	Status          AccountStatus
	RawStatus       string

	// Seq is the position in the source file. Sorting never reorders
	// same-key events against it.
	Seq int
}

// IsPositive reports whether the amount is present and > 0.
func (e Event) IsPositive() bool {
	return e.Amount.Valid && e.Amount.Decimal.IsPositive()
}

// IsNegative reports whether the amount is present and < 0.
func (e Event) IsNegative() bool {
	return e.Amount.Valid && e.Amount.Decimal.IsNegative()
}

// IsZero reports whether the amount is present and exactly zero.
func (e Event) IsZero() bool {
	return e.Amount.Valid && e.Amount.Decimal.IsZero()
}

// IsCandidateStart reports whether the event can open a subscription span.
func (e Event) IsCandidateStart() bool {
	return e.Type == EventNewOrIncrease && e.IsPositive() && e.DateValid
}

// IsFullEnd reports whether the event ends a span when met by a forward scan.
func (e Event) IsFullEnd() bool {
	return e.Type == EventReduction || e.Type == EventTermination
}

// IsPartialReduction reports whether the event lowers a running span.
func (e Event) IsPartialReduction() bool {
	return e.Type == EventNewOrIncrease && e.IsNegative()
}

// Record is one row of the reconstructed ledger.
type Record struct {
	Event

	// Identity is the account name, suffixed _N for the Nth concurrent span.
	Identity  string
	Note      Tag
	Synthetic bool
	// Span is the 1-based span number the record belongs to, 0 when unlinked.
	Span int
}

// Anomaly is a recovered classification or parse problem.
type Anomaly struct {
	Kind          error
	AccountName   string
	ProductCode   string
	OpportunityID string
	Seq           int
	Detail        string
}

// DateRange is the inclusive span of valid event dates in a batch.
type DateRange struct {
	Start time.Time
	End   time.Time
}
