package internal

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Column names of the opportunity export.
const (
	ColAccountName     = "Account Name"
	ColAccountNumber   = "Five9 Account Number"
	ColCloseDate       = "Close Date"
	ColProductCode     = "Product Code"
	ColAmount          = "Amount"
	ColOpportunityType = "Opportunity Type"
	ColOpportunityID   = "Opportunity ID"
	ColAccountID       = "Account ID"
	ColAccountStatus   = "Account Status"
)

// RequiredColumns must all be present for a batch to be processed.
var RequiredColumns = []string{
	ColAccountName,
	ColAccountID,
	ColCloseDate,
	ColProductCode,
	ColAmount,
	ColOpportunityType,
	ColOpportunityID,
	ColAccountStatus,
}

var knownColumns = append([]string{ColAccountNumber}, RequiredColumns...)

// columnAliases maps alternative header spellings to export columns.
var columnAliases = map[string]string{
	"account number": ColAccountNumber,
	"date":           ColCloseDate,
	"event date":     ColCloseDate,
}

// RawRecord is one input row keyed by export column name.
type RawRecord map[string]string

// CanonicalColumn maps a header cell to the export column it names, so
// "Account_Name", "account name" and "Account Name" all read the same.
// Unknown headers are returned trimmed.
func CanonicalColumn(header string) string {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(header, "_", " ")), " "))
	for _, col := range knownColumns {
		if strings.ToLower(col) == key {
			return col
		}
	}
	if col, ok := columnAliases[key]; ok {
		return col
	}
	return strings.TrimSpace(header)
}

// ValidateHeader rejects a batch whose header lacks a required column.
func ValidateHeader(source string, header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[CanonicalColumn(h)] = true
	}
	missing := lo.Filter(RequiredColumns, func(col string, _ int) bool {
		return !present[col]
	})
	if len(missing) > 0 {
		return newSchemaError(source, missing)
	}
	return nil
}

// dateLayouts are tried in order when reading Close Date.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate reads a close date. ok is false for anything unparseable.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseAmount reads a currency cell such as "1,234.50", "$100" or "(50.00)".
// Empty or unreadable cells are null.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d)
}

// ParseAccountStatus normalizes the Account Status column.
func ParseAccountStatus(s string) AccountStatus {
	switch strings.TrimSpace(s) {
	case "Active":
		return AccountActive
	case "Churned":
		return AccountChurned
	case "":
		return AccountUnknown
	default:
		return AccountOther
	}
}

// BuildEvents converts raw rows into events. Seq follows row order.
func BuildEvents(rows []RawRecord, cfg *Config) []Event {
	events := make([]Event, 0, len(rows))
	for i, row := range rows {
		date, ok := ParseDate(row[ColCloseDate])
		events = append(events, Event{
			AccountID:       strings.TrimSpace(row[ColAccountID]),
			AccountName:     strings.TrimSpace(row[ColAccountName]),
			AccountNumber:   strings.TrimSpace(row[ColAccountNumber]),
			ProductCode:     strings.TrimSpace(row[ColProductCode]),
			Date:            date,
			DateValid:       ok,
			RawDate:         row[ColCloseDate],
			Amount:          ParseAmount(row[ColAmount]),
			OpportunityType: strings.TrimSpace(row[ColOpportunityType]),
			Type:            cfg.EventTypeOf(row[ColOpportunityType]),
			OpportunityID:   strings.TrimSpace(row[ColOpportunityID]),
			Status:          ParseAccountStatus(row[ColAccountStatus]),
			RawStatus:       row[ColAccountStatus],
			Seq:             i,
		})
	}
	return events
}

// rowFromCells keys a header-aligned cell slice by canonical column.
func rowFromCells(header, cells []string) RawRecord {
	row := make(RawRecord, len(header))
	for i, h := range header {
		if i < len(cells) {
			row[CanonicalColumn(h)] = cells[i]
		} else {
			row[CanonicalColumn(h)] = ""
		}
	}
	return row
}
