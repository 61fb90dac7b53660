package internal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyDates returns start+1 month, start+2 months, ... for as long as the
// date is before limit. Each date is anchored on start, so day clipping in
// short months does not drift into later months.
func MonthlyDates(start, limit time.Time) []time.Time {
	var dates []time.Time
	for k := 1; ; k++ {
		d := AddMonths(start, k)
		if !d.Before(limit) {
			return dates
		}
		dates = append(dates, d)
	}
}

// billedMonths indexes which identity already bills which month.
type billedMonths map[string]bool

func billedKey(identity, product string, d time.Time) string {
	return identity + "\x00" + product + "\x00" + monthKey(d)
}

func (b billedMonths) add(rec Record) {
	if !rec.DateValid {
		return
	}
	switch rec.Note.Kind {
	case LifecycleStart, LifecycleSubscribedBilling:
		b[billedKey(rec.Identity, rec.ProductCode, rec.Date)] = true
	}
}

func (b billedMonths) has(identity, product string, d time.Time) bool {
	return b[billedKey(identity, product, d)]
}

func indexBilled(records []Record) billedMonths {
	b := make(billedMonths)
	for _, rec := range records {
		b.add(rec)
	}
	return b
}

// synthesize produces the monthly rows of every span in the group: up to
// the full end for closed spans, up to the processing month for open spans
// that qualify for extension.
func (c *groupClassifier) synthesize(records []Record) []Record {
	template := make(map[int]Record, len(c.spans))
	for _, rec := range records {
		if rec.Span > 0 && rec.Note.Kind == LifecycleStart && !rec.Synthetic {
			template[rec.Span] = rec
		}
	}

	billed := indexBilled(records)
	var out []Record
	for _, sp := range c.spans {
		tmpl, ok := template[sp.number]
		if !ok {
			continue
		}
		var limit time.Time
		switch {
		case sp.end >= 0:
			limit = c.group.Events[sp.end].Date
		case c.shouldExtend(sp):
			limit = c.horizon
		default:
			continue
		}
		out = append(out, c.synthesizeSpan(sp, tmpl, limit, billed)...)
	}
	return out
}

// shouldExtend decides whether an open span bills through the processing month.
func (c *groupClassifier) shouldExtend(sp *span) bool {
	if c.multi != nil {
		return true
	}
	start := c.group.Events[sp.start]
	if start.Status != AccountActive {
		return false
	}
	return len(c.starts) == 1 || c.cfg.IsAlwaysExtend(c.group.AccountName)
}

func (c *groupClassifier) synthesizeSpan(sp *span, tmpl Record, limit time.Time, billed billedMonths) []Record {
	start := c.group.Events[sp.start]
	var partial *Event
	if sp.partial >= 0 {
		partial = &c.group.Events[sp.partial]
	}

	var out []Record
	for _, d := range MonthlyDates(start.Date, limit) {
		if billed.has(sp.identity, start.ProductCode, d) {
			continue
		}
		rec := syntheticFrom(tmpl, d, Tag{Kind: LifecycleSubscribedBilling, Variant: sp.variant})
		rec.Amount = spanAmount(start, partial, d)
		billed.add(rec)
		out = append(out, rec)
	}
	return out
}

// spanAmount is the billed amount of a span at date d: the start amount,
// lowered by the partial reduction once that reduction is in the past.
func spanAmount(start Event, partial *Event, d time.Time) decimal.NullDecimal {
	if partial == nil || !partial.Date.Before(d) || !start.Amount.Valid {
		return start.Amount
	}
	return decimal.NewNullDecimal(start.Amount.Decimal.Add(partial.Amount.Decimal))
}

func syntheticFrom(tmpl Record, d time.Time, tag Tag) Record {
	rec := tmpl
	rec.Date = d
	rec.DateValid = true
	rec.RawDate = d.Format("2006-01-02")
	rec.Note = tag
	rec.Synthetic = true
	return rec
}

// sortGroupRecords orders a group's records by identity then date, keeping
// unparseable dates last and real rows ahead of synthetic ones on ties.
func sortGroupRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Identity != b.Identity {
			return a.Identity < b.Identity
		}
		if a.DateValid != b.DateValid {
			return a.DateValid
		}
		if a.DateValid && !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return !a.Synthetic && b.Synthetic
	})
}

// applySyntheticOverrides appends the configured synthetic runs. The
// template of a run is the account's first subscription record (first
// record of any product otherwise); new rows join the template's group.
func applySyntheticOverrides(records []Record, cfg *Config) []Record {
	if cfg == nil || len(cfg.Overrides.Synthetic) == 0 {
		return records
	}

	billed := indexBilled(records)
	for _, run := range cfg.Overrides.Synthetic {
		idx := templateIndex(records, run.Account, cfg.SubscriptionProduct())
		if idx < 0 {
			continue
		}
		tmpl := records[idx]
		tmpl.Note = Tag{}

		var added []Record
		for k := 0; ; k++ {
			d := AddMonths(run.fromDate, k)
			if d.After(run.toDate) {
				break
			}
			if billed.has(tmpl.Identity, tmpl.ProductCode, d) {
				continue
			}
			rec := syntheticFrom(tmpl, d, run.tag)
			if run.amount.Valid {
				rec.Amount = run.amount
			}
			billed.add(rec)
			added = append(added, rec)
		}
		if len(added) == 0 {
			continue
		}
		records = insertIntoGroup(records, idx, added)
	}
	return records
}

func templateIndex(records []Record, account, product string) int {
	first := -1
	for i, rec := range records {
		if rec.AccountName != account {
			continue
		}
		if rec.ProductCode == product {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// insertIntoGroup adds rows to the contiguous group block containing
// records[idx] and re-sorts that block.
func insertIntoGroup(records []Record, idx int, added []Record) []Record {
	name, product := records[idx].AccountName, records[idx].ProductCode
	lo, hi := idx, idx+1
	for lo > 0 && records[lo-1].AccountName == name && records[lo-1].ProductCode == product {
		lo--
	}
	for hi < len(records) && records[hi].AccountName == name && records[hi].ProductCode == product {
		hi++
	}

	block := make([]Record, 0, hi-lo+len(added))
	block = append(block, records[lo:hi]...)
	block = append(block, added...)
	sortGroupRecords(block)

	out := make([]Record, 0, len(records)+len(added))
	out = append(out, records[:lo]...)
	out = append(out, block...)
	out = append(out, records[hi:]...)
	return out
}
