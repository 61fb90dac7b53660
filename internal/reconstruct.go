package internal

import (
	"time"

	"go.uber.org/zap"
)

// Options controls a reconstruction run.
type Options struct {
	Config *Config
	// Now fixes the processing month. Zero means the wall clock.
	Now    time.Time
	Logger *zap.Logger
}

// Result is the reconstructed ledger of one batch.
type Result struct {
	Records   []Record
	MultiSpan map[string]MultiSpan
	Anomalies []Anomaly
	DateRange DateRange
}

// Reconstruct classifies every event, fills the monthly gaps between
// lifecycle events and returns the combined ledger. Every input event
// yields exactly one record; synthetic rows come on top.
func Reconstruct(events []Event, opts Options) Result {
	cfg := opts.Config
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	horizon := MonthStart(now)

	normalized := Normalize(events)
	groups := SplitGroups(normalized)
	multi := DetectOverlaps(groups, cfg)

	result := Result{MultiSpan: multi}
	for _, g := range groups {
		var ms *MultiSpan
		if g.ProductCode == cfg.SubscriptionProduct() {
			if m, ok := multi[g.AccountName]; ok {
				ms = &m
			}
		}
		gc := newGroupClassifier(g, cfg, ms, horizon, log)
		result.Records = append(result.Records, gc.classify()...)
		result.Anomalies = append(result.Anomalies, gc.anomalies...)
	}
	result.Records = applySyntheticOverrides(result.Records, cfg)
	result.DateRange = AnalyzeDateRange(events)

	synthetic := 0
	for _, rec := range result.Records {
		if rec.Synthetic {
			synthetic++
		}
	}
	log.Info("ledger reconstructed",
		zap.Int("events", len(events)),
		zap.Int("groups", len(groups)),
		zap.Int("records", len(result.Records)),
		zap.Int("synthetic", synthetic),
		zap.Int("multi_span_accounts", len(multi)),
		zap.Int("anomalies", len(result.Anomalies)),
		zap.Time("horizon", horizon))

	return result
}

// AnalyzeDateRange returns the range of valid event dates.
func AnalyzeDateRange(events []Event) DateRange {
	var r DateRange
	for _, ev := range events {
		if !ev.DateValid {
			continue
		}
		if r.Start.IsZero() || ev.Date.Before(r.Start) {
			r.Start = ev.Date
		}
		if r.End.IsZero() || ev.Date.After(r.End) {
			r.End = ev.Date
		}
	}
	return r
}
