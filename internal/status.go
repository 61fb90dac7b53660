package internal

import (
	"sort"

	"github.com/samber/lo"
)

// Category is an account's current subscription state.
type Category string

const (
	CategoryActive Category = "active"
	CategoryEnded  Category = "ended"
	CategoryOther  Category = "other"
)

// Categorize places a displayed tag into exactly one category. Only
// new-or-increase rows can be active; a later Reduction row leaves the
// account in Other even when it is tagged as still billing.
func Categorize(tag Tag, status AccountStatus, typ EventType) Category {
	switch {
	case tag.Kind == LifecycleReductionEnd || tag.Variant.Ends():
		return CategoryEnded
	case tag.Variant == VariantNone && status == AccountActive && typ == EventNewOrIncrease &&
		(tag.Kind == LifecycleStart || tag.Kind == LifecycleSubscribedBilling || tag.Kind == LifecycleReductionBilling):
		return CategoryActive
	default:
		return CategoryOther
	}
}

// AccountState is the summary line of one account identity.
type AccountState struct {
	Identity   string
	Latest     Record
	DisplayTag Tag
	Category   Category
}

// MultiSpanState lists the identities of a multi-span account.
type MultiSpanState struct {
	AccountName string
	Identities  []string
}

// StatusSummary is the side report derived from a reconstructed ledger.
type StatusSummary struct {
	Accounts  []AccountState
	Active    []string
	Ended     []string
	Other     []string
	MultiSpan []MultiSpanState
}

// Total is the number of distinct subscription identities.
func (s StatusSummary) Total() int {
	return len(s.Accounts)
}

// AggregateStatus derives each subscription identity's current state from
// its most recent record. Records are read, never modified.
func AggregateStatus(records []Record, multi map[string]MultiSpan, cfg *Config) StatusSummary {
	subscription := cfg.SubscriptionProduct()
	oneTime := cfg.OneTimeProduct()

	swaps := make(map[[2]string]bool)
	for _, rec := range records {
		if rec.ProductCode == oneTime && rec.OpportunityID != "" {
			swaps[[2]string{rec.AccountName, rec.OpportunityID}] = true
		}
	}

	latest := latestByIdentity(lo.Filter(records, func(rec Record, _ int) bool {
		return rec.ProductCode == subscription
	}))

	var summary StatusSummary
	for _, identity := range lo.Keys(latest) {
		rec := latest[identity]
		tag := displayTag(rec, swaps, cfg)
		category := Categorize(tag, rec.Status, rec.Type)

		summary.Accounts = append(summary.Accounts, AccountState{
			Identity:   identity,
			Latest:     rec,
			DisplayTag: tag,
			Category:   category,
		})
		switch category {
		case CategoryActive:
			summary.Active = append(summary.Active, identity)
		case CategoryEnded:
			summary.Ended = append(summary.Ended, identity)
		default:
			summary.Other = append(summary.Other, identity)
		}
	}

	sort.Slice(summary.Accounts, func(i, j int) bool {
		return summary.Accounts[i].Identity < summary.Accounts[j].Identity
	})
	sort.Strings(summary.Active)
	sort.Strings(summary.Ended)
	sort.Strings(summary.Other)

	for name, ms := range multi {
		summary.MultiSpan = append(summary.MultiSpan, MultiSpanState{
			AccountName: name,
			Identities:  append([]string(nil), ms.Identities...),
		})
	}
	sort.Slice(summary.MultiSpan, func(i, j int) bool {
		return summary.MultiSpan[i].AccountName < summary.MultiSpan[j].AccountName
	})

	return summary
}

// latestByIdentity picks the most recent record of each identity. Valid
// dates beat unparseable ones, later positions win ties, and duplicate rows
// only count when an identity has nothing else.
func latestByIdentity(records []Record) map[string]Record {
	best := make(map[string]Record)
	bestDup := make(map[string]Record)
	for _, rec := range records {
		target := best
		if rec.Note.Kind == LifecycleDuplicate {
			target = bestDup
		}
		cur, ok := target[rec.Identity]
		if !ok || isMoreRecent(rec, cur) {
			target[rec.Identity] = rec
		}
	}
	for identity, rec := range bestDup {
		if _, ok := best[identity]; !ok {
			best[identity] = rec
		}
	}
	return best
}

func isMoreRecent(rec, cur Record) bool {
	if rec.DateValid != cur.DateValid {
		return rec.DateValid
	}
	if !rec.DateValid {
		return true
	}
	return !rec.Date.Before(cur.Date)
}

// displayTag applies the status special cases in fixed precedence.
func displayTag(rec Record, swaps map[[2]string]bool, cfg *Config) Tag {
	switch {
	case rec.Status == AccountChurned:
		return rec.Note.WithVariant(VariantChurned)
	case rec.Status == AccountUnknown:
		return rec.Note.WithVariant(VariantInactive)
	}
	if tag, ok := cfg.ForcedTagFor(rec.Event, ScopeStatus); ok {
		return tag
	}
	if rec.IsZero() && swaps[[2]string{rec.AccountName, rec.OpportunityID}] {
		return rec.Note.WithVariant(VariantSwap)
	}
	return rec.Note
}
