package internal

import (
	"sort"
)

// Normalized is the canonical ordering of a batch.
type Normalized struct {
	Events []Event
	// Duplicate[i] is true when Events[i] repeats Events[i-1].
	Duplicate []bool
}

// Normalize stable-sorts events by account name, product code and date
// (unparseable dates last within their group, ties in input order) and
// marks adjacent duplicates. The input slice is not modified.
func Normalize(events []Event) Normalized {
	sorted := make([]Event, len(events))
	copy(sorted, events)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AccountName != b.AccountName {
			return a.AccountName < b.AccountName
		}
		if a.ProductCode != b.ProductCode {
			return a.ProductCode < b.ProductCode
		}
		if a.DateValid != b.DateValid {
			return a.DateValid
		}
		if !a.DateValid {
			return false
		}
		return a.Date.Before(b.Date)
	})

	dup := make([]bool, len(sorted))
	for i := 1; i < len(sorted); i++ {
		dup[i] = isDuplicateOf(sorted[i], sorted[i-1])
	}

	return Normalized{Events: sorted, Duplicate: dup}
}

// isDuplicateOf compares the fields that identify a repeated export row.
// Null amounts never match, so a nulled duplicate cannot chain.
func isDuplicateOf(curr, prev Event) bool {
	return curr.AccountName == prev.AccountName &&
		curr.ProductCode == prev.ProductCode &&
		curr.OpportunityID == prev.OpportunityID &&
		curr.Amount.Valid && prev.Amount.Valid &&
		curr.Amount.Decimal.Equal(prev.Amount.Decimal)
}

// Group is the arena of one account/product pair, in normalized order.
type Group struct {
	AccountName string
	ProductCode string
	Events      []Event
	Duplicate   []bool
}

// SplitGroups cuts a normalized batch into account/product groups.
func SplitGroups(n Normalized) []Group {
	var groups []Group
	start := 0
	for i := 1; i <= len(n.Events); i++ {
		if i < len(n.Events) &&
			n.Events[i].AccountName == n.Events[start].AccountName &&
			n.Events[i].ProductCode == n.Events[start].ProductCode {
			continue
		}
		if i > start {
			groups = append(groups, Group{
				AccountName: n.Events[start].AccountName,
				ProductCode: n.Events[start].ProductCode,
				Events:      n.Events[start:i],
				Duplicate:   n.Duplicate[start:i],
			})
		}
		start = i
	}
	return groups
}

// candidateStarts returns the positions of span-opening events in the group.
func (g Group) candidateStarts() []int {
	var starts []int
	for i, ev := range g.Events {
		if g.Duplicate[i] {
			continue
		}
		if ev.IsCandidateStart() {
			starts = append(starts, i)
		}
	}
	return starts
}
