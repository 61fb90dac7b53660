package internal

import (
	"fmt"

	"github.com/samber/lo"
)

// MultiSpan describes a subscription group holding several concurrent,
// unterminated starts.
type MultiSpan struct {
	AccountName string
	ProductCode string
	// Starts are positions in the group's event arena, in date order.
	Starts     []int
	Identities []string
}

// SpanIdentity names the nth span of an account: the bare name for the
// first, name_N after that.
func SpanIdentity(accountName string, n int) string {
	if n <= 1 {
		return accountName
	}
	return fmt.Sprintf("%s_%d", accountName, n)
}

// DetectOverlaps finds the multi-span groups of the subscription product,
// keyed by account name.
func DetectOverlaps(groups []Group, cfg *Config) map[string]MultiSpan {
	result := make(map[string]MultiSpan)
	for _, g := range groups {
		if g.ProductCode != cfg.SubscriptionProduct() {
			continue
		}
		if ms, ok := detectGroupOverlap(g, cfg); ok {
			result[g.AccountName] = ms
		}
	}
	return result
}

func detectGroupOverlap(g Group, cfg *Config) (MultiSpan, bool) {
	if len(g.Events) == 0 || cfg.IsSingleSpan(g.AccountName) {
		return MultiSpan{}, false
	}

	// Latest status is the last row of the group in normalized order
	if g.Events[len(g.Events)-1].Status != AccountActive {
		return MultiSpan{}, false
	}

	starts := g.candidateStarts()
	if len(starts) < 2 {
		return MultiSpan{}, false
	}

	for k := 0; k+1 < len(starts); k++ {
		from := g.Events[starts[k]].Date
		to := g.Events[starts[k+1]].Date
		ended := lo.ContainsBy(g.Events, func(ev Event) bool {
			return ev.DateValid && ev.Date.After(from) && ev.Date.Before(to) &&
				(ev.IsFullEnd() || ev.IsPartialReduction())
		})
		if ended {
			return MultiSpan{}, false
		}
	}

	identities := lo.Map(starts, func(_ int, n int) string {
		return SpanIdentity(g.AccountName, n+1)
	})
	return MultiSpan{
		AccountName: g.AccountName,
		ProductCode: g.ProductCode,
		Starts:      starts,
		Identities:  identities,
	}, true
}

// spanOf returns the 1-based span a group position belongs to: the last
// start at or before pos. Positions before the first start belong to span 1.
func (ms MultiSpan) spanOf(pos int) int {
	n := 1
	for k, s := range ms.Starts {
		if s <= pos {
			n = k + 1
		}
	}
	return n
}
