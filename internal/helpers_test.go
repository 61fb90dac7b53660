package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func amount(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

var rawTypes = map[EventType]string{
	EventNewOrIncrease: "Add Products",
	EventReduction:     "Reduction",
	EventTermination:   "Debook",
	EventOther:         "Renewal",
}

// opp builds a subscription-product event. Use onOneTime to move it to the
// one-time product.
func opp(name, d, amt string, typ EventType, status AccountStatus, id string) Event {
	raw := map[AccountStatus]string{
		AccountActive:  "Active",
		AccountChurned: "Churned",
		AccountUnknown: "",
		AccountOther:   "On Hold",
	}[status]
	return Event{
		AccountID:       "ID-" + name,
		AccountName:     name,
		ProductCode:     DefaultSubscriptionProduct,
		Date:            date(d),
		DateValid:       true,
		RawDate:         d,
		Amount:          amount(amt),
		OpportunityType: rawTypes[typ],
		Type:            typ,
		OpportunityID:   id,
		Status:          status,
		RawStatus:       raw,
	}
}

func onOneTime(ev Event) Event {
	ev.ProductCode = DefaultOneTimeProduct
	return ev
}

func withSeq(events ...Event) []Event {
	for i := range events {
		events[i].Seq = i
	}
	return events
}

// notes renders identity, date and note of each record for compact asserts.
func notes(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		d := "invalid"
		if rec.DateValid {
			d = rec.Date.Format("2006-01-02")
		}
		out = append(out, rec.Identity+" "+d+" "+rec.Note.String())
	}
	return out
}

func recordsOf(records []Record, identity string) []Record {
	var out []Record
	for _, rec := range records {
		if rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out
}
