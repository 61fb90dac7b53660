package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// OutputOptions controls how the status summary is displayed
type OutputOptions struct {
	// ShowFilter is one of all, active, ended, other
	ShowFilter string
	Currency   Currency
}

// JSONOutput is the root JSON output object
type JSONOutput struct {
	Accounts  []JSONAccount   `json:"accounts"`
	MultiSpan []JSONMultiSpan `json:"multi_span,omitempty"`
	Summary   JSONSummary     `json:"summary"`
}

// JSONSummary contains aggregate statistics
type JSONSummary struct {
	Total        int            `json:"total"`
	Active       []string       `json:"active"`
	Ended        []string       `json:"ended"`
	Other        []string       `json:"other"`
	ActiveCount  int            `json:"active_count"`
	EndedCount   int            `json:"ended_count"`
	OtherCount   int            `json:"other_count"`
	MonthlyTotal string         `json:"monthly_total"`
	Currency     string         `json:"currency"`
	DateRange    *JSONDateRange `json:"date_range,omitempty"`
}

// JSONDateRange is the span of valid event dates in the batch
type JSONDateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// JSONAccount is the JSON output format for an account identity
type JSONAccount struct {
	Identity        string `json:"identity"`
	Category        string `json:"category"`
	Note            string `json:"note"`
	LatestDate      string `json:"latest_date,omitempty"`
	LatestAmount    string `json:"latest_amount,omitempty"`
	OpportunityType string `json:"opportunity_type,omitempty"`
	AccountStatus   string `json:"account_status,omitempty"`
}

// JSONMultiSpan lists the identities of an account with concurrent spans
type JSONMultiSpan struct {
	AccountName string   `json:"account_name"`
	Identities  []string `json:"identities"`
}

// MonthlyTotal sums the latest amounts of active identities.
func (s StatusSummary) MonthlyTotal() decimal.Decimal {
	total := decimal.Zero
	for _, acc := range s.Accounts {
		if acc.Category == CategoryActive && acc.Latest.Amount.Valid {
			total = total.Add(acc.Latest.Amount.Decimal)
		}
	}
	return total
}

// PrintStatusJSON outputs the status summary in JSON format
func PrintStatusJSON(w io.Writer, summary StatusSummary, dates DateRange, currency Currency) error {
	accounts := make([]JSONAccount, 0, len(summary.Accounts))
	for _, acc := range summary.Accounts {
		ja := JSONAccount{
			Identity:        acc.Identity,
			Category:        string(acc.Category),
			Note:            acc.DisplayTag.String(),
			OpportunityType: acc.Latest.OpportunityType,
			AccountStatus:   acc.Latest.RawStatus,
		}
		if acc.Latest.DateValid {
			ja.LatestDate = acc.Latest.Date.Format("2006-01-02")
		}
		if acc.Latest.Amount.Valid {
			ja.LatestAmount = acc.Latest.Amount.Decimal.StringFixed(2)
		}
		accounts = append(accounts, ja)
	}

	var multi []JSONMultiSpan
	for _, ms := range summary.MultiSpan {
		multi = append(multi, JSONMultiSpan{AccountName: ms.AccountName, Identities: ms.Identities})
	}

	output := JSONOutput{
		Accounts:  accounts,
		MultiSpan: multi,
		Summary: JSONSummary{
			Total:        summary.Total(),
			Active:       nonNil(summary.Active),
			Ended:        nonNil(summary.Ended),
			Other:        nonNil(summary.Other),
			ActiveCount:  len(summary.Active),
			EndedCount:   len(summary.Ended),
			OtherCount:   len(summary.Other),
			MonthlyTotal: summary.MonthlyTotal().StringFixed(2),
			Currency:     currency.Code,
		},
	}
	if !dates.Start.IsZero() {
		output.Summary.DateRange = &JSONDateRange{
			Start: dates.Start.Format("2006-01-02"),
			End:   dates.End.Format("2006-01-02"),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PrintStatusTable outputs the status summary as a formatted table
func PrintStatusTable(w io.Writer, summary StatusSummary, dates DateRange, opts OutputOptions) {
	fmt.Fprintf(w, "Found %d subscription accounts (%d active, %d ended, %d other)\n",
		summary.Total(), len(summary.Active), len(summary.Ended), len(summary.Other))
	if !dates.Start.IsZero() {
		fmt.Fprintf(w, "Events from %s to %s\n", dates.Start.Format("2006-01-02"), dates.End.Format("2006-01-02"))
	}
	show := opts.ShowFilter
	if show == "" {
		show = "all"
	}
	fmt.Fprintf(w, "Showing: %s\n\n", show)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Account", "Status", "Note", "Last Event", "Amount", "Opportunity Type", "Account Status"})

	for _, acc := range summary.Accounts {
		if show != "all" && string(acc.Category) != show {
			continue
		}
		last := text.FgHiBlack.Sprint("-")
		if acc.Latest.DateValid {
			last = acc.Latest.Date.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			acc.Identity,
			categoryLabel(acc.Category),
			acc.DisplayTag.String(),
			last,
			opts.Currency.FormatNull(acc.Latest.Amount),
			acc.Latest.OpportunityType,
			acc.Latest.RawStatus,
		})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", text.Bold.Sprint("Total (active)"),
		text.Bold.Sprint(opts.Currency.Format(summary.MonthlyTotal())), "", ""})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()

	if len(summary.MultiSpan) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Accounts with concurrent subscriptions:")
		for _, ms := range summary.MultiSpan {
			fmt.Fprintf(w, "  %s: %s\n", ms.AccountName, strings.Join(ms.Identities, ", "))
		}
	}
}

func categoryLabel(c Category) string {
	switch c {
	case CategoryActive:
		return text.FgGreen.Sprint("ACTIVE")
	case CategoryEnded:
		return text.FgRed.Sprint("ENDED")
	default:
		return text.FgYellow.Sprint("OTHER")
	}
}

// PrintAnomalies lists recovered row problems, one per line.
func PrintAnomalies(w io.Writer, anomalies []Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d rows needed attention:\n", len(anomalies))
	for _, a := range anomalies {
		fmt.Fprintf(w, "  row %d %s/%s (%s): %s: %s\n",
			a.Seq+1, a.AccountName, a.ProductCode, a.OpportunityID, a.Kind, a.Detail)
	}
}
