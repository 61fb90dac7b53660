package internal

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Account Name", ColAccountName},
		{"Account_Name", ColAccountName},
		{" account  name ", ColAccountName},
		{"Five9_Account_Number", ColAccountNumber},
		{"account_number", ColAccountNumber},
		{"OPPORTUNITY_ID", ColOpportunityID},
		{"Close_Date", ColCloseDate},
		{"Note", "Note"},
		{" Extra Column ", "Extra Column"},
	}
	for _, tt := range tests {
		if got := CanonicalColumn(tt.in); got != tt.want {
			t.Errorf("CanonicalColumn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOk bool
	}{
		{"2024-03-05", "2024-03-05", true},
		{"03/05/2024", "2024-03-05", true},
		{"3/5/2024", "2024-03-05", true},
		{"3/5/24", "2024-03-05", true},
		{"2024-03-05 10:30:00", "2024-03-05", true},
		{"2024-03-05T23:30:00-05:00", "2024-03-05", true},
		{" 2024-03-05 ", "2024-03-05", true},
		{"", "", false},
		{"2024-02-30", "", false},
		{"March 5th", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.wantOk {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.wantOk)
			continue
		}
		if ok && !got.Equal(date(tt.want)) {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		wantValid bool
	}{
		{"100", "100.00", true},
		{"-40.5", "-40.50", true},
		{"1,234.56", "1234.56", true},
		{"$99", "99.00", true},
		{"(50.00)", "-50.00", true},
		{"0", "0.00", true},
		{"", "", false},
		{"  ", "", false},
		{"n/a", "", false},
	}
	for _, tt := range tests {
		got := ParseAmount(tt.in)
		if got.Valid != tt.wantValid {
			t.Errorf("ParseAmount(%q) valid = %v, want %v", tt.in, got.Valid, tt.wantValid)
			continue
		}
		if got.Valid && got.Decimal.StringFixed(2) != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got.Decimal.StringFixed(2), tt.want)
		}
	}
}

func TestParseAccountStatus(t *testing.T) {
	tests := map[string]AccountStatus{
		"Active":   AccountActive,
		" Active ": AccountActive,
		"Churned":  AccountChurned,
		"":         AccountUnknown,
		"On Hold":  AccountOther,
		"active":   AccountOther,
	}
	for in, want := range tests {
		if got := ParseAccountStatus(in); got != want {
			t.Errorf("ParseAccountStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateHeader(t *testing.T) {
	full := []string{"Account Name", "Account ID", "Close Date", "Product Code", "Amount", "Opportunity Type", "Opportunity ID", "Account Status"}
	if err := ValidateHeader("x", full); err != nil {
		t.Errorf("full header rejected: %v", err)
	}

	err := ValidateHeader("x", full[:6])
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}
	var se *SchemaError
	if !errors.As(err, &se) || len(se.Missing) != 2 {
		t.Errorf("missing = %v, want Opportunity ID and Account Status", se)
	}
	if len(errors.GetAllHints(err)) == 0 {
		t.Error("schema errors carry a hint")
	}
}
