package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestIsKnownParser(t *testing.T) {
	// Register a test parser
	RegisterParser("test-format", ParserFunc(func(path string) ([]RawRecord, error) {
		return nil, nil
	}))

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"known parser", "test-format", true},
		{"built-in csv parser", "opportunities-csv", true},
		{"built-in xlsx parser", "opportunities-xlsx", true},
		{"built-in json parser", "simple-json", true},
		{"unknown parser", "unknown-format", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsKnownParser(tt.input)
			if got != tt.expected {
				t.Errorf("IsKnownParser(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseFileArg(t *testing.T) {
	// Register a test parser for these tests
	RegisterParser("test-format", ParserFunc(func(path string) ([]RawRecord, error) {
		return nil, nil
	}))

	tests := []struct {
		name           string
		input          string
		expectedFormat string
		expectedPath   string
	}{
		{
			name:           "with known format prefix",
			input:          "test-format:data.json",
			expectedFormat: "test-format",
			expectedPath:   "data.json",
		},
		{
			name:           "with built-in format prefix",
			input:          "opportunities-csv:export.txt",
			expectedFormat: "opportunities-csv",
			expectedPath:   "export.txt",
		},
		{
			name:           "no prefix",
			input:          "export.csv",
			expectedFormat: "",
			expectedPath:   "export.csv",
		},
		{
			name:           "unknown prefix treated as path",
			input:          "unknown:data.json",
			expectedFormat: "",
			expectedPath:   "unknown:data.json",
		},
		{
			name:           "windows path with drive letter",
			input:          "C:\\Users\\test\\data.xlsx",
			expectedFormat: "",
			expectedPath:   "C:\\Users\\test\\data.xlsx",
		},
		{
			name:           "format prefix with absolute path",
			input:          "test-format:/home/user/data.json",
			expectedFormat: "test-format",
			expectedPath:   "/home/user/data.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotFormat, gotPath := ParseFileArg(tt.input)
			if gotFormat != tt.expectedFormat {
				t.Errorf("ParseFileArg(%q) format = %q, want %q", tt.input, gotFormat, tt.expectedFormat)
			}
			if gotPath != tt.expectedPath {
				t.Errorf("ParseFileArg(%q) path = %q, want %q", tt.input, gotPath, tt.expectedPath)
			}
		})
	}
}

func TestDetectSource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"export.csv", "opportunities-csv"},
		{"EXPORT.CSV", "opportunities-csv"},
		{"report.xlsx", "opportunities-xlsx"},
		{"data.json", "simple-json"},
	}
	for _, tt := range tests {
		got, err := DetectSource(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := DetectSource("notes.txt")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

const csvHeader = "Account Name,Five9 Account Number,Close Date,Product Code,Amount,Opportunity Type,Opportunity ID,Account ID,Account Status\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseOpportunitiesCSV(t *testing.T) {
	path := writeFile(t, "export.csv", csvHeader+
		"Acme,F9-1,2024-01-15,350-0100,\"1,200.50\",Add Products,O1,A1,Active\n"+
		"Acme,F9-1,04/15/2024,350-0100,-1200.50,Debook,O2,A1,Active\n"+
		"Beta,,someday,350-0101,,Reduction,O3,B1,\n")

	events, err := ReadEvents("", path, NewDefaultConfig())
	require.NoError(t, err)
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "Acme", first.AccountName)
	assert.Equal(t, "F9-1", first.AccountNumber)
	assert.Equal(t, date("2024-01-15"), first.Date)
	assert.Equal(t, "1200.50", first.Amount.Decimal.StringFixed(2))
	assert.Equal(t, EventNewOrIncrease, first.Type)
	assert.Equal(t, AccountActive, first.Status)

	assert.Equal(t, date("2024-04-15"), events[1].Date)
	assert.Equal(t, EventTermination, events[1].Type)

	last := events[2]
	assert.False(t, last.DateValid)
	assert.Equal(t, "someday", last.RawDate)
	assert.False(t, last.Amount.Valid)
	assert.Equal(t, AccountUnknown, last.Status)
	assert.Equal(t, 2, last.Seq)
}

func TestParseOpportunitiesCSV_SanitizedHeaders(t *testing.T) {
	path := writeFile(t, "export.csv",
		"\xef\xbb\xbfAccount_Name,Close_Date,Product_Code,Amount,Opportunity_Type,Opportunity_ID,Account_ID,Account_Status\n"+
			"Acme,1/5/2024,350-0100,10,Add Products,O1,A1,Active\n")

	events, err := ReadEvents("opportunities-csv", path, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Acme", events[0].AccountName)
	assert.Equal(t, date("2024-01-05"), events[0].Date)
	assert.Empty(t, events[0].AccountNumber, "account number is optional")
}

func TestParseOpportunitiesCSV_HeaderOnly(t *testing.T) {
	events, err := ReadEvents("", writeFile(t, "export.csv", csvHeader), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseOpportunitiesCSV_MissingColumns(t *testing.T) {
	path := writeFile(t, "export.csv", "Account Name,Close Date,Amount\nAcme,2024-01-01,10\n")

	_, err := ReadEvents("", path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{ColAccountID, ColProductCode, ColOpportunityType, ColOpportunityID, ColAccountStatus}, schemaErr.Missing)
}

func TestParseOpportunitiesCSV_Empty(t *testing.T) {
	_, err := ReadEvents("", writeFile(t, "export.csv", ""), nil)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestParseOpportunitiesXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Closed Won Opportunities"},
		{},
		{"Account Name", "Close Date", "Product Code", "Amount", "Opportunity Type", "Opportunity ID", "Account ID", "Account Status"},
		{"Acme", "2024-01-15", "350-0100", "100", "Add Products", "O1", "A1", "Active"},
		{},
		{"Acme", "2024-04-15", "350-0100", "-100", "Debook", "O2", "A1", "Active"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	events, err := ReadEvents("", path, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "O2", events[1].OpportunityID)
	assert.Equal(t, EventTermination, events[1].Type)
	assert.Equal(t, "-100", events[1].Amount.Decimal.String())
}

func TestParseOpportunitiesXLSX_NoHeader(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue(f.GetSheetName(0), "A1", "nothing here"))
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ReadEvents("", path, nil)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestParseSimpleJSON(t *testing.T) {
	path := writeFile(t, "data.json", `{
  "opportunities": [
    {"account_name": "Acme", "account_id": "A1", "close_date": "2024-01-15",
     "product_code": "350-0100", "amount": 100.25, "opportunity_type": "Add Products",
     "opportunity_id": "O1", "account_status": "Active", "account_number": "F9-1"},
    {"Account Name": "Acme", "Account ID": "A1", "Close Date": "2024-02-15",
     "Product Code": "350-0100", "Amount": null, "Opportunity Type": "Reduction",
     "Opportunity ID": "O2", "Account Status": "Active"}
  ]
}`)

	events, err := ReadEvents("", path, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "100.25", events[0].Amount.Decimal.String())
	assert.Equal(t, "F9-1", events[0].AccountNumber)
	assert.False(t, events[1].Amount.Valid)
	assert.Equal(t, EventReduction, events[1].Type)
}

func TestParseSimpleJSON_MissingKeys(t *testing.T) {
	path := writeFile(t, "data.json", `{"opportunities": [
    {"account_name": "Acme", "close_date": "2024-01-15", "amount": 1}
  ]}`)

	_, err := ReadEvents("", path, nil)
	assert.True(t, errors.Is(err, ErrSchema))
}
