package internal

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/gocarina/gocsv"
)

// csvOpportunity is one row of the CSV export. Headers are canonicalized
// before decoding, so sanitized spellings decode into the same fields.
type csvOpportunity struct {
	AccountName     string `csv:"Account Name"`
	AccountNumber   string `csv:"Five9 Account Number"`
	CloseDate       string `csv:"Close Date"`
	ProductCode     string `csv:"Product Code"`
	Amount          string `csv:"Amount"`
	OpportunityType string `csv:"Opportunity Type"`
	OpportunityID   string `csv:"Opportunity ID"`
	AccountID       string `csv:"Account ID"`
	AccountStatus   string `csv:"Account Status"`
}

func (o csvOpportunity) raw() RawRecord {
	return RawRecord{
		ColAccountName:     o.AccountName,
		ColAccountNumber:   o.AccountNumber,
		ColCloseDate:       o.CloseDate,
		ColProductCode:     o.ProductCode,
		ColAmount:          o.Amount,
		ColOpportunityType: o.OpportunityType,
		ColOpportunityID:   o.OpportunityID,
		ColAccountID:       o.AccountID,
		ColAccountStatus:   o.AccountStatus,
	}
}

// canonicalHeaderReader rewrites the first CSV line to canonical column names.
type canonicalHeaderReader struct {
	gocsv.CSVReader
	header []string
}

func (r *canonicalHeaderReader) Read() ([]string, error) {
	if r.header != nil {
		h := r.header
		r.header = nil
		return h, nil
	}
	return r.CSVReader.Read()
}

func (r *canonicalHeaderReader) ReadAll() ([][]string, error) {
	rest, err := r.CSVReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if r.header != nil {
		rest = append([][]string{r.header}, rest...)
		r.header = nil
	}
	return rest, nil
}

// ParseOpportunitiesCSV reads a comma-separated opportunity export.
func ParseOpportunitiesCSV(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	return parseOpportunitiesCSV(path, data)
}

func parseOpportunitiesCSV(source string, data []byte) ([]RawRecord, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := gocsv.DefaultCSVReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err == io.EOF {
		return nil, newSchemaError(source, RequiredColumns)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if err := ValidateHeader(source, header); err != nil {
		return nil, err
	}

	canonical := make([]string, len(header))
	for i, h := range header {
		canonical[i] = CanonicalColumn(h)
	}

	var rows []*csvOpportunity
	err = gocsv.UnmarshalCSV(&canonicalHeaderReader{CSVReader: reader, header: canonical}, &rows)
	if err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, errors.Wrap(err, "decoding rows")
	}

	records := make([]RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.raw())
	}
	return records, nil
}

func init() {
	RegisterParser("opportunities-csv", ParserFunc(ParseOpportunitiesCSV), ".csv")
}
