package internal

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// ParseOpportunitiesXLSX reads the first sheet of an Excel opportunity export.
// The header is the first row naming Account Name; rows above it (report
// titles, filters) are skipped.
func ParseOpportunitiesXLSX(path string) ([]RawRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading sheet")
	}

	headerRow := -1
	for i, row := range rows {
		for _, cell := range row {
			if CanonicalColumn(cell) == ColAccountName {
				headerRow = i
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		return nil, newSchemaError(path, RequiredColumns)
	}

	header := rows[headerRow]
	if err := ValidateHeader(path, header); err != nil {
		return nil, err
	}

	var records []RawRecord
	for _, row := range rows[headerRow+1:] {
		// Skip blank rows
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		records = append(records, rowFromCells(header, row))
	}
	return records, nil
}

func init() {
	RegisterParser("opportunities-xlsx", ParserFunc(ParseOpportunitiesXLSX), ".xlsx")
}
