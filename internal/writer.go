package internal

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// OutputDateLayout is how record dates are written.
const OutputDateLayout = "01/02/2006"

// OutputFilePrefix starts every generated ledger file name.
const OutputFilePrefix = "Quick_Assist_Ledger_Output_"

// ledgerRow is one written record. Field names are the sanitized export
// column names plus Note.
type ledgerRow struct {
	AccountName     string `csv:"Account_Name"`
	AccountNumber   string `csv:"Five9_Account_Number"`
	Date            string `csv:"Date"`
	ProductCode     string `csv:"Product_Code"`
	Amount          string `csv:"Amount"`
	OpportunityType string `csv:"Opportunity_Type"`
	OpportunityID   string `csv:"Opportunity_ID"`
	AccountID       string `csv:"Account_ID"`
	AccountStatus   string `csv:"Account_Status"`
	Note            string `csv:"Note"`
}

// ledgerColumns is the column order of every writer.
var ledgerColumns = []string{
	"Account_Name", "Five9_Account_Number", "Date", "Product_Code", "Amount",
	"Opportunity_Type", "Opportunity_ID", "Account_ID", "Account_Status", "Note",
}

func toLedgerRow(rec Record) ledgerRow {
	row := ledgerRow{
		AccountName:     rec.Identity,
		AccountNumber:   rec.AccountNumber,
		ProductCode:     rec.ProductCode,
		OpportunityType: rec.OpportunityType,
		OpportunityID:   rec.OpportunityID,
		AccountID:       rec.AccountID,
		AccountStatus:   rec.RawStatus,
		Note:            rec.Note.String(),
	}
	if row.AccountName == "" {
		row.AccountName = rec.AccountName
	}
	if rec.DateValid {
		row.Date = rec.Date.Format(OutputDateLayout)
	}
	if rec.Amount.Valid {
		row.Amount = rec.Amount.Decimal.StringFixed(2)
	}
	return row
}

func (r ledgerRow) cells() []any {
	return []any{
		r.AccountName, r.AccountNumber, r.Date, r.ProductCode, r.Amount,
		r.OpportunityType, r.OpportunityID, r.AccountID, r.AccountStatus, r.Note,
	}
}

// WriteRecordsCSV writes the ledger as CSV with a header line.
func WriteRecordsCSV(w io.Writer, records []Record) error {
	rows := make([]*ledgerRow, 0, len(records))
	for _, rec := range records {
		row := toLedgerRow(rec)
		rows = append(rows, &row)
	}
	if len(rows) == 0 {
		// gocsv writes nothing for an empty slice
		_, err := io.WriteString(w, strings.Join(ledgerColumns, ",")+"\n")
		return err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return errors.Wrap(err, "writing csv")
	}
	return nil
}

// WriteRecordsXLSX writes the ledger to an Excel workbook at path.
func WriteRecordsXLSX(path string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ledger"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := make([]any, len(ledgerColumns))
	for i, col := range ledgerColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "addressing row")
		}
		row := toLedgerRow(rec).cells()
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "saving workbook")
	}
	return nil
}

// OutputFileName is the name of the ledger written at now, e.g.
// Quick_Assist_Ledger_Output_20250301_142500.csv
func OutputFileName(now time.Time, ext string) string {
	return OutputFilePrefix + now.Format("20060102_150405") + "." + strings.TrimPrefix(ext, ".")
}

// WriteRecordsFile writes the ledger to dir in the given format ("csv" or
// "xlsx") and returns the written path. An existing file of the same name
// is never overwritten.
func WriteRecordsFile(dir, format string, now time.Time, records []Record) (string, error) {
	format = strings.ToLower(format)
	path := availablePath(filepath.Join(dir, OutputFileName(now, format)))
	switch format {
	case "csv":
		return path, writeCSVFile(path, records)
	case "xlsx":
		return path, WriteRecordsXLSX(path, records)
	default:
		return "", errors.Newf("unknown output format %q (available: csv, xlsx)", format)
	}
}

func writeCSVFile(path string, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing output file")
		}
	}()
	return WriteRecordsCSV(f, records)
}
