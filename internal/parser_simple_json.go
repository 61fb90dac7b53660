package internal

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/cockroachdb/errors"
)

// SimpleJSONFormat is a minimal JSON format for importing opportunities.
// Keys may use the export column names or their snake_case form.
// Example:
//
//	{
//	  "opportunities": [
//	    {"account_name": "Acme", "account_id": "A-1", "close_date": "2024-01-15",
//	     "product_code": "350-0100", "amount": 100, "opportunity_type": "Add Products",
//	     "opportunity_id": "O-1", "account_status": "Active"}
//	  ]
//	}
type SimpleJSONFormat struct {
	Opportunities []map[string]any `json:"opportunities"`
}

// ParseSimpleJSON parses a JSON file in the simple JSON format
func ParseSimpleJSON(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}
	return parseSimpleJSON(path, data)
}

func parseSimpleJSON(source string, data []byte) ([]RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var jsonData SimpleJSONFormat
	if err := dec.Decode(&jsonData); err != nil {
		return nil, errors.Wrap(err, "parsing JSON")
	}

	if len(jsonData.Opportunities) == 0 {
		return nil, nil
	}

	// Any required key missing from any object is missing from the batch
	seen := make(map[string]int)
	for _, obj := range jsonData.Opportunities {
		for key := range obj {
			seen[CanonicalColumn(key)]++
		}
	}
	var header []string
	for col, n := range seen {
		if n == len(jsonData.Opportunities) {
			header = append(header, col)
		}
	}
	sort.Strings(header)
	if err := ValidateHeader(source, header); err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(jsonData.Opportunities))
	for _, obj := range jsonData.Opportunities {
		row := make(RawRecord, len(obj))
		for key, value := range obj {
			row[CanonicalColumn(key)] = jsonString(value)
		}
		records = append(records, row)
	}
	return records, nil
}

func jsonString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func init() {
	RegisterParser("simple-json", ParserFunc(ParseSimpleJSON), ".json")
}
