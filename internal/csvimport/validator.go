package csvimport

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
)

// Column schema for hospital bulk imports. The required set must be present
// in the header; anything outside the allowed set is rejected.
var (
	RequiredColumns = []string{"name", "address"}
	AllowedColumns  = []string{"name", "address", "phone"}
)

// MaxRows is the upper bound on data rows per upload.
const MaxRows = 20

// Row is one parsed data row. Index is 1-based and excludes the header.
type Row struct {
	Index   int
	Name    string
	Address string
	Phone   string
}

// DisplayKey is the identifier used in the batch outcome ledger: the row name
// when present, otherwise a positional fallback.
func (r Row) DisplayKey() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("row_%d", r.Index)
}

// Validate parses CSV text against the hospital column schema and returns the
// parsed rows together with every validation finding. It never fails hard on
// malformed input; a parse failure yields the single "Invalid CSV format"
// error. A row that is missing name or address is still returned so callers
// count it against the row cap and the worker re-validates it per row.
func Validate(csvText string) ([]Row, []string) {
	records, err := readRecords(csvText)
	if err != nil {
		return nil, []string{"Invalid CSV format"}
	}
	if len(records) == 0 {
		return nil, []string{"CSV contains no valid data rows"}
	}

	header := records[0]
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var errs []string

	if missing := missingColumns(columns); len(missing) > 0 {
		errs = append(errs, "Missing required columns: "+strings.Join(missing, ", "))
	}
	if extra := extraColumns(columns); len(extra) > 0 {
		errs = append(errs, "Unexpected columns found: "+strings.Join(extra, ", "))
	}

	var rows []Row
	for i, record := range records[1:] {
		index := i + 1

		if isEmptyRecord(record) {
			errs = append(errs, fmt.Sprintf("Row %d: Empty row", index))
			continue
		}

		row := Row{
			Index:   index,
			Name:    fieldValue(record, columns, "name"),
			Address: fieldValue(record, columns, "address"),
			Phone:   fieldValue(record, columns, "phone"),
		}

		if row.Name == "" {
			errs = append(errs, fmt.Sprintf("Row %d: 'name' is required", index))
		}
		if row.Address == "" {
			errs = append(errs, fmt.Sprintf("Row %d: 'address' is required", index))
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		errs = append(errs, "CSV contains no valid data rows")
	}

	return rows, errs
}

func readRecords(csvText string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	// Rows shorter or longer than the header are tolerated here; the schema
	// check catches structural problems with a clearer message.
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func missingColumns(columns map[string]int) []string {
	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	sort.Strings(missing)
	return missing
}

func extraColumns(columns map[string]int) []string {
	allowed := make(map[string]struct{}, len(AllowedColumns))
	for _, name := range AllowedColumns {
		allowed[name] = struct{}{}
	}

	var extra []string
	for name := range columns {
		if _, ok := allowed[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

func isEmptyRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func fieldValue(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
