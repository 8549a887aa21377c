package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Column names fixed by the file contract.
const (
	colCustomerID = "CustomerID"
	colName       = "NameArabic"
	colPhone      = "Phone"
	colSubType    = "SubscriptionType"
	colSubFee     = "SubscriptionFeeUSD"
	colPrev       = "PrevKWh"
	colCurr       = "CurrKWh"
)

const utf8BOM = "\xef\xbb\xbf"

// table is a header-indexed CSV file held in memory.
type table struct {
	index map[string]int
	rows  [][]string
}

// readTable loads a CSV file. Header cells are trimmed before indexing so
// files with stray spaces around column names still match. A leading UTF-8
// BOM is stripped.
func readTable(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimPrefix(string(data), utf8BOM)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &table{index: map[string]int{}}, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		index[strings.TrimSpace(h)] = i
	}
	return &table{index: index, rows: records[1:]}, nil
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// cell returns the trimmed value of col in row, or "" when the column is
// absent or the row is short.
func (t *table) cell(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseDecimal treats empty and non-numeric cells as missing, never zero.
func parseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// formatDecimal renders a nullable decimal for CSV output; missing values
// stay blank.
func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
