package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nouranfeh/wabills/internal/models"
	"github.com/shopspring/decimal"
)

// OutputFileName is the fixed name of the run output, written next to the
// readings input.
const OutputFileName = "messages_preview.csv"

// Output column order is part of the file contract; downstream tooling
// reads it positionally.
var outputHeader = []string{
	colCustomerID, "DisplayName", colPhone, colSubType,
	colPrev, colCurr, "UsageKWh", "PricePerKWh",
	colSubFee, "MonthlyFeeUSD",
	"EnergyUSD", "TotalUSD", "Status", "MessageArabic",
}

// ResultCSV writes and re-loads messages_preview.csv. Files carry a UTF-8
// BOM so Arabic text survives a round trip through spreadsheet tools.
type ResultCSV struct{}

func NewResultCSV() *ResultCSV { return &ResultCSV{} }

func (s *ResultCSV) Write(dir string, rows []models.BillingRecord) (string, error) {
	path := filepath.Join(dir, OutputFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(outputHeader); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	for _, r := range rows {
		rec := []string{
			r.CustomerID, r.DisplayName, r.Phone, r.SubscriptionType,
			formatDecimal(r.Prev), formatDecimal(r.Curr), formatDecimal(r.Usage), r.PricePerKWh.String(),
			formatDecimal(r.SubscriptionFee), formatDecimal(r.MonthlyFee),
			formatDecimal(r.EnergyCost), formatDecimal(r.Total), r.Status, r.Message,
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (s *ResultCSV) Load(path string) ([]models.BillingRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{colPhone, "Status", "MessageArabic"} {
		if !t.has(col) {
			return nil, fmt.Errorf("%w: %s must contain %s", ErrMissingColumns, filepath.Base(path), col)
		}
	}
	out := make([]models.BillingRecord, 0, len(t.rows))
	for _, row := range t.rows {
		price := decimal.Decimal{}
		if p := parseDecimal(t.cell(row, "PricePerKWh")); p.Valid {
			price = p.Decimal
		}
		out = append(out, models.BillingRecord{
			CustomerID:       t.cell(row, colCustomerID),
			DisplayName:      t.cell(row, "DisplayName"),
			Phone:            t.cell(row, colPhone),
			SubscriptionType: t.cell(row, colSubType),
			Prev:             parseDecimal(t.cell(row, colPrev)),
			Curr:             parseDecimal(t.cell(row, colCurr)),
			Usage:            parseDecimal(t.cell(row, "UsageKWh")),
			PricePerKWh:      price,
			SubscriptionFee:  parseDecimal(t.cell(row, colSubFee)),
			MonthlyFee:       parseDecimal(t.cell(row, "MonthlyFeeUSD")),
			EnergyCost:       parseDecimal(t.cell(row, "EnergyUSD")),
			Total:            parseDecimal(t.cell(row, "TotalUSD")),
			Status:           t.cell(row, "Status"),
			Message:          t.cell(row, "MessageArabic"),
		})
	}
	return out, nil
}
