package repository

import (
	"fmt"

	"github.com/nouranfeh/wabills/internal/models"
)

// CustomerCSV loads the customers master file.
type CustomerCSV struct{}

func NewCustomerCSV() *CustomerCSV { return &CustomerCSV{} }

func (c *CustomerCSV) Load(path string) ([]models.CustomerRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !t.has(colCustomerID) {
		return nil, fmt.Errorf("%w: customers file must contain %s", ErrMissingColumns, colCustomerID)
	}
	out := make([]models.CustomerRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.CustomerRecord{
			ID:               t.cell(row, colCustomerID),
			Name:             t.cell(row, colName),
			Phone:            t.cell(row, colPhone),
			SubscriptionType: t.cell(row, colSubType),
		})
	}
	return out, nil
}

// PriceCSV loads the subscription price list. Both columns are required by
// fixed name; their absence fails the whole run.
type PriceCSV struct{}

func NewPriceCSV() *PriceCSV { return &PriceCSV{} }

func (p *PriceCSV) Load(path string) ([]models.SubscriptionPrice, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !t.has(colSubType) || !t.has(colSubFee) {
		return nil, fmt.Errorf("%w: prices file must contain %s, %s", ErrMissingColumns, colSubType, colSubFee)
	}
	out := make([]models.SubscriptionPrice, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.SubscriptionPrice{
			SubscriptionType: t.cell(row, colSubType),
			Fee:              parseDecimal(t.cell(row, colSubFee)),
		})
	}
	return out, nil
}

// ReadingCSV loads the monthly meter readings file.
type ReadingCSV struct{}

func NewReadingCSV() *ReadingCSV { return &ReadingCSV{} }

func (r *ReadingCSV) Load(path string) ([]models.MeterReading, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !t.has(colCustomerID) {
		return nil, fmt.Errorf("%w: readings file must contain %s", ErrMissingColumns, colCustomerID)
	}
	out := make([]models.MeterReading, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.MeterReading{
			CustomerID: t.cell(row, colCustomerID),
			Prev:       parseDecimal(t.cell(row, colPrev)),
			Curr:       parseDecimal(t.cell(row, colCurr)),
		})
	}
	return out, nil
}
