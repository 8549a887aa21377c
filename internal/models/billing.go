package models

import "github.com/shopspring/decimal"

// Per-record status codes written to the Status column. An empty status
// means the record is ready to send.
const (
	StatusMissingContact   = "MISSING_CONTACT"
	StatusMissingReading   = "MISSING_READING"
	StatusReadingDecreased = "ERROR_READING_DECREASED"
	StatusMissingSubsFee   = "MISSING_SUBS_FEE"
)

// CustomerRecord is one row of customers_master.csv. It is the source of
// truth for contact data and never mutated during a run.
type CustomerRecord struct {
	ID               string `json:"customer_id"`
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	SubscriptionType string `json:"subscription_type"`
}

// SubscriptionPrice maps a subscription type to its monthly fee in USD.
// The fee may be absent or non-numeric in the source file.
type SubscriptionPrice struct {
	SubscriptionType string              `json:"subscription_type"`
	Fee              decimal.NullDecimal `json:"fee"`
}

// MeterReading is one row of the monthly readings file. Prev/Curr are
// missing (not zero) when the cell is empty or non-numeric.
type MeterReading struct {
	CustomerID string              `json:"customer_id"`
	Prev       decimal.NullDecimal `json:"prev_kwh"`
	Curr       decimal.NullDecimal `json:"curr_kwh"`
}

// BillingRecord is the reconciled row: one per input reading, in input
// order. Message is non-empty only when Status is empty.
type BillingRecord struct {
	CustomerID       string              `json:"customer_id"`
	DisplayName      string              `json:"display_name"`
	Phone            string              `json:"phone"`
	SubscriptionType string              `json:"subscription_type"`
	Prev             decimal.NullDecimal `json:"prev_kwh"`
	Curr             decimal.NullDecimal `json:"curr_kwh"`
	Usage            decimal.NullDecimal `json:"usage_kwh"`
	PricePerKWh      decimal.Decimal     `json:"price_per_kwh"`
	SubscriptionFee  decimal.NullDecimal `json:"subscription_fee_usd"`
	MonthlyFee       decimal.NullDecimal `json:"monthly_fee_usd"`
	EnergyCost       decimal.NullDecimal `json:"energy_usd"`
	Total            decimal.NullDecimal `json:"total_usd"`
	Status           string              `json:"status"`
	Message          string              `json:"message"`
}

// Ready reports whether the record passed every classification rule.
func (r BillingRecord) Ready() bool { return r.Status == "" }

// ReconcileSummary is returned by a reconciliation run.
type ReconcileSummary struct {
	RunID      string `json:"run_id"`
	Total      int    `json:"total"`
	Ready      int    `json:"ready"`
	Errors     int    `json:"errors"`
	OutputPath string `json:"output_path"`
}
