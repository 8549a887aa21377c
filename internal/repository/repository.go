package repository

import (
	"errors"

	"github.com/nouranfeh/wabills/internal/models"
)

// ErrMissingColumns is returned when an input file lacks a column the run
// cannot proceed without. This is a file-level failure, not a row status.
var ErrMissingColumns = errors.New("missing required columns")

type CustomerSource interface {
	Load(path string) ([]models.CustomerRecord, error)
}

type PriceSource interface {
	Load(path string) ([]models.SubscriptionPrice, error)
}

type ReadingSource interface {
	Load(path string) ([]models.MeterReading, error)
}

// ResultStore persists a reconciliation run next to the readings input and
// can re-load a previously written file for dispatch.
type ResultStore interface {
	Write(dir string, rows []models.BillingRecord) (string, error)
	Load(path string) ([]models.BillingRecord, error)
}

type Repository struct {
	Customers CustomerSource
	Prices    PriceSource
	Readings  ReadingSource
	Results   ResultStore
}

func NewRepository() *Repository {
	return &Repository{
		Customers: NewCustomerCSV(),
		Prices:    NewPriceCSV(),
		Readings:  NewReadingCSV(),
		Results:   NewResultCSV(),
	}
}
