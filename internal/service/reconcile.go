package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/repository"
)

// ErrInvalidPrice rejects a missing, non-numeric or negative unit price
// before any file is touched.
var ErrInvalidPrice = errors.New("price per kWh must be a non-negative number")

// ErrReconcilePanic wraps a panic recovered from the pipeline so callers
// can tell an internal fault from an input problem.
var ErrReconcilePanic = errors.New("reconciliation failed unexpectedly")

// ReconcileParams is one reconciliation request.
type ReconcileParams struct {
	CustomersPath string
	PricesPath    string
	ReadingsPath  string
	PricePerKWh   string
	Month         string // "01".."12", used only for message rendering
}

type ReconcileService struct {
	repos *repository.Repository
	bus   *events.Bus
	log   *logger.Logger
	cfg   BillingConfig

	mu      sync.Mutex
	lastOut string
}

func NewReconcileService(repos *repository.Repository, bus *events.Bus, log *logger.Logger, cfg BillingConfig) *ReconcileService {
	return &ReconcileService{repos: repos, bus: bus, log: log, cfg: cfg}
}

// LastOutputPath returns where the most recent run was written, or "".
func (s *ReconcileService) LastOutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOut
}

// Run executes one reconciliation: validate inputs, load the three tables,
// classify and compute every record, persist the output table next to the
// readings file. A panic anywhere in the pipeline is reported as an error
// with its stack instead of crashing the process.
func (s *ReconcileService) Run(p ReconcileParams) (sum models.ReconcileSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrReconcilePanic, r, debug.Stack())
		}
	}()

	price, perr := decimal.NewFromString(p.PricePerKWh)
	if perr != nil || price.IsNegative() {
		return models.ReconcileSummary{}, ErrInvalidPrice
	}

	for name, path := range map[string]string{
		"customers": p.CustomersPath,
		"prices":    p.PricesPath,
		"readings":  p.ReadingsPath,
	} {
		if path == "" {
			return models.ReconcileSummary{}, fmt.Errorf("%s file not selected", name)
		}
		if _, serr := os.Stat(path); serr != nil {
			return models.ReconcileSummary{}, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	s.log.Infow("loading input tables",
		"customers", p.CustomersPath, "prices", p.PricesPath, "readings", p.ReadingsPath)

	customers, err := s.repos.Customers.Load(p.CustomersPath)
	if err != nil {
		return models.ReconcileSummary{}, err
	}
	prices, err := s.repos.Prices.Load(p.PricesPath)
	if err != nil {
		return models.ReconcileSummary{}, err
	}
	readings, err := s.repos.Readings.Load(p.ReadingsPath)
	if err != nil {
		return models.ReconcileSummary{}, err
	}

	rows := Reconcile(customers, prices, readings, price, MonthName(p.Month), s.cfg)

	outPath, err := s.repos.Results.Write(filepath.Dir(p.ReadingsPath), rows)
	if err != nil {
		return models.ReconcileSummary{}, err
	}
	s.mu.Lock()
	s.lastOut = outPath
	s.mu.Unlock()

	sum = models.ReconcileSummary{
		RunID:      uuid.NewString(),
		Total:      len(rows),
		OutputPath: outPath,
	}
	for _, r := range rows {
		if r.Ready() {
			sum.Ready++
		} else {
			sum.Errors++
		}
	}
	s.log.Infow("reconciliation complete",
		"run_id", sum.RunID, "total", sum.Total, "ready", sum.Ready, "errors", sum.Errors, "out", outPath)
	s.bus.Publish(events.TypeReconcileSummary, sum)
	return sum, nil
}

// Reconcile joins readings with customers and subscription prices and
// classifies every reading. Pure: no I/O, input order preserved, one output
// row per reading.
func Reconcile(
	customers []models.CustomerRecord,
	prices []models.SubscriptionPrice,
	readings []models.MeterReading,
	pricePerKWh decimal.Decimal,
	monthName string,
	cfg BillingConfig,
) []models.BillingRecord {
	customerByID := make(map[string]models.CustomerRecord, len(customers))
	for _, c := range customers {
		if _, ok := customerByID[c.ID]; !ok {
			customerByID[c.ID] = c
		}
	}
	feeByType := make(map[string]decimal.NullDecimal, len(prices))
	for _, p := range prices {
		if _, ok := feeByType[p.SubscriptionType]; !ok {
			feeByType[p.SubscriptionType] = p.Fee
		}
	}

	out := make([]models.BillingRecord, 0, len(readings))
	for _, rd := range readings {
		cust := customerByID[rd.CustomerID]
		fee := feeByType[cust.SubscriptionType]

		r := models.BillingRecord{
			CustomerID:       rd.CustomerID,
			DisplayName:      cust.Name,
			Phone:            cust.Phone,
			SubscriptionType: cust.SubscriptionType,
			Prev:             rd.Prev,
			Curr:             rd.Curr,
			PricePerKWh:      pricePerKWh,
			SubscriptionFee:  fee,
		}

		// Usage and the rounded fee are derived for every row; only the
		// money totals are gated on a clean status.
		if r.Prev.Valid && r.Curr.Valid {
			r.Usage = decimal.NullDecimal{
				Decimal: r.Curr.Decimal.Sub(r.Prev.Decimal),
				Valid:   true,
			}
		}
		if fee.Valid {
			r.MonthlyFee = decimal.NullDecimal{Decimal: fee.Decimal.Round(2), Valid: true}
		} else {
			r.MonthlyFee = decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
		}

		r.Status = classify(r)
		if r.Ready() {
			energy := r.Usage.Decimal.Mul(pricePerKWh).Round(2)
			r.EnergyCost = decimal.NullDecimal{Decimal: energy, Valid: true}
			r.Total = decimal.NullDecimal{Decimal: energy.Add(r.MonthlyFee.Decimal).Round(2), Valid: true}
			r.Message = renderMessage(cfg, r, monthName)
		}
		out = append(out, r)
	}
	return out
}

// classify applies the status rules in their fixed precedence; the first
// matching rule wins and exactly one code is assigned. The order is
// load-bearing for output compatibility.
func classify(r models.BillingRecord) string {
	switch {
	case r.DisplayName == "" || r.Phone == "":
		return models.StatusMissingContact
	case !r.Prev.Valid || !r.Curr.Valid:
		return models.StatusMissingReading
	case r.Usage.Valid && r.Usage.Decimal.IsNegative():
		return models.StatusReadingDecreased
	case !r.SubscriptionFee.Valid || r.SubscriptionFee.Decimal.IsZero():
		return models.StatusMissingSubsFee
	default:
		return ""
	}
}
