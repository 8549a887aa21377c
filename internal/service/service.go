package service

import (
	"context"
	"encoding/json"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/repository"
)

// Reconciler runs the billing pipeline: join the three inputs, classify
// every reading, render messages and persist the run output.
type Reconciler interface {
	Run(p ReconcileParams) (models.ReconcileSummary, error)
	LastOutputPath() string
}

// Relay owns the lifecycle of the local WhatsApp API process. It is the
// only component allowed to spawn, signal or wait on that process.
type Relay interface {
	Start(visible bool) error
	Stop() error
	IsRunning() bool
	Status() models.RelayStatus
	PairingPNG() []byte
	Health(ctx context.Context) (json.RawMessage, error)
	CleanupStray()
}

// Dispatcher submits the ready subset of a run output as one bulk request.
type Dispatcher interface {
	Dispatch(path string) (int, error)
}

type Authorization interface {
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (string, error)
}

// Config carries the per-concern settings loaded from configs/config.yml.
type Config struct {
	Billing BillingConfig
	Relay   RelayConfig
	Auth    AuthConfig
}

// Service aggregates all sub-services behind their interfaces.
type Service struct {
	Reconciler
	Relay
	Dispatcher
	Authorization
}

// NewService wires the repository layer and event bus into concrete
// services.
func NewService(repos *repository.Repository, bus *events.Bus, log *logger.Logger, cfg Config) *Service {
	relay := NewRelayService(bus, log, cfg.Relay)
	return &Service{
		Reconciler:    NewReconcileService(repos, bus, log, cfg.Billing),
		Relay:         relay,
		Dispatcher:    NewDispatchService(repos.Results, relay, bus, log),
		Authorization: NewAuthService(cfg.Auth),
	}
}
