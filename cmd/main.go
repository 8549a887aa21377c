package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/handlers"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/repository"
	"github.com/nouranfeh/wabills/internal/server"
	"github.com/nouranfeh/wabills/internal/service"

	"github.com/spf13/viper"
)

func main() {
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log_level"))

	cfg, err := buildServiceConfig()
	if err != nil {
		log.Fatalw("invalid configuration", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository()
	bus := events.NewBus()
	services := service.NewService(repos, bus, log, cfg)
	apiHandler := handlers.NewHandler(services, bus, log)

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")

	viper.SetDefault("port", "8080")
	viper.SetDefault("log_level", logger.InfoLevel)
	viper.SetDefault("relay.dir", "wa_local_api")
	viper.SetDefault("relay.entry", "wa_http_server.js")
	viper.SetDefault("relay.base_url", "http://localhost:3000")
	viper.SetDefault("relay.cache_strategy", "none")
	viper.SetDefault("billing.company_name", "نور أنفه")
	viper.SetDefault("billing.company_phone", "81 215 712")
	viper.SetDefault("billing.payment_deadline_day", 7)
	viper.SetDefault("billing.currency_note", "يمكن الدفع بالليرة اللبنانية حسب سعر الصرف في يوم الدفع.")

	return viper.ReadInConfig()
}

// buildServiceConfig maps the flat viper keys onto the service config,
// hashing the operator password when no precomputed hash is present.
func buildServiceConfig() (service.Config, error) {
	passwordHash := viper.GetString("auth.password_hash")
	if passwordHash == "" {
		hash, err := service.HashPassword(viper.GetString("auth.password"))
		if err != nil {
			return service.Config{}, err
		}
		passwordHash = hash
	}

	return service.Config{
		Billing: service.BillingConfig{
			CompanyName:        viper.GetString("billing.company_name"),
			CompanyPhone:       viper.GetString("billing.company_phone"),
			PaymentDeadlineDay: viper.GetInt("billing.payment_deadline_day"),
			CurrencyNote:       viper.GetString("billing.currency_note"),
		},
		Relay: service.RelayConfig{
			Dir:           viper.GetString("relay.dir"),
			Entry:         viper.GetString("relay.entry"),
			BaseURL:       viper.GetString("relay.base_url"),
			BrowserPath:   viper.GetString("relay.browser_path"),
			CacheStrategy: viper.GetString("relay.cache_strategy"),
			PollInterval:  viper.GetDuration("relay.poll_interval"),
			StartupDelay:  viper.GetDuration("relay.startup_delay"),
			GraceTimeout:  viper.GetDuration("relay.grace_timeout"),
			HTTPTimeout:   viper.GetDuration("relay.http_timeout"),
		},
		Auth: service.AuthConfig{
			Username:     viper.GetString("auth.username"),
			PasswordHash: passwordHash,
			SigningKey:   viper.GetString("auth.signing_key"),
			TokenTTL:     viper.GetDuration("auth.token_ttl"),
		},
	}, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals, then drains HTTP, stops
// the relay session and cleans up any stray child processes.
func waitForShutdown(srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	if services.IsRunning() {
		if err := services.Stop(); err != nil {
			log.Errorw("relay stop failed", "err", err)
		}
	}
	services.CleanupStray()
}
