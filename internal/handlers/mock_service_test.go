package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/service"
)

type fakeReconciler struct {
	summary   models.ReconcileSummary
	err       error
	lastOut   string
	gotParams service.ReconcileParams
}

func (f *fakeReconciler) Run(p service.ReconcileParams) (models.ReconcileSummary, error) {
	f.gotParams = p
	return f.summary, f.err
}

func (f *fakeReconciler) LastOutputPath() string { return f.lastOut }

type fakeRelay struct {
	running    bool
	startErr   error
	stopErr    error
	status     models.RelayStatus
	png        []byte
	health     json.RawMessage
	healthErr  error
	gotVisible bool
}

func (f *fakeRelay) Start(visible bool) error {
	f.gotVisible = visible
	if f.startErr == nil {
		f.running = true
	}
	return f.startErr
}

func (f *fakeRelay) Stop() error {
	f.running = false
	return f.stopErr
}

func (f *fakeRelay) IsRunning() bool            { return f.running }
func (f *fakeRelay) Status() models.RelayStatus { return f.status }
func (f *fakeRelay) PairingPNG() []byte         { return f.png }
func (f *fakeRelay) CleanupStray()              {}

func (f *fakeRelay) Health(context.Context) (json.RawMessage, error) {
	return f.health, f.healthErr
}

type fakeDispatcher struct {
	submitted int
	err       error
	gotPath   string
}

func (f *fakeDispatcher) Dispatch(path string) (int, error) {
	f.gotPath = path
	return f.submitted, f.err
}

// fakeAuth accepts exactly one credential pair and one token.
type fakeAuth struct {
	username string
	password string
	token    string
	genErr   error
	parseErr error
}

func (f *fakeAuth) GenerateToken(username, password string) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	if username != f.username || password != f.password {
		return "", service.ErrInvalidCredentials
	}
	return f.token, nil
}

func (f *fakeAuth) ParseToken(accessToken string) (string, error) {
	if f.parseErr != nil {
		return "", f.parseErr
	}
	if accessToken != f.token {
		return "", service.ErrInvalidToken
	}
	return f.username, nil
}

type fakes struct {
	reconciler *fakeReconciler
	relay      *fakeRelay
	dispatcher *fakeDispatcher
	auth       *fakeAuth
}

func newFakes() *fakes {
	return &fakes{
		reconciler: &fakeReconciler{},
		relay:      &fakeRelay{},
		dispatcher: &fakeDispatcher{},
		auth:       &fakeAuth{username: "operator", password: "secret", token: "good-token"},
	}
}

func newTestRouter(f *fakes) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := &service.Service{
		Reconciler:    f.reconciler,
		Relay:         f.relay,
		Dispatcher:    f.dispatcher,
		Authorization: f.auth,
	}
	h := NewHandler(svc, events.NewBus(), logger.Get(logger.ErrorLevel))
	return h.InitRoutes()
}
