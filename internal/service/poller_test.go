package service

import (
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
)

// relayStub is a minimal HTTP double for the relay's /status and /qr
// contract.
type relayStub struct {
	mu     sync.Mutex
	status string // raw body returned by /status
	qr     string // raw body returned by /qr
}

func (r *relayStub) set(status, qr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status, r.qr = status, qr
}

func (r *relayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, _ = w.Write([]byte(r.status))
	})
	mux.HandleFunc("/qr", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, _ = w.Write([]byte(r.qr))
	})
	return mux
}

func newPollerUnderTest(t *testing.T, baseURL string) *RelayService {
	t.Helper()
	return NewRelayService(events.NewBus(), logger.Get(logger.ErrorLevel), RelayConfig{
		Dir:     t.TempDir(),
		Entry:   "wa_http_server.js",
		BaseURL: baseURL,
	})
}

func TestPollOnce_UnparseableResponseStaysBooting(t *testing.T) {
	stub := &relayStub{status: "starting up, not json"}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := newPollerUnderTest(t, srv.URL)
	s.pollOnce()

	if st := s.Status(); st.PairingState != models.PairingBooting {
		t.Fatalf("expected booting, got %s", st.PairingState)
	}
}

func TestPollOnce_NeedQRSurfacesPairingImage(t *testing.T) {
	stub := &relayStub{
		status: `{"needQr":true}`,
		qr:     `{"ok":true,"qr":"1@pairing-payload"}`,
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := newPollerUnderTest(t, srv.URL)
	s.pollOnce()

	st := s.Status()
	if st.PairingState != models.PairingAwaiting {
		t.Fatalf("expected awaiting_pairing, got %s", st.PairingState)
	}
	if !st.HasQR || s.PairingPNG() == nil {
		t.Fatalf("expected a surfaced pairing image")
	}
}

func TestPollOnce_QRFetchFailureClearsImageKeepsAwaiting(t *testing.T) {
	stub := &relayStub{
		status: `{"needQr":true}`,
		qr:     `{"ok":true,"qr":"1@pairing-payload"}`,
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := newPollerUnderTest(t, srv.URL)
	s.pollOnce()
	if s.PairingPNG() == nil {
		t.Fatalf("expected image after first poll")
	}

	stub.set(`{"needQr":true}`, `{"ok":false}`)
	s.pollOnce()

	st := s.Status()
	if st.PairingState != models.PairingAwaiting {
		t.Fatalf("expected awaiting_pairing, got %s", st.PairingState)
	}
	if s.PairingPNG() != nil {
		t.Fatalf("expected pairing image cleared")
	}
}

func TestPollOnce_NoQRNeededBecomesReadyAndClearsImage(t *testing.T) {
	stub := &relayStub{
		status: `{"needQr":true}`,
		qr:     `{"ok":true,"qr":"1@pairing-payload"}`,
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := newPollerUnderTest(t, srv.URL)
	s.pollOnce()
	if s.PairingPNG() == nil {
		t.Fatalf("expected image after pairing poll")
	}

	stub.set(`{"needQr":false}`, "")
	s.pollOnce()

	st := s.Status()
	if st.PairingState != models.PairingReady {
		t.Fatalf("expected ready, got %s", st.PairingState)
	}
	if st.HasQR || s.PairingPNG() != nil {
		t.Fatalf("expected pairing image cleared once ready")
	}
}

func TestPollLoop_ExitsWithItsOwnSession(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"needQr":false}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewRelayService(events.NewBus(), logger.Get(logger.ErrorLevel), RelayConfig{
		BaseURL:      srv.URL,
		PollInterval: 50 * time.Millisecond,
	})

	install := func() chan struct{} {
		exited := make(chan struct{})
		s.mu.Lock()
		s.cmd = &exec.Cmd{}
		s.exited = exited
		s.mu.Unlock()
		return exited
	}

	first := install()
	go s.pollLoop(first)

	// Restart inside one poll interval: the first session ends and a second
	// one begins before the old loop's timer fires. The old loop must exit
	// with its own session instead of latching onto the new one.
	close(first)
	second := install()
	go s.pollLoop(second)

	hits.Store(0)
	time.Sleep(500 * time.Millisecond)
	close(second)

	// A single 50ms loop issues ~10 probes in 500ms; a leaked extra loop
	// roughly doubles that.
	n := hits.Load()
	if n < 5 {
		t.Fatalf("poll loop not running: %d probes in 500ms", n)
	}
	if n > 15 {
		t.Fatalf("expected one active poll loop after restart, got %d probes in 500ms", n)
	}
}

func TestPollOnce_TransportErrorDoesNotDowngradePairing(t *testing.T) {
	stub := &relayStub{status: `{"needQr":false}`}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := newPollerUnderTest(t, srv.URL)
	s.pollOnce()
	if st := s.Status(); st.PairingState != models.PairingReady {
		t.Fatalf("expected ready, got %s", st.PairingState)
	}

	stub.set("garbage", "")
	s.pollOnce()
	if st := s.Status(); st.PairingState != models.PairingReady {
		t.Fatalf("transport error downgraded state to %s", st.PairingState)
	}
}
