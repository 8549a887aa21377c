package service

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
)

func TestRelayStart_EntryMissing(t *testing.T) {
	bus := events.NewBus()
	s := NewRelayService(bus, logger.Get(logger.ErrorLevel), RelayConfig{
		Dir:   t.TempDir(),
		Entry: "wa_http_server.js",
	})

	err := s.Start(false)
	if !errors.Is(err, ErrServerEntryMissing) {
		t.Fatalf("expected ErrServerEntryMissing, got %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("session must stay stopped after failed start")
	}
}

func TestRelayStop_NotRunningIsNoOp(t *testing.T) {
	bus := events.NewBus()
	feed, cancel := bus.Subscribe()
	defer cancel()

	s := NewRelayService(bus, logger.Get(logger.ErrorLevel), RelayConfig{
		Dir:   t.TempDir(),
		Entry: "wa_http_server.js",
	})
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-feed:
		if ev.Type != events.TypeLogLine {
			t.Fatalf("expected informational log line, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a log line for stop while not running")
	}
}

func TestRelayStatus_InitialState(t *testing.T) {
	s := NewRelayService(events.NewBus(), logger.Get(logger.ErrorLevel), RelayConfig{})
	st := s.Status()
	if st.Running {
		t.Fatalf("fresh session must not report running")
	}
	if st.PairingState != models.PairingUnknown {
		t.Fatalf("expected unknown pairing state, got %s", st.PairingState)
	}
	if st.HasQR || s.PairingPNG() != nil {
		t.Fatalf("fresh session must not surface a pairing image")
	}
}

func TestClearSession_IgnoresSupersededHandle(t *testing.T) {
	s := NewRelayService(events.NewBus(), logger.Get(logger.ErrorLevel), RelayConfig{})

	old := &exec.Cmd{}
	current := &exec.Cmd{}
	s.mu.Lock()
	s.cmd = current
	s.exited = make(chan struct{})
	s.pairing = models.PairingReady
	s.mu.Unlock()

	// A Stop finishing for a previous session must not clobber the handle a
	// newer Start installed in the meantime.
	s.clearSession(old)
	if !s.IsRunning() {
		t.Fatalf("newer session lost its handle")
	}
	if st := s.Status(); st.PairingState != models.PairingReady {
		t.Fatalf("newer session lost its pairing state: %s", st.PairingState)
	}

	s.clearSession(current)
	if s.IsRunning() {
		t.Fatalf("expected session cleared")
	}
	if st := s.Status(); st.PairingState != models.PairingUnknown {
		t.Fatalf("expected pairing reset, got %s", st.PairingState)
	}
}

func TestRelayConfig_Defaults(t *testing.T) {
	cfg := RelayConfig{}
	cfg.applyDefaults()
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval)
	}
	if cfg.StartupDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected startup delay %v", cfg.StartupDelay)
	}
	if cfg.GraceTimeout != 3*time.Second {
		t.Fatalf("unexpected grace timeout %v", cfg.GraceTimeout)
	}
	if cfg.CacheStrategy != "none" {
		t.Fatalf("unexpected cache strategy %q", cfg.CacheStrategy)
	}
}

func TestChildEnv(t *testing.T) {
	s := NewRelayService(events.NewBus(), logger.Get(logger.ErrorLevel), RelayConfig{
		BrowserPath:   "/opt/browser",
		CacheStrategy: "none",
	})

	headless := envValue(s.childEnv(false), "HEADLESS")
	if headless != "true" {
		t.Fatalf("expected HEADLESS=true for hidden start, got %q", headless)
	}
	visible := envValue(s.childEnv(true), "HEADLESS")
	if visible != "false" {
		t.Fatalf("expected HEADLESS=false for visible start, got %q", visible)
	}
}

func envValue(env []string, key string) string {
	prefix := key + "="
	// later entries win, matching os/exec semantics
	val := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			val = strings.TrimPrefix(kv, prefix)
		}
	}
	return val
}
