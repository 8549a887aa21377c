package service

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/qr"
)

// Relay status contract, fixed by the server.
type statusResponse struct {
	NeedQR bool `json:"needQr"`
}

type qrResponse struct {
	OK bool   `json:"ok"`
	QR string `json:"qr"`
}

// pollLoop probes the relay at a fixed interval for as long as its own
// session is alive. exited belongs to the session the loop was started for;
// a restarted session runs a fresh loop, so an old loop must never key off
// the current session state.
func (s *RelayService) pollLoop(exited <-chan struct{}) {
	for {
		select {
		case <-exited:
			return
		default:
		}
		s.pollOnce()
		select {
		case <-exited:
			return
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// pollOnce drives the booting -> awaiting_pairing -> ready state machine
// from one /status probe.
func (s *RelayService) pollOnce() {
	var status statusResponse
	if err := s.getJSON("/status", &status); err != nil {
		s.bus.Logf("Status: server not ready yet…")
		s.setBooting()
		return
	}

	if !status.NeedQR {
		s.setPairing(models.PairingReady, nil)
		return
	}

	var q qrResponse
	if err := s.getJSON("/qr", &q); err != nil || !q.OK {
		s.setPairing(models.PairingAwaiting, nil)
		return
	}
	png, err := qr.RenderPNG(q.QR, qr.DefaultSize)
	if err != nil {
		s.log.Warnw("qr render failed", "err", err)
		s.setPairing(models.PairingAwaiting, nil)
		return
	}
	s.setPairing(models.PairingAwaiting, png)
	s.bus.Logf("Awaiting QR scan…")
}

// getJSON issues a short-timeout GET and decodes the body. A non-JSON body
// (server still booting) is an error like any transport failure.
func (s *RelayService) getJSON(path string, into interface{}) error {
	resp, err := s.client.Get(s.cfg.BaseURL + path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(into)
}

// setBooting records that the relay is up but not answering yet. It never
// downgrades a later pairing state.
func (s *RelayService) setBooting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairing == models.PairingUnknown {
		s.pairing = models.PairingBooting
	}
}

// setPairing stores the new state and image, publishing pairing_changed
// only when something actually changed.
func (s *RelayService) setPairing(state models.PairingState, png []byte) {
	s.mu.Lock()
	changed := s.pairing != state || !bytes.Equal(s.qrPNG, png)
	s.pairing = state
	s.qrPNG = png
	s.mu.Unlock()

	if changed {
		s.bus.Publish(events.TypePairingChanged, models.RelayStatus{
			Running:      s.IsRunning(),
			PairingState: state,
			HasQR:        len(png) > 0,
		})
	}
}
