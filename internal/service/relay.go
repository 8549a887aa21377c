package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
)

// Service lifecycle errors; each aborts Start and is never retried
// automatically.
var (
	ErrServerEntryMissing = errors.New("relay server entry point not found")
	ErrDependencyInstall  = errors.New("relay dependency install failed")
	ErrLaunchFailed       = errors.New("failed to start relay server")
)

// RelayConfig configures the supervised child process and its HTTP surface.
type RelayConfig struct {
	Dir           string        // directory containing the relay server
	Entry         string        // server entry file inside Dir
	BaseURL       string        // e.g. http://localhost:3000
	BrowserPath   string        // empty = per-OS default
	CacheStrategy string        // WEB_CACHE_STRATEGY override, default "none"
	PollInterval  time.Duration // pause between status probes
	StartupDelay  time.Duration // wait before the first probe
	GraceTimeout  time.Duration // SIGTERM-to-kill window on Stop
	HTTPTimeout   time.Duration // per-probe request timeout
}

func (c *RelayConfig) applyDefaults() {
	if c.CacheStrategy == "" {
		c.CacheStrategy = "none"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 1500 * time.Millisecond
	}
	if c.StartupDelay <= 0 {
		c.StartupDelay = 1500 * time.Millisecond
	}
	if c.GraceTimeout <= 0 {
		c.GraceTimeout = 3 * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 3 * time.Second
	}
}

// RelayService supervises a single relay process. The process handle is
// owned exclusively here; nothing else signals or waits on it.
type RelayService struct {
	cfg    RelayConfig
	bus    *events.Bus
	log    *logger.Logger
	client *http.Client

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{} // closed by the log pump once Wait returns
	pairing models.PairingState
	qrPNG   []byte
}

func NewRelayService(bus *events.Bus, log *logger.Logger, cfg RelayConfig) *RelayService {
	cfg.applyDefaults()
	return &RelayService{
		cfg:     cfg,
		bus:     bus,
		log:     log,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		pairing: models.PairingUnknown,
	}
}

// IsRunning reports whether the owned process exists and has not exited.
func (s *RelayService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningLocked()
}

func (s *RelayService) runningLocked() bool {
	if s.cmd == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Status snapshots the session and pairing state.
func (s *RelayService) Status() models.RelayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.RelayStatus{
		Running:      s.runningLocked(),
		PairingState: s.pairing,
		HasQR:        len(s.qrPNG) > 0,
	}
}

// PairingPNG returns the current pairing image, or nil when none is
// surfaced.
func (s *RelayService) PairingPNG() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.qrPNG) == 0 {
		return nil
	}
	out := make([]byte, len(s.qrPNG))
	copy(out, s.qrPNG)
	return out
}

// Start launches the relay process. It is a no-op while a process is
// already running. visible=true runs the underlying browser headful.
func (s *RelayService) Start(visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runningLocked() {
		s.bus.Logf("Service already running.")
		return nil
	}

	entry := filepath.Join(s.cfg.Dir, s.cfg.Entry)
	if _, err := os.Stat(entry); err != nil {
		s.bus.Logf("Server file not found: %s", entry)
		return fmt.Errorf("%w: %s", ErrServerEntryMissing, entry)
	}

	if err := s.ensureDependencies(); err != nil {
		return err
	}

	cmd := exec.Command("node", entry)
	cmd.Dir = s.cfg.Dir
	cmd.Env = s.childEnv(visible)
	hideConsoleWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	cmd.Stderr = cmd.Stdout // merge into a single readable stream

	if err := cmd.Start(); err != nil {
		s.bus.Logf("Failed to start server: %v", err)
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	s.cmd = cmd
	s.exited = make(chan struct{})
	s.pairing = models.PairingBooting
	s.qrPNG = nil

	s.log.Infow("relay started", "entry", entry, "pid", cmd.Process.Pid, "visible", visible)
	s.bus.Logf("Starting WhatsApp local API…")
	s.bus.Publish(events.TypeStarted, nil)

	go s.pumpLogs(cmd, stdout, s.exited)
	go func(exited <-chan struct{}) {
		select {
		case <-time.After(s.cfg.StartupDelay):
		case <-exited:
			return
		}
		s.pollLoop(exited)
	}(s.exited)
	return nil
}

// ensureDependencies runs a one-time silent npm install when node_modules is
// absent. Caller holds the lock.
func (s *RelayService) ensureDependencies() error {
	if _, err := os.Stat(filepath.Join(s.cfg.Dir, "node_modules")); err == nil {
		return nil
	}
	s.bus.Logf("Installing Node dependencies (first run)…")
	install := exec.Command(npmCommand(), "ci")
	install.Dir = s.cfg.Dir
	hideConsoleWindow(install)
	if out, err := install.CombinedOutput(); err != nil {
		s.bus.Logf("npm install failed: %v", err)
		s.log.Errorw("npm ci failed", "err", err, "output", string(out))
		return fmt.Errorf("%w: %v", ErrDependencyInstall, err)
	}
	s.bus.Logf("Dependencies installed.")
	return nil
}

// childEnv overlays the relay knobs on the current environment.
func (s *RelayService) childEnv(visible bool) []string {
	env := os.Environ()
	if os.Getenv("CHROME_PATH") == "" {
		browser := s.cfg.BrowserPath
		if browser == "" {
			browser = defaultBrowserPath()
		}
		env = append(env, "CHROME_PATH="+browser)
	}
	headless := "true"
	if visible {
		headless = "false"
	}
	env = append(env, "HEADLESS="+headless)
	if os.Getenv("WEB_CACHE_STRATEGY") == "" {
		env = append(env, "WEB_CACHE_STRATEGY="+s.cfg.CacheStrategy)
	}
	return env
}

// pumpLogs relays every line of the merged output stream as a log event
// until the stream closes, then reaps the process.
func (s *RelayService) pumpLogs(cmd *exec.Cmd, stdout io.Reader, exited chan struct{}) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.bus.Publish(events.TypeLogLine, map[string]string{"line": scanner.Text()})
	}
	_ = cmd.Wait()
	close(exited)
}

// Stop requests graceful termination, escalating to a hard kill after the
// grace window. "stopped" is always emitted, even if termination errored;
// the handle is cleared unless a newer Start already replaced it.
func (s *RelayService) Stop() error {
	s.mu.Lock()
	if !s.runningLocked() {
		s.mu.Unlock()
		s.bus.Logf("Service not running.")
		return nil
	}
	cmd := s.cmd
	exited := s.exited
	s.mu.Unlock()

	if err := terminateProcess(cmd.Process); err != nil {
		s.log.Warnw("graceful terminate failed", "err", err)
	}
	select {
	case <-exited:
	case <-time.After(s.cfg.GraceTimeout):
		_ = cmd.Process.Kill()
		<-exited
	}

	s.clearSession(cmd)

	s.log.Infow("relay stopped")
	s.bus.Publish(events.TypeStopped, nil)
	s.bus.Logf("Service stopped.")
	return nil
}

// clearSession resets the handle and pairing state, but only while cmd is
// still the current session. A Start that raced in during the grace wait
// keeps its fresh handle.
func (s *RelayService) clearSession(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != cmd {
		return
	}
	s.cmd = nil
	s.exited = nil
	s.pairing = models.PairingUnknown
	s.qrPNG = nil
}

// Health fetches the relay's diagnostic payload and returns it verbatim.
func (s *RelayService) Health(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("health check: server not ready yet")
	}
	return json.RawMessage(body), nil
}

// BaseURL exposes the relay address for the dispatcher.
func (s *RelayService) BaseURL() string { return s.cfg.BaseURL }

// CleanupStray force-kills browser and node processes the relay may have
// left behind. Best-effort, used on application shutdown.
func (s *RelayService) CleanupStray() {
	for _, argv := range strayKillCommands(s.cfg.Entry) {
		cmd := exec.Command(argv[0], argv[1:]...)
		hideConsoleWindow(cmd)
		_ = cmd.Run()
	}
}

// defaultBrowserPath probes well-known install locations for a Chromium
// based browser on the current OS.
func defaultBrowserPath() string {
	var candidates []string
	var fallback string
	switch runtime.GOOS {
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
		}
		fallback = `C:\Program Files\Google\Chrome\Application\chrome.exe`
	case "darwin":
		return "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
	default:
		candidates = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
		}
		fallback = "/usr/bin/google-chrome"
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return fallback
}
