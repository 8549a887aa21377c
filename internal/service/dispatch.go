package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/repository"
)

var (
	ErrServiceNotRunning = errors.New("relay service is not running")
	ErrNoReadyRecords    = errors.New("no ready records to send (Status must be empty)")
)

const minDispatchTimeout = 60 * time.Second

// session is the slice of the relay the dispatcher is allowed to see:
// liveness and the address. It never touches the process handle.
type session interface {
	IsRunning() bool
	BaseURL() string
}

type bulkItem struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type bulkRequest struct {
	Items []bulkItem `json:"items"`
}

type bulkResponse struct {
	Results []struct {
		OK bool `json:"ok"`
	} `json:"results"`
}

type DispatchService struct {
	results repository.ResultStore
	relay   session
	bus     *events.Bus
	log     *logger.Logger
}

func NewDispatchService(results repository.ResultStore, relay session, bus *events.Bus, log *logger.Logger) *DispatchService {
	return &DispatchService{results: results, relay: relay, bus: bus, log: log}
}

// Dispatch loads a run output, filters it to ready rows and submits them as
// one bulk request on a background goroutine. It returns the number of
// submitted items; the per-item tally arrives later as a dispatch_summary
// event.
func (s *DispatchService) Dispatch(path string) (int, error) {
	if !s.relay.IsRunning() {
		return 0, ErrServiceNotRunning
	}

	rows, err := s.results.Load(path)
	if err != nil {
		return 0, err
	}

	ready := 0
	items := make([]bulkItem, 0, len(rows))
	for _, r := range rows {
		if !r.Ready() {
			continue
		}
		ready++
		phone := NormalizePhone(r.Phone)
		msg := strings.TrimSpace(r.Message)
		// Rows that lost their phone or message in normalization are
		// excluded from the batch, not reported as failures.
		if phone == "" || msg == "" {
			continue
		}
		items = append(items, bulkItem{Phone: phone, Message: msg})
	}
	if ready == 0 {
		return 0, ErrNoReadyRecords
	}

	s.bus.Logf("بدء الإرسال عبر الخدمة المحلية… (%d رسالة)", len(items))
	go s.postBulk(items)
	return len(items), nil
}

// postBulk submits the batch with a timeout that scales with batch size and
// tallies the per-item outcomes. A transport failure is one terminal
// dispatch_failed event; there is no automatic retry.
func (s *DispatchService) postBulk(items []bulkItem) {
	body, err := json.Marshal(bulkRequest{Items: items})
	if err != nil {
		s.reportFailure(err)
		return
	}

	client := &http.Client{Timeout: dispatchTimeout(len(items))}
	resp, err := client.Post(s.relay.BaseURL()+"/bulk", "application/json", bytes.NewReader(body))
	if err != nil {
		s.reportFailure(err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	var result bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.reportFailure(err)
		return
	}

	tally := models.DispatchResult{Submitted: len(items)}
	for _, r := range result.Results {
		if r.OK {
			tally.Succeeded++
		} else {
			tally.Failed++
		}
	}
	s.log.Infow("bulk dispatch finished",
		"submitted", tally.Submitted, "ok", tally.Succeeded, "failed", tally.Failed)
	s.bus.Logf("انتهى الإرسال: ناجحة=%d، فاشلة=%d", tally.Succeeded, tally.Failed)
	s.bus.Publish(events.TypeDispatchSummary, tally)
}

func (s *DispatchService) reportFailure(err error) {
	s.log.Errorw("bulk dispatch failed", "err", err)
	s.bus.Logf("فشل الاتصال بالخدمة: %v", err)
	s.bus.Publish(events.TypeDispatchFailed, map[string]string{"error": err.Error()})
}

// dispatchTimeout is at least a minute, or one second per two items for
// large batches.
func dispatchTimeout(n int) time.Duration {
	scaled := time.Duration(n/2) * time.Second
	if scaled < minDispatchTimeout {
		return minDispatchTimeout
	}
	return scaled
}

// NormalizePhone keeps only digit runes and strips a leading international
// "00" prefix (dropped, not converted to "+").
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "00") {
		return digits[2:]
	}
	return digits
}
