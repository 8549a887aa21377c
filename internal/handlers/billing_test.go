package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/nouranfeh/wabills/internal/models"
	"github.com/nouranfeh/wabills/internal/service"
)

func TestReconcile_OK(t *testing.T) {
	f := newFakes()
	f.reconciler.summary = models.ReconcileSummary{
		RunID:      "run-1",
		Total:      3,
		Ready:      2,
		Errors:     1,
		OutputPath: "/data/messages_preview.csv",
	}
	router := newTestRouter(f)

	body := `{"customers_csv":"/data/customers_master.csv","prices_csv":"/data/subscriptions_prices.csv",` +
		`"readings_csv":"/data/readings.csv","price_per_kwh":"0.10","month":"03"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/reconcile", "good-token", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got models.ReconcileSummary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got != f.reconciler.summary {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if f.reconciler.gotParams.Month != "03" || f.reconciler.gotParams.PricePerKWh != "0.10" {
		t.Fatalf("parameters not forwarded: %+v", f.reconciler.gotParams)
	}
}

func TestReconcile_MissingField(t *testing.T) {
	router := newTestRouter(newFakes())

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/reconcile", "good-token",
		`{"customers_csv":"/data/customers_master.csv"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an incomplete body, got %d", w.Code)
	}
}

func TestReconcile_InputError(t *testing.T) {
	f := newFakes()
	f.reconciler.err = service.ErrInvalidPrice
	router := newTestRouter(f)

	body := `{"customers_csv":"a","prices_csv":"b","readings_csv":"c","price_per_kwh":"-1","month":"03"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/reconcile", "good-token", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a rejected run, got %d", w.Code)
	}
}

func TestReconcile_InternalError(t *testing.T) {
	f := newFakes()
	f.reconciler.err = fmt.Errorf("%w: boom", service.ErrReconcilePanic)
	router := newTestRouter(f)

	body := `{"customers_csv":"a","prices_csv":"b","readings_csv":"c","price_per_kwh":"0.10","month":"03"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/reconcile", "good-token", body)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for an engine failure, got %d", w.Code)
	}
}

func TestDispatch_DefaultsToLastOutput(t *testing.T) {
	f := newFakes()
	f.reconciler.lastOut = "/data/messages_preview.csv"
	f.dispatcher.submitted = 5
	router := newTestRouter(f)

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/dispatch", "good-token", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if f.dispatcher.gotPath != "/data/messages_preview.csv" {
		t.Fatalf("expected dispatch of the last run output, got %q", f.dispatcher.gotPath)
	}

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["submitted"] != 5 {
		t.Fatalf("unexpected submitted count %d", resp["submitted"])
	}
}

func TestDispatch_ExplicitPath(t *testing.T) {
	f := newFakes()
	router := newTestRouter(f)

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/dispatch", "good-token",
		`{"csv_path":"/elsewhere/out.csv"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if f.dispatcher.gotPath != "/elsewhere/out.csv" {
		t.Fatalf("explicit path not forwarded, got %q", f.dispatcher.gotPath)
	}
}

func TestDispatch_NoRunOutput(t *testing.T) {
	router := newTestRouter(newFakes())

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/dispatch", "good-token", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a run output, got %d", w.Code)
	}
}

func TestDispatch_RelayNotRunning(t *testing.T) {
	f := newFakes()
	f.reconciler.lastOut = "/data/messages_preview.csv"
	f.dispatcher.err = service.ErrServiceNotRunning
	router := newTestRouter(f)

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/dispatch", "good-token", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while the relay is down, got %d", w.Code)
	}
}

func TestDispatch_NoReadyRecords(t *testing.T) {
	f := newFakes()
	f.reconciler.lastOut = "/data/messages_preview.csv"
	f.dispatcher.err = service.ErrNoReadyRecords
	router := newTestRouter(f)

	w := doRequest(t, router, http.MethodPost, "/api/v1/billing/dispatch", "good-token", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty batch, got %d", w.Code)
	}
}
