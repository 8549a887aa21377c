package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nouranfeh/wabills/internal/service"
)

type reconcileRequest struct {
	CustomersCSV string `json:"customers_csv" binding:"required"`
	PricesCSV    string `json:"prices_csv" binding:"required"`
	ReadingsCSV  string `json:"readings_csv" binding:"required"`
	PricePerKWh  string `json:"price_per_kwh" binding:"required"`
	Month        string `json:"month" binding:"required"` // "01".."12"
}

type dispatchRequest struct {
	CSVPath string `json:"csv_path"` // optional; defaults to the last run output
}

// @Summary      Run bill reconciliation
// @Description  Joins customers, prices and readings; classifies every record and writes messages_preview.csv next to the readings file.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        body  body      reconcileRequest  true  "Input files, unit price and month"
// @Success      200   {object}  models.ReconcileSummary
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/billing/reconcile [post]
// @Security     BearerAuth
func (h *Handler) reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	summary, err := h.services.Run(service.ReconcileParams{
		CustomersPath: req.CustomersCSV,
		PricesPath:    req.PricesCSV,
		ReadingsPath:  req.ReadingsCSV,
		PricePerKWh:   req.PricePerKWh,
		Month:         req.Month,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, service.ErrReconcilePanic) {
			code = http.StatusInternalServerError
		}
		if h.log != nil {
			h.log.Errorw("reconcile_failed", "err", err)
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary      Dispatch prepared messages
// @Description  Submits the ready subset of a run output to the local relay as one bulk request. The per-item tally arrives on the event feed.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        body  body      dispatchRequest  false  "Optional explicit run output path"
// @Success      202   {object}  map[string]int
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/billing/dispatch [post]
// @Security     BearerAuth
func (h *Handler) dispatch(c *gin.Context) {
	var req dispatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}
	}

	path := req.CSVPath
	if path == "" {
		path = h.services.LastOutputPath()
	}
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no run output available; run reconciliation first or provide csv_path"})
		return
	}

	submitted, err := h.services.Dispatch(path)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, service.ErrServiceNotRunning) {
			code = http.StatusConflict
		}
		if h.log != nil {
			h.log.Errorw("dispatch_failed", "err", err, "path", path)
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"submitted": submitted})
}
