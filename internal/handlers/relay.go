package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type startRelayRequest struct {
	Visible bool `json:"visible"` // run the underlying browser headful
}

// @Summary      Start the local relay
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        body  body      startRelayRequest  false  "Start options"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/relay/start [post]
// @Security     BearerAuth
func (h *Handler) startRelay(c *gin.Context) {
	var req startRelayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
			return
		}
	}

	if err := h.services.Start(req.Visible); err != nil {
		if h.log != nil {
			h.log.Errorw("relay_start_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

// @Summary      Stop the local relay
// @Tags         relay
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/relay/stop [post]
// @Security     BearerAuth
func (h *Handler) stopRelay(c *gin.Context) {
	if err := h.services.Stop(); err != nil {
		if h.log != nil {
			h.log.Errorw("relay_stop_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// @Summary      Relay session and pairing state
// @Tags         relay
// @Produce      json
// @Success      200  {object}  models.RelayStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/relay/status [get]
// @Security     BearerAuth
func (h *Handler) relayStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Relay.Status())
}

// @Summary      Current pairing QR image
// @Tags         relay
// @Produce      png
// @Success      200  {string}  binary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/relay/qr.png [get]
// @Security     BearerAuth
func (h *Handler) relayQR(c *gin.Context) {
	png := h.services.PairingPNG()
	if png == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pairing image available"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// @Summary      Relay diagnostics, proxied verbatim
// @Tags         relay
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/relay/health [get]
// @Security     BearerAuth
func (h *Handler) relayHealth(c *gin.Context) {
	raw, err := h.services.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
