package handlers

import (
	"github.com/nouranfeh/wabills/internal/events"
	"github.com/nouranfeh/wabills/internal/logger"
	"github.com/nouranfeh/wabills/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nouranfeh/wabills/docs"
)

// Handler wires the HTTP layer to services, the event bus and logging.
type Handler struct {
	services *service.Service
	bus      *events.Bus
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, bus *events.Bus, log *logger.Logger) *Handler {
	return &Handler{services: services, bus: bus, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint for this service (the relay's own health lives under
	// /api/v1/relay/health).
	router.GET("/health", h.health)

	router.POST("/auth/sign-in", h.signIn)

	// Event feed (HTTP upgrade) — same port.
	router.GET("/ws", h.wsConnect)

	api := router.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerBillingRoutes(api)
		h.registerRelayRoutes(api)
	}

	return router
}

func (h *Handler) registerBillingRoutes(api *gin.RouterGroup) {
	billing := api.Group("/billing")
	{
		billing.POST("/reconcile", h.reconcile)
		billing.POST("/dispatch", h.dispatch)
	}
}

func (h *Handler) registerRelayRoutes(api *gin.RouterGroup) {
	relay := api.Group("/relay")
	{
		relay.POST("/start", h.startRelay)
		relay.POST("/stop", h.stopRelay)
		relay.GET("/status", h.relayStatus)
		relay.GET("/qr.png", h.relayQR)
		relay.GET("/health", h.relayHealth)
	}
}
