package handlers

import (
	"controlling_poolspa/internal/logger"
	"controlling_poolspa/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Inbound frames drive equipment, so the stream needs a token too.
	router.GET("/ws", h.visitorMiddleware, h.wsAuthMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.visitorMiddleware, h.userIdMiddleware)
	{
		h.registerPoolRoutes(api)
		h.registerLogRoutes(api)
		h.registerTempRoutes(api)
		h.registerVisitorRoutes(api)
	}
}

func (h *Handler) registerPoolRoutes(api *gin.RouterGroup) {
	pool := api.Group("/pool")
	{
		pool.GET("/state", h.getState)
		// Body example: {"button":5}
		pool.POST("/button", h.pressButton)
		// Body example: {"direction":"up"}
		pool.POST("/temp", h.adjustTemp)
		pool.POST("/stop", h.stopPool)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}

func (h *Handler) registerTempRoutes(api *gin.RouterGroup) {
	temps := api.Group("/temps")
	{
		temps.GET("/", h.getTemps)
	}
}

func (h *Handler) registerVisitorRoutes(api *gin.RouterGroup) {
	visitors := api.Group("/visitors")
	{
		visitors.GET("/", h.getVisitors)
	}
}
