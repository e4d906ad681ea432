package handlers

import (
	"building_automation/internal/logger"
	"building_automation/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs the HTTP layer. A nil log discards output.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
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

	// live state stream on the same port; token in header or ?access_token=
	router.GET("/ws", h.userIdMiddleware, h.wsConnect)

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
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerBASRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerBASRoutes(api *gin.RouterGroup) {
	bas := api.Group("/bas")
	{
		bas.GET("/state", h.getState)
		// Body example: {"mode":"AUTO"}
		bas.POST("/mode", h.setMode)
		// Body example: {"lighting":60,"temperature_c":21.5,"door_lock":"UNLOCKED"}
		bas.POST("/override", h.override)
		bas.GET("/macros", h.listMacros)
		bas.POST("/macros/:name", h.invokeMacro)
		bas.GET("/schedule", h.listSchedule)
		bas.POST("/schedule", h.addScheduleRule)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/", h.getLogs)
	}
}
