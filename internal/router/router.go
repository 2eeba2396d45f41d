package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flowtimer/internal/handler"
	"flowtimer/internal/middleware"
	"flowtimer/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	timerHandler *handler.TimerHandler,
	statsHandler *handler.StatsHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Logger(gin.DefaultWriter), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService, "/api/timer/events"))
	protected.GET("/auth/me", authHandler.Me)

	timer := protected.Group("/timer")
	timer.GET("/state", timerHandler.GetState)
	timer.GET("/events", timerHandler.Events)
	timer.POST("/start", timerHandler.Start)
	timer.POST("/pause", timerHandler.Pause)
	timer.POST("/reset", timerHandler.Reset)
	timer.POST("/wake", timerHandler.Wake)
	timer.POST("/mode", timerHandler.SwitchMode)
	timer.PUT("/durations", timerHandler.UpdateDurations)
	timer.PUT("/intention", timerHandler.SetIntention)

	sessions := protected.Group("/sessions")
	sessions.GET("", statsHandler.ListSessions)
	sessions.PUT("/:id/rating", statsHandler.RateSession)

	stats := protected.Group("/stats")
	stats.GET("/dashboard", statsHandler.Dashboard)
	stats.GET("/calendar", statsHandler.Calendar)
	stats.GET("/report.pdf", statsHandler.Report)

	protected.GET("/preferences", statsHandler.GetPreferences)
	protected.PUT("/preferences", statsHandler.UpdatePreferences)

	return engine
}
