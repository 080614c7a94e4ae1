package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"live-class/auth"
	"live-class/handler"
)

// NewRouter builds the HTTP router.
func NewRouter(logger zerolog.Logger, resolver auth.Resolver, liveClasses *handler.LiveClassHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	addHealth(r)

	api := r.Group("/live-classes", handler.RequestLogger(logger), handler.Authenticate(resolver))
	{
		api.GET("", liveClasses.List)
		api.GET("/:id", liveClasses.Get)

		mutating := api.Group("", handler.RequireIdentity())
		mutating.POST("", liveClasses.Create)
		mutating.POST("/:id/start", liveClasses.Start)
		mutating.POST("/:id/end", liveClasses.End)
		mutating.POST("/:id/cancel", liveClasses.Cancel)
		mutating.POST("/:id/join", liveClasses.Join)
		mutating.POST("/:id/leave", liveClasses.Leave)
		mutating.GET("/:id/participants", liveClasses.Participants)
		mutating.POST("/:id/recording/chunks", liveClasses.RecordingChunk)
	}

	return r
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
}
