package server

import (
	"net/http"
	"strings"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/api"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/app"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/filestorage"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	// Health check endpoint
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// File server backing local storage URLs. Resolve confines lookups to the
	// assets directory.
	s.ginEngine.GET("/file/*filepath", func(c *gin.Context) {
		local, ok := app.Storage().(*filestorage.LocalStorage)
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}

		resolved, err := local.Resolve(strings.TrimPrefix(c.Param("filepath"), "/"))
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		c.File(resolved)
	})

	apiV1 := s.ginEngine.Group("/api/v1")

	apiV1.POST("/animations", handlerWrapper(app, api.CreateAnimation))
	apiV1.POST("/animations/validate", handlerWrapper(app, api.ValidatePipeline))
	apiV1.POST("/uploads/reference", handlerWrapper(app, api.UploadReference))

	apiV1.POST("/generations", handlerWrapper(app, api.CreateGeneration))
	apiV1.POST("/generations/:id/run", handlerWrapper(app, api.RunGeneration))
	apiV1.POST("/generations/:id/selfie", handlerWrapper(app, api.UploadSelfie))
	apiV1.GET("/generations/:id", handlerWrapper(app, api.GetGeneration))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
