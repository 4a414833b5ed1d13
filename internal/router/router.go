// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/speaknote/internal/handler"
)

// multipartOverhead leaves room for the form fields and part headers that
// travel with a recording of the maximum size.
const multipartOverhead = 64 << 10

// Handlers bundles every API handler.
type Handlers struct {
	Users      *handler.UserHandler
	Notes      *handler.NoteHandler
	Providers  *handler.ProviderHandler
	Practices  *handler.PracticeHandler
	Activities *handler.ActivityHandler
	Export     *handler.ExportHandler
}

// Middlewares are built by main from config; nil entries are skipped.
type Middlewares struct {
	JWT            echo.MiddlewareFunc
	RateLimit      echo.MiddlewareFunc
	Cache          echo.MiddlewareFunc
	MaxUploadBytes int64
}

// RegisterRoutes registers routes that do not require authentication: the
// health check and, for the local store, the audio files.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, uploadDir, publicPath string) {
	e.GET("/healthz", handler.Health(db))
	if uploadDir != "" {
		e.Static(publicPath, uploadDir)
	}
}

// RegisterAPI mounts the versioned JSON API under /api/v1. Only register
// and login are reachable without a bearer token.
func RegisterAPI(e *echo.Echo, h Handlers, mw Middlewares) {
	api := e.Group("/api/v1")

	public := api.Group("/users", optional(mw.RateLimit)...)
	public.POST("/register", h.Users.Register)
	public.POST("/login", h.Users.Login)

	auth := api.Group("", mw.JWT)
	cached := optional(mw.Cache)
	limited := optional(mw.RateLimit)

	auth.GET("/users/me", h.Users.Me)
	auth.PATCH("/users/me", h.Users.UpdateMe)
	auth.GET("/users/activities", h.Activities.Overview, cached...)

	auth.POST("/notes", h.Notes.Create)
	auth.GET("/notes", h.Notes.List)
	auth.GET("/notes/export", h.Export.Export)
	auth.GET("/notes/:id", h.Notes.Get)
	auth.PATCH("/notes/:id", h.Notes.Patch)
	auth.DELETE("/notes/:id", h.Notes.Delete)

	auth.POST("/translate", h.Providers.Translate, limited...)
	auth.POST("/tts", h.Providers.Speak, limited...)

	upload := []echo.MiddlewareFunc{}
	if mw.MaxUploadBytes > 0 {
		upload = append(upload, echomw.BodyLimit(fmt.Sprintf("%dB", mw.MaxUploadBytes+multipartOverhead)))
	}
	auth.POST("/practices", h.Practices.Create, upload...)
	auth.GET("/practices", h.Practices.List)

	auth.GET("/activities", h.Activities.Heatmap, cached...)
	auth.POST("/activities", h.Activities.Record)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
