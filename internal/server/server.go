// Package server exposes the allocation engine over HTTP.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/piwi3910/CutFrame/internal/model"
)

// DefaultMaxUploadBytes limits uploaded piece lists when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	Settings       model.CutSettings
	Materials      MaterialStore
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// Server holds the handlers' dependencies.
type Server struct {
	settings  model.CutSettings
	materials MaterialStore
	logger    *zap.Logger
	maxUpload int64
}

// New returns a Server. Materials is required.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Server{
		settings:  opts.Settings,
		materials: opts.Materials,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(s.logger))
	r.Use(CORS())
	r.MaxMultipartMemory = s.maxUpload

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/process", s.process)
		api.POST("/download", s.download)
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)
	}
	return r
}
