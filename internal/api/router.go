package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daveeeeeehike/HikingUtility/internal/config"
	"github.com/daveeeeeehike/HikingUtility/internal/handler"
	"github.com/daveeeeeehike/HikingUtility/internal/middleware"
	"github.com/daveeeeeehike/HikingUtility/internal/service"
	"github.com/daveeeeeehike/HikingUtility/internal/stream"
)

// Dependencies are the services the routes are served from
type Dependencies struct {
	TrackService     *service.TrackService
	RecordingService *service.RecordingService
	Hub              *stream.Hub
	IngestLimiter    *middleware.RateLimiter // nil disables ingest limiting
}

// SetupRouter wires middleware and routes
func SetupRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger("/health"))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"recording": deps.RecordingService.Status().State,
			"time":      time.Now().UTC().Format(time.RFC3339),
		})
	})

	trackHandler := handler.NewTrackHandler(deps.TrackService)
	recordingHandler := handler.NewRecordingHandler(deps.RecordingService, deps.TrackService)
	streamHandler := handler.NewStreamHandler(deps.Hub, deps.RecordingService)

	auth := middleware.JWTAuth(cfg.JWTSecret)

	v1 := r.Group("/api/v1")
	{
		tracks := v1.Group("/tracks")
		{
			tracks.GET("", trackHandler.ListTracks)
			tracks.GET("/:id", trackHandler.GetTrack)
			tracks.GET("/:id/stats", trackHandler.GetTrackStats)
			tracks.GET("/:id/points", trackHandler.GetTrackPoints)
			tracks.GET("/:id/gpx", trackHandler.ExportGPX)
			tracks.GET("/:id/geojson", trackHandler.GetGeoJSON)

			tracks.POST("/import", auth, trackHandler.ImportTrack)
			tracks.POST("/import/osm/:traceId", auth, trackHandler.ImportOSMTrace)
			tracks.DELETE("/:id", auth, trackHandler.DeleteTrack)
		}

		recording := v1.Group("/recording")
		{
			recording.GET("", recordingHandler.GetStatus)
			recording.GET("/points", recordingHandler.GetPoints)
			recording.GET("/sessions", recordingHandler.ListSessions)
			recording.GET("/stream", streamHandler.Stream)

			control := recording.Group("", auth)
			{
				control.POST("/start", recordingHandler.Start)
				control.POST("/pause", recordingHandler.Pause)
				control.POST("/resume", recordingHandler.Resume)
				control.POST("/stop", recordingHandler.Stop)
				control.POST("/replay/:id", recordingHandler.Replay)
				control.POST("/fixes", middleware.RateLimit(deps.IngestLimiter), recordingHandler.IngestFixes)
			}
		}
	}

	return r
}
