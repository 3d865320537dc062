package handler

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/daveeeeeehike/HikingUtility/internal/gpx"
	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/service"
	"github.com/daveeeeeehike/HikingUtility/pkg/response"
)

// GPXContentType is the media type of GPX documents
const GPXContentType = "application/gpx+xml"

// TrackHandler handles HTTP requests for stored tracks
type TrackHandler struct {
	trackService *service.TrackService
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService) *TrackHandler {
	return &TrackHandler{
		trackService: trackService,
	}
}

// ListTracks handles GET /api/v1/tracks
func (h *TrackHandler) ListTracks(c *gin.Context) {
	var filter models.StoredTrackFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.trackService.List(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, result)
}

// GetTrack handles GET /api/v1/tracks/:id
func (h *TrackHandler) GetTrack(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	track, err := h.trackService.Get(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}
	response.Success(c, track)
}

// GetTrackStats handles GET /api/v1/tracks/:id/stats
func (h *TrackHandler) GetTrackStats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	stats, err := h.trackService.Stats(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetTrackPoints handles GET /api/v1/tracks/:id/points
func (h *TrackHandler) GetTrackPoints(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	_, track, err := h.trackService.Load(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}
	response.Success(c, track)
}

// ExportGPX handles GET /api/v1/tracks/:id/gpx
func (h *TrackHandler) ExportGPX(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	stored, data, err := h.trackService.ExportGPX(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": stored.FileName}))
	c.Data(http.StatusOK, GPXContentType, data)
}

// GetGeoJSON handles GET /api/v1/tracks/:id/geojson
func (h *TrackHandler) GetGeoJSON(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fc, err := h.trackService.GeoJSON(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// DeleteTrack handles DELETE /api/v1/tracks/:id
func (h *TrackHandler) DeleteTrack(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.trackService.Delete(id); err != nil {
		writeTrackError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

// ImportTrack handles POST /api/v1/tracks/import.
// The body is either the raw GPX document or a multipart form with a "file" field.
func (h *TrackHandler) ImportTrack(c *gin.Context) {
	name := c.Query("name")

	var (
		result *models.ImportResult
		err    error
	)
	if c.ContentType() == "multipart/form-data" {
		file, ferr := c.FormFile("file")
		if ferr != nil {
			response.BadRequest(c, "Missing file field")
			return
		}
		f, oerr := file.Open()
		if oerr != nil {
			response.BadRequest(c, "Unreadable upload")
			return
		}
		defer f.Close()
		result, err = h.trackService.ImportReader(c.Request.Context(), f, name, models.SourceImported)
	} else {
		result, err = h.trackService.ImportReader(c.Request.Context(), c.Request.Body, name, models.SourceImported)
	}
	if err != nil {
		writeTrackError(c, err)
		return
	}
	response.Created(c, result)
}

// ImportOSMTrace handles POST /api/v1/tracks/import/osm/:traceId
func (h *TrackHandler) ImportOSMTrace(c *gin.Context) {
	result, err := h.trackService.ImportOSMTrace(c.Request.Context(), c.Param("traceId"))
	if err != nil {
		writeTrackError(c, err)
		return
	}
	response.Created(c, result)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "Invalid track ID")
		return 0, false
	}
	return id, true
}

func writeTrackError(c *gin.Context, err error) {
	var formatErr *gpx.FormatError
	switch {
	case errors.Is(err, service.ErrTrackNotFound):
		response.NotFound(c, "Track not found")
	case errors.Is(err, service.ErrEmptyTrack):
		response.UnprocessableEntity(c, "No points found")
	case errors.Is(err, service.ErrImportTooLarge):
		response.TooLarge(c, err.Error())
	case errors.Is(err, service.ErrInvalidTraceID):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUpstream):
		response.BadGateway(c, err.Error())
	case errors.As(err, &formatErr):
		response.BadRequest(c, fmt.Sprintf("Invalid GPX: %v", formatErr))
	default:
		c.Error(err)
		response.InternalError(c, err.Error())
	}
}
