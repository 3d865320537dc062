package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/service"
	"github.com/daveeeeeehike/HikingUtility/pkg/response"
)

const maxFixBatch = 1000

// RecordingHandler handles the live recording session
type RecordingHandler struct {
	recordingService *service.RecordingService
	trackService     *service.TrackService
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordingService *service.RecordingService, trackService *service.TrackService) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
		trackService:     trackService,
	}
}

// StartRequest is the optional body of a start request
type StartRequest struct {
	Name string `json:"name"`
}

// FixBatch is the body of a fix ingest request
type FixBatch struct {
	Fixes []models.Fix `json:"fixes" binding:"required,min=1,dive"`
}

// GetStatus handles GET /api/v1/recording
func (h *RecordingHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.recordingService.Status())
}

// GetPoints handles GET /api/v1/recording/points?since=N
func (h *RecordingHandler) GetPoints(c *gin.Context) {
	since, err := strconv.Atoi(c.DefaultQuery("since", "0"))
	if err != nil || since < 0 {
		response.BadRequest(c, "Invalid since parameter")
		return
	}

	points := h.recordingService.PointsSince(since)
	response.Success(c, gin.H{
		"since":  since,
		"next":   since + len(points),
		"points": points,
	})
}

// ListSessions handles GET /api/v1/recording/sessions
func (h *RecordingHandler) ListSessions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	sessions, err := h.recordingService.Sessions(limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, sessions)
}

// Start handles POST /api/v1/recording/start
func (h *RecordingHandler) Start(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	status, err := h.recordingService.Start(req.Name)
	if err != nil {
		writeRecordingError(c, err)
		return
	}
	response.Created(c, status)
}

// Pause handles POST /api/v1/recording/pause
func (h *RecordingHandler) Pause(c *gin.Context) {
	status, err := h.recordingService.Pause()
	if err != nil {
		writeRecordingError(c, err)
		return
	}
	response.Success(c, status)
}

// Resume handles POST /api/v1/recording/resume
func (h *RecordingHandler) Resume(c *gin.Context) {
	status, err := h.recordingService.Resume()
	if err != nil {
		writeRecordingError(c, err)
		return
	}
	response.Success(c, status)
}

// Stop handles POST /api/v1/recording/stop
func (h *RecordingHandler) Stop(c *gin.Context) {
	result, err := h.recordingService.Stop(c.Request.Context())
	if err != nil {
		if result != nil {
			// the session ended but the file could not be written
			c.Error(err)
			response.InternalError(c, err.Error())
			return
		}
		writeRecordingError(c, err)
		return
	}
	response.Success(c, result)
}

// IngestFixes handles POST /api/v1/recording/fixes
func (h *RecordingHandler) IngestFixes(c *gin.Context) {
	var batch FixBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.BadRequest(c, "Invalid fixes: "+err.Error())
		return
	}
	if len(batch.Fixes) > maxFixBatch {
		response.TooLarge(c, "Too many fixes in one request")
		return
	}

	queued, err := h.recordingService.IngestFixes(c.Request.Context(), batch.Fixes)
	if err != nil {
		writeRecordingError(c, err)
		return
	}
	response.Accepted(c, gin.H{"queued": queued})
}

// Replay handles POST /api/v1/recording/replay/:id, feeding a stored track into the session
func (h *RecordingHandler) Replay(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	_, track, err := h.trackService.Load(id)
	if err != nil {
		writeTrackError(c, err)
		return
	}

	accepted, err := h.recordingService.Replay(c.Request.Context(), track)
	if err != nil {
		writeRecordingError(c, err)
		return
	}
	response.Success(c, gin.H{"offered": track.PointCount(), "accepted": accepted})
}

func writeRecordingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotRecording),
		errors.Is(err, service.ErrAlreadyRecording),
		errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, err.Error())
	default:
		c.Error(err)
		response.InternalError(c, err.Error())
	}
}
