package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/service"
	"github.com/daveeeeeehike/HikingUtility/internal/stream"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamHandler upgrades clients to a websocket receiving live recording events
type StreamHandler struct {
	hub              *stream.Hub
	recordingService *service.RecordingService
	upgrader         websocket.Upgrader
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *stream.Hub, recordingService *service.RecordingService) *StreamHandler {
	return &StreamHandler{
		hub:              hub,
		recordingService: recordingService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/v1/recording/stream. The first message is the
// current state; after that every event published to the hub follows.
func (h *StreamHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	defer conn.Close()

	client := h.hub.Register()
	defer h.hub.Unregister(client)

	status := h.recordingService.Status()
	hello := models.StreamEvent{
		Type:      models.EventState,
		SessionID: status.SessionID,
		State:     status.State,
		Stats:     &status.Stats,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[Stream] Client closed: %v", err)
			}
			break
		}
	}

	h.hub.Unregister(client)
	<-done
}
