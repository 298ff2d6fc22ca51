package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/qrscan/decode"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketScanRequest is a scan request sent as a text frame. Binary frames
// are treated as raw encoded image data with no options.
type WebSocketScanRequest struct {
	Image  []byte `json:"image"`
	Region string `json:"region,omitempty"`
}

// WebSocketScanResponse is a scan result sent back to the client.
type WebSocketScanResponse struct {
	Type         string `json:"type"`
	Status       string `json:"status"` // "completed", "not_found", "error"
	Payload      string `json:"payload,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ProcessingMs int64  `json:"processing_ms"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// scanWebSocketHandler handles WebSocket connections for streaming scans.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrading connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	// Set read deadline to prevent hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Send ping messages to keep the connection alive
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.TextMessage:
			s.handleWebSocketMessage(conn, data)
		case websocket.BinaryMessage:
			s.processWebSocketScan(conn, WebSocketScanRequest{Image: data}, newRequestID())
		}
	}
}

// handleWebSocketMessage processes a text-frame scan request.
func (s *Server) handleWebSocketMessage(conn *websocket.Conn, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	s.processWebSocketScan(conn, req, newRequestID())
}

// processWebSocketScan decodes one frame and reports the outcome.
func (s *Server) processWebSocketScan(conn *websocket.Conn, req WebSocketScanRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}

	roi, err := parseRegion(req.Region)
	if err != nil {
		s.sendWebSocketError(conn, "invalid_request", err.Error())
		return
	}

	start := time.Now()
	payload, err := s.scan(context.Background(), req.Image, roi)
	elapsed := time.Since(start)
	scanProcessingDuration.WithLabelValues("websocket").Observe(elapsed.Seconds())

	switch {
	case err == nil:
		scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:         "scan_response",
			Status:       "completed",
			Payload:      payload,
			RequestID:    requestID,
			ProcessingMs: elapsed.Milliseconds(),
		})
	case errors.Is(err, decode.ErrNotFound):
		// No code in the frame is an expected streaming outcome, not an error.
		scanRequestsTotal.WithLabelValues("websocket", "not_found").Inc()
		s.sendWebSocketResponse(conn, WebSocketScanResponse{
			Type:         "scan_response",
			Status:       "not_found",
			RequestID:    requestID,
			ProcessingMs: elapsed.Milliseconds(),
		})
	default:
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Scan failed: %v", err))
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("marshaling WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("sending WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}

func newRequestID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
