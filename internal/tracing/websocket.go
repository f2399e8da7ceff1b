package tracing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prasenjit/go-mockapi/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

// StreamMessage is one frame of the live trace stream
type StreamMessage struct {
	Type  string        `json:"type"` // "trace" or "dropped"
	Trace *models.Trace `json:"trace,omitempty"`
	// Dropped counts traces this subscriber missed because it fell behind
	Dropped int `json:"dropped,omitempty"`
}

// WebSocketHandler streams live mock request traces. The query parameters
// collectionId, endpointId, method, outcome, scenario and status narrow the
// stream the same way they narrow trace listings.
type WebSocketHandler struct {
	service  *Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a trace stream handler
func NewWebSocketHandler(service *Service, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}
}

// StreamFilter builds the trace filter of a stream request
func StreamFilter(r *http.Request) (*models.TraceFilter, error) {
	q := r.URL.Query()
	filter := &models.TraceFilter{
		CollectionID: q.Get("collectionId"),
		EndpointID:   q.Get("endpointId"),
		Method:       q.Get("method"),
		Outcome:      models.Outcome(q.Get("outcome")),
		Scenario:     q.Get("scenario"),
	}

	switch filter.Outcome {
	case "", models.OutcomePassed, models.OutcomeFailed, models.OutcomeInjected, models.OutcomeError:
	default:
		return nil, fmt.Errorf("unknown outcome %q", filter.Outcome)
	}

	if raw := q.Get("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil || status < 100 || status > 599 {
			return nil, fmt.Errorf("invalid status %q", raw)
		}
		filter.StatusCode = status
	}

	return filter, nil
}

// ServeHTTP upgrades the connection and streams matching traces until the client leaves
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter, err := StreamFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	subID, traceChan := h.service.Subscribe()
	defer h.service.Unsubscribe(subID)

	h.logger.Debug("trace stream opened",
		zap.String("subscriber", subID),
		zap.String("outcome", string(filter.Outcome)),
		zap.String("scenario", filter.Scenario),
	)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reads only detect the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	reported := h.service.Dropped(subID)

	for {
		select {
		case trace, ok := <-traceChan:
			if !ok {
				return
			}

			if dropped := h.service.Dropped(subID); dropped > reported {
				if err := h.send(conn, StreamMessage{Type: "dropped", Dropped: dropped - reported}); err != nil {
					return
				}
				reported = dropped
			}

			if !matches(trace, filter) {
				continue
			}
			if err := h.send(conn, StreamMessage{Type: "trace", Trace: trace}); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal stream message", zap.String("type", msg.Type), zap.Error(err))
		return nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("failed to send stream message", zap.Error(err))
		return err
	}
	return nil
}
