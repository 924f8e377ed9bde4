package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WSHandler streams live leaderboards of shared exams.
type WSHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service *app.ExamService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes the ranked leaderboard of shareId,
// first the current board and then every update, until the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	shareID := r.URL.Query().Get("shareId")
	if shareID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing shareId"})
		return
	}

	updates, cancel, err := h.service.SubscribeLeaderboard(r.Context(), shareID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotFound) {
			status = http.StatusNotFound
		}
		respondJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err, "share_id", shareID)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "error", err, "share_id", shareID)
				// Unblock the reader so the handler can unwind.
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case lb, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: struct{}{}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
