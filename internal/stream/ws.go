package stream

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/star/sunclock/internal/metrics"
)

const (
	transportWS = "ws"

	wsWriteWait = 10 * time.Second
	wsReadLimit = 512
)

// HandleWebSocket serves the frame stream over a WebSocket.
// GET /api/v1/ws/frames
//
// Payloads match the SSE stream. Frames from the client are read and
// discarded; the read side only detects close.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip, release, ok := h.admit(w, r, transportWS)
	if !ok {
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Debug("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	metrics.StreamOpened(transportWS)
	startTime := time.Now()
	h.logger.Info("stream connected",
		"connection_id", id,
		"transport", transportWS,
		"remote_ip", ip,
	)

	ticks, unsubscribe := h.source.Subscribe()
	defer func() {
		unsubscribe()
		metrics.StreamClosed(transportWS)
		h.logger.Info("stream disconnected",
			"connection_id", id,
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsReadLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(event string, v any) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(v); err != nil {
			return err
		}
		metrics.IncStreamMessages(transportWS, event)
		return nil
	}

	meta := buildMetadataMessage(id, h.source.Mode(), h.source.Now())
	if err := send(meta.Type, meta); err != nil {
		h.logger.Warn("stream send error (metadata)", "connection_id", id, "error", err)
		return
	}

	pingTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(wsWriteWait))
			return

		case <-closed:
			return

		case tick, ok := <-ticks:
			if !ok {
				return
			}
			frame := buildFrameMessage(tick)
			if err := send(frame.Type, frame); err != nil {
				h.logger.Warn("stream send error", "connection_id", id, "error", err)
				return
			}
			pingTicker.Reset(h.config.KeepaliveInterval)

		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				h.logger.Warn("stream ping error", "connection_id", id, "error", err)
				return
			}
		}
	}
}
