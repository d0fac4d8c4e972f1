package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"nhooyr.io/websocket"
)

const liveWriteWait = 10 * time.Second

// HandleLive handles GET /api/dashboard/live.
// It upgrades to a WebSocket, sends the dashboard for the requested filter
// immediately, and sends it again whenever records change or insights are
// refreshed. Signals arriving while a client is still being written to are
// coalesced.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	filter, maxInsights, err := h.parseRequest(r)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept live dashboard connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected shutdown")

	signals, unsubscribe := h.dashboard.Notifier().Subscribe()
	defer unsubscribe()

	// The client never sends data; CloseRead handles control frames and
	// cancels ctx when the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Int("subscribers", h.dashboard.Notifier().Count()).Msg("Live dashboard client connected")

	if err := h.push(ctx, conn, filter, maxInsights); err != nil {
		h.log.Debug().Err(err).Msg("Live dashboard initial push failed")
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("Live dashboard client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-signals:
			if err := h.push(ctx, conn, filter, maxInsights); err != nil {
				h.log.Debug().Err(err).Msg("Live dashboard push failed")
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, liveWriteWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Live dashboard ping failed")
				return
			}
		}
	}
}

// push builds the dashboard and writes it as one text message. Build errors
// are sent to the client as an error message rather than closing the socket.
func (h *Handler) push(ctx context.Context, conn *websocket.Conn, filter dashboard.Filter, maxInsights int) error {
	var message map[string]interface{}

	result, err := h.dashboard.Current(ctx, filter, maxInsights)
	if err != nil {
		_, message = errorBody(err)
		message["type"] = "error"
		h.log.Error().Err(err).Msg("Failed to build live dashboard")
	} else {
		message = envelope(result)
		message["type"] = "dashboard"
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal live dashboard message: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, liveWriteWait)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write live dashboard message: %w", err)
	}
	return nil
}
