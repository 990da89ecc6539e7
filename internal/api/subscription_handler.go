package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"rentmyparking/internal/auth"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/subscription"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Subscriber interface {
	Subscribe(ctx context.Context, q subscription.Query) (*subscription.Handle, error)
}

// SubscriptionHandler streams snapshots of one live view over a WebSocket.
type SubscriptionHandler struct {
	Manager  Subscriber
	upgrader websocket.Upgrader
}

func NewSubscriptionHandler(manager Subscriber, allowedOrigins []string) *SubscriptionHandler {
	return &SubscriptionHandler{
		Manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func (h *SubscriptionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	kind := subscription.Kind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		writeError(w, r, apperrors.NewHTTPError(http.StatusNotFound, "Unknown subscription kind"))
		return
	}
	accountID, _ := auth.AccountIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	handle, err := h.Manager.Subscribe(ctx, subscription.Query{Kind: kind, AccountID: accountID})
	if err != nil {
		slog.Error("could not open subscription", "kind", kind, "account", accountID, "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer handle.Close()
	slog.Debug("subscription opened", "kind", kind, "account", accountID)

	// The client sends nothing; reading only notices pongs and the close.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-handle.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case snap, ok := <-handle.Updates():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("subscription write failed", "kind", kind, "account", accountID, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
