package channel

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/angelmondragon/storebridge/internal/bridge"
	"github.com/angelmondragon/storebridge/pkg/config"
	"github.com/angelmondragon/storebridge/pkg/logger"
	"github.com/angelmondragon/storebridge/pkg/types"
)

// Hub upgrades method-channel connections and fans pushed events out to
// every connected session. It is the bridge's event sink.
type Hub struct {
	cfg      config.ChannelConfig
	logg     *logger.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewHub(cfg config.ChannelConfig, logg *logger.Logger) *Hub {
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "channel"})
	}
	h := &Hub{
		cfg:      cfg,
		logg:     logg,
		sessions: map[*Session]struct{}{},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferKB * 1024,
		WriteBufferSize: cfg.WriteBufferKB * 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Handler serves one method-channel connection per request.
func (h *Hub) Handler(dispatcher Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "channel upgrade failed")
			return
		}

		session := newSession(uuid.NewString(), conn, dispatcher, h.logg, h.cfg.EventQueueSize)
		h.add(session)
		defer h.remove(session)

		h.logg.Info(h.logg.WithClientID(ctx, session.id), "channel session opened")
		session.run(ctx)
		h.logg.Info(h.logg.WithClientID(ctx, session.id), "channel session closed")
	}
}

// PushTransactionUpdate implements bridge.EventSink. Sessions that cannot
// keep up lose the event; the update listener never blocks here.
func (h *Hub) PushTransactionUpdate(record map[string]any) {
	event := types.Event{Method: bridge.EventTransactionUpdate, Args: record}

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.Unlock()

	for _, session := range sessions {
		session.enqueue(context.Background(), event)
	}
}

// Close tears down every live session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.sessions = map[*Session]struct{}{}
	h.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
}

func (h *Hub) add(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[session] = struct{}{}
}

func (h *Hub) remove(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, session)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Native hosts send no Origin header.
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}
