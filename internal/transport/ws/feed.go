package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"grant-store/internal/platform/observability"
)

// FeedOptions configures the websocket upgrade.
type FeedOptions struct {
	CheckOrigin func(r *http.Request) bool
}

// Feed upgrades HTTP requests into event feed subscriptions.
type Feed struct {
	hub      *Hub
	logger   Logger
	upgrader *websocket.Upgrader
}

func NewFeed(hub *Hub, logger Logger, opts FeedOptions) *Feed {
	upgrader := &websocket.Upgrader{CheckOrigin: opts.CheckOrigin}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return &Feed{hub: hub, logger: logger, upgrader: upgrader}
}

// Handle serves one subscriber until it disconnects or the hub closes it.
func (f *Feed) Handle(w http.ResponseWriter, req *http.Request) {
	ctx, spanEnd := observability.StartSpan(req.Context(), "transport.websocket", "feed")
	socket, err := f.upgrader.Upgrade(w, req, nil)
	if err != nil {
		observability.RecordMetric(ctx, "websocket.upgrade.error", 1, nil)
		spanEnd(err)
		// Upgrade has already answered the request
		return
	}
	spanEnd(nil)

	conn := NewConnection(uuid.NewString(), socket)
	f.hub.Register(conn)
	f.logger.Info("[HTTP] event feed subscriber %s connected from %s", conn.ID(), req.RemoteAddr)

	go conn.writeLoop()
	readErr := conn.readLoop()

	f.hub.Unregister(conn.ID())
	conn.Close(nil)
	f.logger.Info("[HTTP] event feed subscriber %s left: %v", conn.ID(), readErr)
}
