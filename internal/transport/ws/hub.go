package ws

import (
	"sync"
	"time"

	"grant-store/internal/domain/eventbus"
	"grant-store/internal/platform/codec"
)

// Logger is the printf-style sink of the feed.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

// Message is the frame every subscriber receives.
type Message struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Hub tracks feed connections and fans grant events out to them.
type Hub struct {
	logger      Logger
	codec       codec.Codec[Message]
	connections sync.Map // map[string]*Connection
}

func NewHub(logger Logger) *Hub {
	return &Hub{logger: logger, codec: codec.JSON[Message]()}
}

func (h *Hub) Register(conn *Connection) {
	if conn == nil {
		return
	}
	h.connections.Store(conn.ID(), conn)
}

func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.connections.Delete(id)
}

// Broadcast queues msg on every connection. Connections that cannot keep up are closed.
func (h *Hub) Broadcast(msg Message) {
	payload, err := h.codec.Marshal(msg)
	if err != nil {
		h.logger.Warn("[HTTP] event feed could not encode %s: %v", msg.Topic, err)
		return
	}
	h.connections.Range(func(key, value any) bool {
		conn := value.(*Connection)
		if !conn.Enqueue(payload) {
			h.logger.Warn("[HTTP] dropping event feed subscriber %s", conn.ID())
			conn.Close(ErrSlowConsumer)
			h.connections.Delete(key)
		}
		return true
	})
}

// CloseAll terminates every connection.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrFeedShutdown
	}
	h.connections.Range(func(key, value any) bool {
		value.(*Connection).Close(reason)
		h.connections.Delete(key)
		return true
	})
}

// Count exposes the number of active subscribers.
func (h *Hub) Count() int {
	n := 0
	h.connections.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Subscribe relays every grant topic published on bus to the hub.
func (h *Hub) Subscribe(bus eventbus.Subscriber) error {
	subscriptions := []struct {
		topic string
		fn    interface{}
	}{
		{eventbus.EventGrantStored, func(d eventbus.GrantEventData) {
			h.Broadcast(Message{Topic: eventbus.EventGrantStored, Data: d, At: d.At})
		}},
		{eventbus.EventGrantRemoved, func(d eventbus.GrantEventData) {
			h.Broadcast(Message{Topic: eventbus.EventGrantRemoved, Data: d, At: d.At})
		}},
		{eventbus.EventGrantsRemoved, func(d eventbus.FilterEventData) {
			h.Broadcast(Message{Topic: eventbus.EventGrantsRemoved, Data: d, At: d.At})
		}},
		{eventbus.EventGrantsPruned, func(d eventbus.FilterEventData) {
			h.Broadcast(Message{Topic: eventbus.EventGrantsPruned, Data: d, At: d.At})
		}},
		{eventbus.EventGrantStoreError, func(d eventbus.ErrorEventData) {
			h.Broadcast(Message{Topic: eventbus.EventGrantStoreError, Data: d, At: time.Now().UTC()})
		}},
	}
	for _, s := range subscriptions {
		if err := bus.Subscribe(s.topic, s.fn); err != nil {
			return err
		}
	}
	return nil
}
