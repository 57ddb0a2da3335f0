package ws

import (
	"encoding/json"
	"sync"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/pkg/logger"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscription struct {
	conn   Conn
	topic  model.Table
	join   bool
	reject string
}

// Hub fans change events out to the websocket clients subscribed to each
// table. Run is the only goroutine writing to connections, so events reach
// every client in the order they were published.
type Hub struct {
	Clients    map[Conn]map[model.Table]bool
	Register   chan Conn
	Unregister chan Conn
	Broadcast  chan model.ChangeEvent
	subs       chan subscription
	quit       chan struct{}
	closeOnce  sync.Once
	mutex      sync.Mutex
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Clients:    make(map[Conn]map[model.Table]bool),
		Register:   make(chan Conn),
		Unregister: make(chan Conn),
		Broadcast:  make(chan model.ChangeEvent, 256),
		subs:       make(chan subscription),
		quit:       make(chan struct{}),
		log:        log,
	}
}

// Publish queues a change event for delivery.
func (h *Hub) Publish(ev model.ChangeEvent) {
	select {
	case h.Broadcast <- ev:
	case <-h.quit:
	}
}

// Join registers conn. It reports false once the hub is closed.
func (h *Hub) Join(conn Conn) bool {
	select {
	case h.Register <- conn:
		return true
	case <-h.quit:
		return false
	}
}

// Leave unregisters and closes conn. After Close it returns at once.
func (h *Hub) Leave(conn Conn) {
	select {
	case h.Unregister <- conn:
	case <-h.quit:
	}
}

// Subscribe adds topic to the connection's subscriptions. The client gets a
// "subscribed" frame once every later event for the topic will reach it.
func (h *Hub) Subscribe(conn Conn, topic model.Table) {
	select {
	case h.subs <- subscription{conn: conn, topic: topic, join: true}:
	case <-h.quit:
	}
}

func (h *Hub) Unsubscribe(conn Conn, topic model.Table) {
	select {
	case h.subs <- subscription{conn: conn, topic: topic}:
	case <-h.quit:
	}
}

// Reject answers a subscribe request with an error frame.
func (h *Hub) Reject(conn Conn, topic model.Table, reason string) {
	select {
	case h.subs <- subscription{conn: conn, topic: topic, reject: reason}:
	case <-h.quit:
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Close stops Run and closes every connection. Calling it again is a no-op.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = make(map[model.Table]bool)
			h.mutex.Unlock()
			h.log.Debug().Msg("realtime client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case sub := <-h.subs:
			h.handleSubscription(sub)

		case ev := <-h.Broadcast:
			h.deliver(ev)

		case <-h.quit:
			h.mutex.Lock()
			for conn := range h.Clients {
				conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) handleSubscription(sub subscription) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	topics, ok := h.Clients[sub.conn]
	if !ok {
		return
	}
	if sub.reject != "" {
		h.write(sub.conn, model.RealtimeMessage{Type: model.MessageError, Topic: sub.topic, Error: sub.reject})
		return
	}
	if !sub.join {
		delete(topics, sub.topic)
		return
	}
	topics[sub.topic] = true
	h.write(sub.conn, model.RealtimeMessage{Type: model.MessageSubscribed, Topic: sub.topic})
}

func (h *Hub) deliver(ev model.ChangeEvent) {
	msg := model.NewChangeMessage(ev)

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, topics := range h.Clients {
		if topics[ev.Table] {
			h.write(conn, msg)
		}
	}
}

// write must be called with the mutex held.
func (h *Hub) write(conn Conn, msg model.RealtimeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encode realtime message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		delete(h.Clients, conn)
	}
}
