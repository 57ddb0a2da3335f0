package model

import "encoding/json"

type Table string

const (
	TableProducts Table = "products"
	TableOrders   Table = "orders"
	TableUsers    Table = "users"
)

// Tables lists every table exposed through the table API and the change feed.
var Tables = []Table{TableProducts, TableOrders, TableUsers}

func (t Table) Valid() bool {
	switch t {
	case TableProducts, TableOrders, TableUsers:
		return true
	}
	return false
}

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a row-level change notification for one table. New is set
// for inserts and updates, Old for updates and deletes.
type ChangeEvent struct {
	Table     Table           `json:"table"`
	EventType EventType       `json:"eventType"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// Realtime message types exchanged over the change feed websocket.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageSubscribed  = "subscribed"
	MessageChange      = "change"
	MessageError       = "error"
)

// RealtimeMessage is the frame sent in both directions on the change feed.
type RealtimeMessage struct {
	Type      string          `json:"type"`
	Topic     Table           `json:"topic"`
	EventType EventType       `json:"eventType,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (m RealtimeMessage) Event() ChangeEvent {
	return ChangeEvent{Table: m.Topic, EventType: m.EventType, New: m.New, Old: m.Old}
}

// NewChangeMessage wraps a change event for delivery to subscribers.
func NewChangeMessage(ev ChangeEvent) RealtimeMessage {
	return RealtimeMessage{
		Type:      MessageChange,
		Topic:     ev.Table,
		EventType: ev.EventType,
		New:       ev.New,
		Old:       ev.Old,
	}
}
