package service

import (
	"encoding/json"

	"go-dispatch-ws/internal/model"
)

// Publisher receives every committed row change. The websocket hub
// implements it.
type Publisher interface {
	Publish(ev model.ChangeEvent)
}

// Actor is the authenticated caller of a write.
type Actor struct {
	ID    string
	Email string
	Role  model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func changeEvent(table model.Table, kind model.EventType, newRow, oldRow interface{}) model.ChangeEvent {
	ev := model.ChangeEvent{Table: table, EventType: kind}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}
	return ev
}

// deletedRow is the old-row payload of DELETE events: the primary key only.
type deletedRow struct {
	ID string `json:"id"`
}
