package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel holds the id and creation timestamp every table row carries.
// Ids are opaque strings to clients; the server fills them with UUIDs.
type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate generates the UUID unless the caller already assigned one
// (users rows reuse the id of their auth account).
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	return
}

// RowID returns the row identifier.
func (base BaseModel) RowID() string {
	return base.ID
}
