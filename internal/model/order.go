package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"slices"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

// OrderItem is the point-in-time quantity of a product taken when the order
// was created. It does not follow later changes to the product's stock.
type OrderItem struct {
	ProductID string `json:"id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// OrderItems is stored as a jsonb column.
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*items = OrderItems{}
		return nil
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	default:
		return errors.New("order items: unsupported column type")
	}
}

type Order struct {
	BaseModel
	Status      OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Contractor  string      `gorm:"type:varchar(255);not null" json:"contractor" validate:"required"`
	Dispatcher  string      `gorm:"type:varchar(255);default:''" json:"dispatcher"`
	Responsible string      `gorm:"type:varchar(255);not null" json:"responsible"`
	Products    OrderItems  `gorm:"type:jsonb;not null" json:"products" validate:"min=1,dive"`
}

func (o Order) IsPending() bool {
	return o.Status == OrderPending
}

// OrderPatch carries a partial order update. Nil fields are left as-is.
// Clone returns a copy of o that shares no item memory with it.
func (o Order) Clone() Order {
	o.Products = slices.Clone(o.Products)
	return o
}

type OrderPatch struct {
	Status     *OrderStatus `json:"status,omitempty" validate:"omitempty,oneof=pending completed"`
	Contractor *string      `json:"contractor,omitempty" validate:"omitempty,min=1"`
	Dispatcher *string      `json:"dispatcher,omitempty"`
}

func (patch OrderPatch) Apply(o *Order) {
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Contractor != nil {
		o.Contractor = *patch.Contractor
	}
	if patch.Dispatcher != nil {
		o.Dispatcher = *patch.Dispatcher
	}
}

// PlaceOrderRequest is the argument of the place_order RPC.
type PlaceOrderRequest struct {
	Contractor string     `json:"contractor" validate:"required"`
	Products   OrderItems `json:"products" validate:"min=1,dive"`
}

// PlaceOrderResult returns the stored order and every product whose stock
// was decremented by it.
type PlaceOrderResult struct {
	Order    Order     `json:"order"`
	Products []Product `json:"products"`
}
