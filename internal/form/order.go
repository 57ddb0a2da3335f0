package form

import (
	"go-dispatch-ws/internal/model"
)

// OrderForm collects a new order. Products are added with quantity 0 and
// must be raised before the form is ready.
type OrderForm struct {
	Contractor  string
	Responsible string
	Items       []model.OrderItem
}

// NewOrderForm starts an order with the active user as responsible.
func NewOrderForm(active *model.ActiveUser) *OrderForm {
	f := &OrderForm{}
	if active != nil {
		f.Responsible = active.Sub
	}
	return f
}

func (f *OrderForm) index(id string) int {
	for i, item := range f.Items {
		if item.ProductID == id {
			return i
		}
	}
	return -1
}

func (f *OrderForm) Selected(id string) bool {
	return f.index(id) >= 0
}

// Toggle adds the product with quantity 0, or removes it if already added.
func (f *OrderForm) Toggle(id string) {
	if f.Selected(id) {
		f.Remove(id)
		return
	}
	f.Items = append(f.Items, model.OrderItem{ProductID: id})
}

func (f *OrderForm) Remove(id string) {
	if i := f.index(id); i >= 0 {
		f.Items = append(f.Items[:i], f.Items[i+1:]...)
	}
}

// SetQuantity changes an added product's quantity. Values below zero or
// above the product's stock are refused.
func (f *OrderForm) SetQuantity(products []model.Product, id string, qty int) bool {
	i := f.index(id)
	if i < 0 || qty < 0 {
		return false
	}
	stock, ok := stockOf(products, id)
	if !ok || qty > stock {
		return false
	}
	f.Items[i].Quantity = qty
	return true
}

func stockOf(products []model.Product, id string) (int, bool) {
	for _, p := range products {
		if p.ID == id {
			return p.Quantity, true
		}
	}
	return 0, false
}

// Validate checks the form against the current stock.
func (f *OrderForm) Validate(products []model.Product) Errors {
	errs := Errors{"contractor": "", "responsible": "", "products": ""}
	if f.Contractor == "" {
		errs["contractor"] = "Contractor is required."
	}
	if f.Responsible == "" {
		errs["responsible"] = "Sign in to place orders."
	}
	if len(f.Items) == 0 {
		errs["products"] = "Add at least one product."
		return errs
	}
	for _, item := range f.Items {
		if item.Quantity == 0 {
			errs["products"] = "Every product needs a quantity greater than 0."
			return errs
		}
	}
	for _, item := range f.Items {
		stock, ok := stockOf(products, item.ProductID)
		if !ok {
			errs["products"] = "A selected product no longer exists."
			return errs
		}
		if item.Quantity > stock {
			errs["products"] = "A quantity exceeds the available stock."
			return errs
		}
	}
	return errs
}

func (f *OrderForm) Ready(products []model.Product) bool {
	return f.Validate(products).Valid()
}

func (f *OrderForm) Request() model.PlaceOrderRequest {
	items := make(model.OrderItems, len(f.Items))
	copy(items, f.Items)
	return model.PlaceOrderRequest{Contractor: f.Contractor, Products: items}
}
