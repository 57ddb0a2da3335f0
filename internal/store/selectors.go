package store

import (
	"sort"
	"strings"

	"go-dispatch-ws/internal/model"
)

// UnknownUser is shown for ids that no longer resolve to a user.
const UnknownUser = "unknown"

type OrderFilter string

const (
	FilterAll       OrderFilter = "all"
	FilterPending   OrderFilter = "pending"
	FilterCompleted OrderFilter = "completed"
)

func FilterOrders(orders []model.Order, f OrderFilter) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		switch f {
		case FilterPending:
			if o.Status != model.OrderPending {
				continue
			}
		case FilterCompleted:
			if o.Status != model.OrderCompleted {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

// SearchProducts matches query against product names, ignoring case.
func SearchProducts(products []model.Product, query string) []model.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if q == "" || strings.Contains(strings.ToLower(p.ProductName), q) {
			out = append(out, p)
		}
	}
	return out
}

// SortOrdersByCreated returns a copy sorted oldest first, or newest first
// when desc is set. Ties keep their collection order.
func SortOrdersByCreated(orders []model.Order, desc bool) []model.Order {
	out := append([]model.Order(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Page returns the 1-based page of items and the total page count. Out of
// range pages are empty.
func Page[T any](items []T, page, size int) ([]T, int) {
	if size <= 0 {
		return nil, 0
	}
	pages := (len(items) + size - 1) / size
	if page < 1 || page > pages {
		return []T{}, pages
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end], pages
}

func FindProduct(products []model.Product, id string) (model.Product, bool) {
	return find(products, id)
}

func FindOrder(orders []model.Order, id string) (model.Order, bool) {
	return find(orders, id)
}

func FindUser(users []model.User, id string) (model.User, bool) {
	return find(users, id)
}

func find[T entity](rows []T, id string) (T, bool) {
	for _, row := range rows {
		if row.RowID() == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// UserName resolves a user id to a display name.
func UserName(users []model.User, id string) string {
	if u, ok := FindUser(users, id); ok {
		return u.FullName
	}
	return UnknownUser
}

// ResolvedItem is an order line joined with the product it refers to.
// Found is false when the product has been deleted since.
type ResolvedItem struct {
	model.OrderItem
	ProductName        string
	ProductMeasurement string
	Found              bool
}

func ResolveOrderItems(order model.Order, products []model.Product) []ResolvedItem {
	out := make([]ResolvedItem, len(order.Products))
	for i, item := range order.Products {
		out[i] = ResolvedItem{OrderItem: item}
		if p, ok := FindProduct(products, item.ProductID); ok {
			out[i].ProductName = p.ProductName
			out[i].ProductMeasurement = p.ProductMeasurement
			out[i].Found = true
		}
	}
	return out
}
