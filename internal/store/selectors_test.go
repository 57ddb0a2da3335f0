package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-dispatch-ws/internal/model"
)

func order(id string, status model.OrderStatus, created time.Time) model.Order {
	return model.Order{BaseModel: model.BaseModel{ID: id, CreatedAt: created}, Status: status}
}

func TestFilterOrders(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		order("o1", model.OrderPending, t0),
		order("o2", model.OrderCompleted, t0),
		order("o3", model.OrderPending, t0),
	}
	assert.Equal(t, []string{"o1", "o2", "o3"}, ids(FilterOrders(orders, FilterAll)))
	assert.Equal(t, []string{"o1", "o3"}, ids(FilterOrders(orders, FilterPending)))
	assert.Equal(t, []string{"o2"}, ids(FilterOrders(orders, FilterCompleted)))
}

func TestSortOrdersByCreated(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	orders := []model.Order{
		order("b", model.OrderPending, t0.Add(time.Hour)),
		order("a", model.OrderPending, t0),
		order("c", model.OrderPending, t0.Add(2*time.Hour)),
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids(SortOrdersByCreated(orders, false)))
	assert.Equal(t, []string{"c", "b", "a"}, ids(SortOrdersByCreated(orders, true)))
	assert.Equal(t, []string{"b", "a", "c"}, ids(orders), "input is not reordered")
}

func TestSearchProducts(t *testing.T) {
	products := []model.Product{
		{BaseModel: model.BaseModel{ID: "1"}, ProductName: "Cement Bag"},
		{BaseModel: model.BaseModel{ID: "2"}, ProductName: "Sand"},
		{BaseModel: model.BaseModel{ID: "3"}, ProductName: "white cement"},
	}
	assert.Equal(t, []string{"1", "3"}, ids(SearchProducts(products, "CEMENT")))
	assert.Len(t, SearchProducts(products, "  "), 3)
	assert.Empty(t, SearchProducts(products, "gravel"))
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		page, size int
		want       []int
		pages      int
	}{
		{1, 2, []int{1, 2}, 3},
		{3, 2, []int{5}, 3},
		{4, 2, []int{}, 3},
		{0, 2, []int{}, 3},
		{1, 10, []int{1, 2, 3, 4, 5}, 1},
		{1, 0, nil, 0},
	}
	for _, tt := range tests {
		got, pages := Page(items, tt.page, tt.size)
		assert.Equal(t, tt.want, got, "page %d size %d", tt.page, tt.size)
		assert.Equal(t, tt.pages, pages)
	}

	got, pages := Page([]int{}, 1, 5)
	assert.Empty(t, got)
	assert.Equal(t, 0, pages)
}

func TestUserNameAndResolve(t *testing.T) {
	users := []model.User{{BaseModel: model.BaseModel{ID: "u1"}, FullName: "Dana"}}
	assert.Equal(t, "Dana", UserName(users, "u1"))
	assert.Equal(t, UnknownUser, UserName(users, "gone"))

	products := []model.Product{{BaseModel: model.BaseModel{ID: "p1"}, ProductName: "Cement", ProductMeasurement: "bag", Quantity: 1}}
	o := model.Order{Products: model.OrderItems{{ProductID: "p1", Quantity: 3}, {ProductID: "p9", Quantity: 1}}}
	items := ResolveOrderItems(o, products)
	assert.Equal(t, []ResolvedItem{
		{OrderItem: model.OrderItem{ProductID: "p1", Quantity: 3}, ProductName: "Cement", ProductMeasurement: "bag", Found: true},
		{OrderItem: model.OrderItem{ProductID: "p9", Quantity: 1}},
	}, items)

	_, ok := FindOrder(nil, "o1")
	assert.False(t, ok)
}
