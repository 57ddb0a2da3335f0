package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/remote"
)

func TestCreateProductThenEcho(t *testing.T) {
	s, f := newSynced(t)
	f.replies["insert products"] = product("p1", 10)

	created, err := s.CreateProduct(context.Background(), model.Product{ProductName: "Cement", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)
	assert.Contains(t, f.lastCall().Body, `"product_name":"Cement"`)

	// the change feed echoes the same insert
	f.emit(model.TableProducts, model.EventInsert, product("p1", 10), nil)
	assert.Equal(t, []string{"p1"}, ids(s.Products()))
}

func TestWriteErrorLeavesStateAlone(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 10), nil)
	f.errs["update products"] = errors.New("constraint violation")
	f.errs["delete products"] = errors.New("constraint violation")

	qty := 4
	_, err := s.UpdateProduct(context.Background(), "p1", model.ProductPatch{Quantity: &qty})
	assert.Error(t, err)
	assert.Error(t, s.DeleteProduct(context.Background(), "p1"))
	assert.Equal(t, 10, s.Products()[0].Quantity)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 10), nil)

	qty := 4
	f.replies["update products"] = product("p1", 4)
	updated, err := s.UpdateProduct(context.Background(), "p1", model.ProductPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, call{Op: "update", Table: model.TableProducts, ID: "p1", Body: `{"quantity":4}`}, f.lastCall())
	assert.Equal(t, 4, s.Products()[0].Quantity)

	require.NoError(t, s.DeleteProduct(context.Background(), "p1"))
	assert.Empty(t, s.Products())
}

func TestPlaceOrderAppliesOrderAndStock(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 10), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p2", 3), nil)

	items := []model.OrderItem{{ProductID: "p1", Quantity: 4}}
	f.replies["rpc place_order"] = model.PlaceOrderResult{
		Order: model.Order{
			BaseModel:   model.BaseModel{ID: "o1"},
			Status:      model.OrderPending,
			Contractor:  "ACME",
			Responsible: "a1",
			Products:    items,
		},
		Products: []model.Product{product("p1", 6)},
	}

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	order, err := s.PlaceOrder(context.Background(), "ACME", items)
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.JSONEq(t, `{"contractor":"ACME","products":[{"id":"p1","quantity":4}]}`, f.lastCall().Body)

	assert.Equal(t, []string{"o1"}, ids(s.Orders()))
	p, ok := FindProduct(s.Products(), "p1")
	require.True(t, ok)
	assert.Equal(t, 6, p.Quantity)
	assert.Len(t, changes, 2)
}

func TestPlaceOrderRejected(t *testing.T) {
	s, f := newSynced(t)
	f.errs["rpc place_order"] = errors.New("insufficient stock remaining")

	_, err := s.PlaceOrder(context.Background(), "ACME", []model.OrderItem{{ProductID: "p1", Quantity: 99}})
	assert.ErrorContains(t, err, "insufficient stock")
	assert.Empty(t, s.Orders())
}

func TestCompleteOrder(t *testing.T) {
	s, f := newSynced(t)
	pending := model.Order{BaseModel: model.BaseModel{ID: "o1"}, Status: model.OrderPending}
	f.emit(model.TableOrders, model.EventInsert, pending, nil)

	_, err := s.CompleteOrder(context.Background(), "o1")
	assert.ErrorIs(t, err, remote.ErrNoSession)

	s.SetActiveUser(model.ActiveUser{Sub: "d1", Role: model.RoleUser})
	done := pending
	done.Status = model.OrderCompleted
	done.Dispatcher = "d1"
	f.replies["update orders"] = done

	got, err := s.CompleteOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.Dispatcher)
	assert.JSONEq(t, `{"status":"completed","dispatcher":"d1"}`, f.lastCall().Body)
	assert.Equal(t, model.OrderCompleted, s.Orders()[0].Status)

	require.NoError(t, s.DeleteOrder(context.Background(), "o1"))
	assert.Empty(t, s.Orders())
}

func TestCreateAndDeleteUser(t *testing.T) {
	s, f := newSynced(t)
	profile := model.User{BaseModel: model.BaseModel{ID: "u2"}, FullName: "Dana Diaz", Identification: "123", Role: model.RoleUser}
	f.replies["signup users"] = model.SignUpResponse{Profile: profile}

	got, err := s.CreateUser(context.Background(), model.SignUpRequest{
		Email:    "dana@example.com",
		Password: "secret1",
		Data:     model.UserMetadata{Role: model.RoleUser, FullName: "Dana Diaz", Identification: "123"},
	})
	require.NoError(t, err)
	assert.Equal(t, profile, got)
	assert.Equal(t, []string{"u2"}, ids(s.Users()))

	require.NoError(t, s.DeleteUser(context.Background(), "u2"))
	assert.Empty(t, s.Users())
	assert.Equal(t, call{Op: "delete", Table: model.TableUsers, ID: "u2", Body: "null"}, f.lastCall())
}

func TestUploadPhotoName(t *testing.T) {
	clk := newClock()
	s, f := newSynced(t, WithClock(clk.Now))

	url, err := s.UploadPhoto(context.Background(), "cement.png", strings.NewReader("img"))
	require.NoError(t, err)

	name := "1709283600000_cement.png"
	assert.Equal(t, "http://cdn/products_photos/"+name, url)
	assert.Equal(t, "img", f.uploads["products_photos/"+name])
}

func TestWritesWithoutRemote(t *testing.T) {
	s := New()
	_, err := s.CreateProduct(context.Background(), model.Product{})
	assert.ErrorIs(t, err, ErrNoRemote)
	_, err = s.CreateUser(context.Background(), model.SignUpRequest{})
	assert.ErrorIs(t, err, ErrNoRemote)
	_, err = s.UploadPhoto(context.Background(), "a.png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRemote)
}
