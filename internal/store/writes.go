package store

import (
	"context"
	"fmt"
	"io"

	"go-dispatch-ws/internal/model"
)

// PhotoBucket is the storage bucket product photos are uploaded to.
const PhotoBucket = "products_photos"

// PlaceOrderRPC is the remote function that creates an order and takes its
// products out of stock in one transaction.
const PlaceOrderRPC = "place_order"

// Writes go to the remote service first. The returned row is then applied
// locally as an upsert, so the echo from the change feed is harmless.

func upsert[T entity](s *Store, table model.Table, col *collection[T], row T) {
	s.mu.Lock()
	col.insert(row, s.now(), s.orphanTTL)
	s.mu.Unlock()
	s.changed(Change{Table: table, Kind: ChangeUpdate})
}

func drop[T entity](s *Store, table model.Table, col *collection[T], id string) {
	s.mu.Lock()
	removed := col.remove(id)
	s.mu.Unlock()
	if removed {
		s.changed(Change{Table: table, Kind: ChangeDelete})
	}
}

func (s *Store) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if s.remote == nil {
		return model.Product{}, ErrNoRemote
	}
	var created model.Product
	if err := s.remote.Insert(ctx, model.TableProducts, p, &created); err != nil {
		return model.Product{}, err
	}
	upsert(s, model.TableProducts, &s.products, created)
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch model.ProductPatch) (model.Product, error) {
	if s.remote == nil {
		return model.Product{}, ErrNoRemote
	}
	var updated model.Product
	if err := s.remote.Update(ctx, model.TableProducts, id, patch, &updated); err != nil {
		return model.Product{}, err
	}
	upsert(s, model.TableProducts, &s.products, updated)
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	if err := s.remote.Delete(ctx, model.TableProducts, id); err != nil {
		return err
	}
	drop(s, model.TableProducts, &s.products, id)
	return nil
}

// PlaceOrder creates a pending order for contractor. Stock is decremented
// by the backend in the same transaction; the updated products are applied
// here as well.
func (s *Store) PlaceOrder(ctx context.Context, contractor string, items []model.OrderItem) (model.Order, error) {
	if s.remote == nil {
		return model.Order{}, ErrNoRemote
	}
	req := model.PlaceOrderRequest{Contractor: contractor, Products: items}
	var result model.PlaceOrderResult
	if err := s.remote.RPC(ctx, PlaceOrderRPC, req, &result); err != nil {
		return model.Order{}, err
	}

	s.mu.Lock()
	now := s.now()
	for _, p := range result.Products {
		s.products.insert(p, now, s.orphanTTL)
	}
	s.orders.insert(result.Order, now, s.orphanTTL)
	s.mu.Unlock()

	changes := []Change{{Table: model.TableOrders, Kind: ChangeInsert}}
	if len(result.Products) > 0 {
		changes = append(changes, Change{Table: model.TableProducts, Kind: ChangeUpdate})
	}
	s.changed(changes...)
	return result.Order, nil
}

// CompleteOrder marks the order completed with the active user as its
// dispatcher.
func (s *Store) CompleteOrder(ctx context.Context, id string) (model.Order, error) {
	if s.remote == nil {
		return model.Order{}, ErrNoRemote
	}
	user, ok := s.ActiveUser()
	if !ok {
		return model.Order{}, ErrNoSession
	}
	status := model.OrderCompleted
	patch := model.OrderPatch{Status: &status, Dispatcher: &user.Sub}

	var updated model.Order
	if err := s.remote.Update(ctx, model.TableOrders, id, patch, &updated); err != nil {
		return model.Order{}, err
	}
	upsert(s, model.TableOrders, &s.orders, updated)
	return updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	if err := s.remote.Delete(ctx, model.TableOrders, id); err != nil {
		return err
	}
	drop(s, model.TableOrders, &s.orders, id)
	return nil
}

// CreateUser signs up a new account. The backend creates the users row in
// the same step.
func (s *Store) CreateUser(ctx context.Context, req model.SignUpRequest) (model.User, error) {
	if s.auth == nil {
		return model.User{}, ErrNoRemote
	}
	resp, err := s.auth.SignUp(ctx, req)
	if err != nil {
		return model.User{}, err
	}
	upsert(s, model.TableUsers, &s.users, resp.Profile)
	return resp.Profile, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	if err := s.remote.Delete(ctx, model.TableUsers, id); err != nil {
		return err
	}
	drop(s, model.TableUsers, &s.users, id)
	return nil
}

// UploadPhoto stores a product photo under a timestamped name and returns
// its public URL.
func (s *Store) UploadPhoto(ctx context.Context, name string, r io.Reader) (string, error) {
	if s.storage == nil {
		return "", ErrNoRemote
	}
	object := fmt.Sprintf("%d_%s", s.now().UnixMilli(), name)
	return s.storage.Upload(ctx, PhotoBucket, object, r)
}
