package service

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/pkg/validator"

	"gorm.io/gorm"
)

// Transactor runs fc inside a database transaction, committing when it
// returns nil. *gorm.DB satisfies it.
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type OrderService interface {
	List() ([]model.Order, error)
	Get(id string) (*model.Order, error)
	Update(id string, patch model.OrderPatch, actor Actor) (*model.Order, error)
	Delete(id string) error
	PlaceOrder(req *model.PlaceOrderRequest, actor Actor) (*model.PlaceOrderResult, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	db          Transactor
	events      Publisher
}

func NewOrderService(oRepo repository.OrderRepository, pRepo repository.ProductRepository, db Transactor, events Publisher) OrderService {
	return &orderService{
		orderRepo:   oRepo,
		productRepo: pRepo,
		db:          db,
		events:      events,
	}
}

func (s *orderService) List() ([]model.Order, error) {
	return s.orderRepo.FindAll()
}

func (s *orderService) Get(id string) (*model.Order, error) {
	o, err := s.orderRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// Update applies a partial change. Dispatchers may only complete a pending
// order, and the dispatcher recorded is always the caller.
func (s *orderService) Update(id string, patch model.OrderPatch, actor Actor) (*model.Order, error) {
	if err := validator.Check(patch); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if patch.Contractor != nil || patch.Status == nil || *patch.Status != model.OrderCompleted {
			return nil, ErrForbidden
		}
		patch.Dispatcher = &actor.ID
	}

	var before, after model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.orderRepo.WithTx(tx)
		existing, err := repo.FindByID(id)
		if err != nil {
			return notFound(err)
		}
		if !actor.IsAdmin() && !existing.IsPending() {
			return fmt.Errorf("%w: order already completed", ErrConflict)
		}
		before = *existing

		patch.Apply(existing)
		if existing.Status == model.OrderCompleted && existing.Dispatcher == "" {
			existing.Dispatcher = actor.ID
		}
		if err := repo.Update(existing); err != nil {
			return err
		}
		after = *existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(changeEvent(model.TableOrders, model.EventUpdate, after, before))
	return &after, nil
}

func (s *orderService) Delete(id string) error {
	if _, err := s.orderRepo.FindByID(id); err != nil {
		return notFound(err)
	}
	if err := s.orderRepo.Delete(id); err != nil {
		return err
	}
	s.events.Publish(changeEvent(model.TableOrders, model.EventDelete, nil, deletedRow{ID: id}))
	return nil
}

// PlaceOrder stores a pending order and decrements the stock of every
// product it lists in a single transaction. Either both happen or neither.
func (s *orderService) PlaceOrder(req *model.PlaceOrderRequest, actor Actor) (*model.PlaceOrderResult, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	// Lock rows in a stable order so concurrent orders cannot deadlock.
	ids := make([]string, 0, len(req.Products))
	wanted := make(map[string]int, len(req.Products))
	for _, item := range req.Products {
		if _, dup := wanted[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %s listed twice", ErrInvalidInput, item.ProductID)
		}
		wanted[item.ProductID] = item.Quantity
		ids = append(ids, item.ProductID)
	}
	slices.Sort(ids)

	result := &model.PlaceOrderResult{}
	var before []model.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		products := s.productRepo.WithTx(tx)
		for _, id := range ids {
			product, err := products.FindByIDForUpdate(id)
			if err != nil {
				return fmt.Errorf("product %s: %w", id, notFound(err))
			}
			qty := wanted[id]
			if product.Quantity < qty {
				return fmt.Errorf("%w: %s has %d %s", ErrInsufficientStock, product.ProductName, product.Quantity, product.ProductMeasurement)
			}
			before = append(before, *product)

			product.Quantity -= qty
			if err := products.UpdateQuantity(product.ID, product.Quantity); err != nil {
				return err
			}
			result.Products = append(result.Products, *product)
		}

		order := model.Order{
			Status:      model.OrderPending,
			Contractor:  req.Contractor,
			Responsible: actor.ID,
			Products:    req.Products,
		}
		order.CreatedAt = time.Now()
		if err := s.orderRepo.WithTx(tx).Create(&order); err != nil {
			return err
		}
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, p := range result.Products {
		s.events.Publish(changeEvent(model.TableProducts, model.EventUpdate, p, before[i]))
	}
	s.events.Publish(changeEvent(model.TableOrders, model.EventInsert, result.Order, nil))
	return result, nil
}
