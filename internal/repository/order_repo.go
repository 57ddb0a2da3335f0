package repository

import (
	"go-dispatch-ws/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	FindAll() ([]model.Order, error)
	FindByID(id string) (*model.Order, error)
	Update(order *model.Order) error
	Delete(id string) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepo{tx}
}

func (r *orderRepo) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepo) FindAll() ([]model.Order, error) {
	orders := []model.Order{}
	err := r.db.Order("created_at ASC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) FindByID(id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) Update(order *model.Order) error {
	return r.db.Save(order).Error
}

func (r *orderRepo) Delete(id string) error {
	return r.db.Delete(&model.Order{}, "id = ?", id).Error
}
