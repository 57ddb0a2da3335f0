package service

import (
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/pkg/validator"

	"gorm.io/gorm"
)

type ProductService interface {
	List() ([]model.Product, error)
	Get(id string) (*model.Product, error)
	Create(req *model.Product) (*model.Product, error)
	Update(id string, patch model.ProductPatch) (*model.Product, error)
	Delete(id string) error
}

type productService struct {
	productRepo repository.ProductRepository
	db          *gorm.DB
	events      Publisher
}

func NewProductService(pRepo repository.ProductRepository, db *gorm.DB, events Publisher) ProductService {
	return &productService{productRepo: pRepo, db: db, events: events}
}

func (s *productService) List() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *productService) Get(id string) (*model.Product, error) {
	p, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *productService) Create(req *model.Product) (*model.Product, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	// ids and timestamps belong to the server
	req.ID = ""
	req.CreatedAt = time.Time{}
	if err := s.productRepo.Create(req); err != nil {
		return nil, err
	}

	s.events.Publish(changeEvent(model.TableProducts, model.EventInsert, req, nil))
	return req, nil
}

func (s *productService) Update(id string, patch model.ProductPatch) (*model.Product, error) {
	if err := validator.Check(patch); err != nil {
		return nil, err
	}

	var before, after model.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.productRepo.WithTx(tx)
		existing, err := repo.FindByIDForUpdate(id)
		if err != nil {
			return notFound(err)
		}
		before = *existing

		patch.Apply(existing)
		if err := repo.Update(existing); err != nil {
			return err
		}
		after = *existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(changeEvent(model.TableProducts, model.EventUpdate, after, before))
	return &after, nil
}

func (s *productService) Delete(id string) error {
	if _, err := s.productRepo.FindByID(id); err != nil {
		return notFound(err)
	}
	if err := s.productRepo.Delete(id); err != nil {
		return err
	}

	s.events.Publish(changeEvent(model.TableProducts, model.EventDelete, nil, deletedRow{ID: id}))
	return nil
}
