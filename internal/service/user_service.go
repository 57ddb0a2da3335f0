package service

import (
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/pkg/validator"

	"gorm.io/gorm"
)

type UserService interface {
	List() ([]model.User, error)
	Get(id string) (*model.User, error)
	Update(id string, patch model.UserPatch) (*model.User, error)
	Delete(id string) error
}

type userService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	db          *gorm.DB
	events      Publisher
}

func NewUserService(userRepo repository.UserRepository, accountRepo repository.AccountRepository, db *gorm.DB, events Publisher) UserService {
	return &userService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		db:          db,
		events:      events,
	}
}

func (s *userService) List() ([]model.User, error) {
	return s.userRepo.FindAll()
}

func (s *userService) Get(id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Update changes the profile and mirrors it into the auth account so the
// next session carries the same metadata.
func (s *userService) Update(id string, patch model.UserPatch) (*model.User, error) {
	if err := validator.Check(patch); err != nil {
		return nil, err
	}

	var before, after model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		existing, err := users.FindByID(id)
		if err != nil {
			return notFound(err)
		}
		before = *existing
		patch.Apply(existing)
		if err := users.Update(existing); err != nil {
			return err
		}
		after = *existing

		accounts := s.accountRepo.WithTx(tx)
		account, err := accounts.FindByID(id)
		if err != nil {
			// profile without an account (imported row); nothing to mirror
			return nil
		}
		account.FullName = existing.FullName
		account.Identification = existing.Identification
		account.Role = existing.Role
		return accounts.Update(account)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(changeEvent(model.TableUsers, model.EventUpdate, after, before))
	return &after, nil
}

// Delete removes the profile and its auth account. Orders keep the
// dangling id.
func (s *userService) Delete(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.WithTx(tx).FindByID(id); err != nil {
			return notFound(err)
		}
		if err := s.userRepo.WithTx(tx).Delete(id); err != nil {
			return err
		}
		return s.accountRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}

	s.events.Publish(changeEvent(model.TableUsers, model.EventDelete, nil, deletedRow{ID: id}))
	return nil
}
