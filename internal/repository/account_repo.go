package repository

import (
	"go-dispatch-ws/internal/model"

	"gorm.io/gorm"
)

type AccountRepository interface {
	WithTx(tx *gorm.DB) AccountRepository
	Create(account *model.Account) error
	FindByEmail(email string) (*model.Account, error)
	FindByID(id string) (*model.Account, error)
	Update(account *model.Account) error
	UpdatePassword(id string, hashedPassword string) error
	UpdateTokenVersion(id string, version string) error
	Delete(id string) error
}

type accountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db}
}

func (r *accountRepo) WithTx(tx *gorm.DB) AccountRepository {
	return &accountRepo{tx}
}

func (r *accountRepo) Create(account *model.Account) error {
	return r.db.Create(account).Error
}

func (r *accountRepo) FindByEmail(email string) (*model.Account, error) {
	var account model.Account
	if err := r.db.Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) FindByID(id string) (*model.Account, error) {
	var account model.Account
	if err := r.db.First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepo) Update(account *model.Account) error {
	return r.db.Save(account).Error
}

func (r *accountRepo) UpdatePassword(id string, hashedPassword string) error {
	return r.db.Model(&model.Account{}).Where("id = ?", id).Update("password", hashedPassword).Error
}

func (r *accountRepo) UpdateTokenVersion(id string, version string) error {
	return r.db.Model(&model.Account{}).Where("id = ?", id).Update("token_version", version).Error
}

func (r *accountRepo) Delete(id string) error {
	return r.db.Delete(&model.Account{}, "id = ?", id).Error
}
