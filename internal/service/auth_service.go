package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/repository"
	"go-dispatch-ws/pkg/jwt"
	"go-dispatch-ws/pkg/validator"
)

type AuthService interface {
	SignIn(req *model.SignInRequest) (*model.Session, error)
	SignUp(req *model.SignUpRequest) (*model.SignUpResponse, error)
	CurrentUser(id string) (*model.SessionUser, error)
	SignOut(id string) error
}

type authService struct {
	accountRepo repository.AccountRepository
	userRepo    repository.UserRepository
	db          *gorm.DB
	signer      *jwt.Signer
	events      Publisher
}

func NewAuthService(accountRepo repository.AccountRepository, userRepo repository.UserRepository, db *gorm.DB, signer *jwt.Signer, events Publisher) AuthService {
	return &authService{
		accountRepo: accountRepo,
		userRepo:    userRepo,
		db:          db,
		signer:      signer,
		events:      events,
	}
}

// SignIn checks the credentials and issues a token. Every sign in rotates
// the token version, so older tokens of the same account stop working.
func (s *authService) SignIn(req *model.SignInRequest) (*model.Session, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindByEmail(strings.ToLower(req.Email))
	if err != nil || !account.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	version := uuid.NewString()
	if err := s.accountRepo.UpdateTokenVersion(account.ID, version); err != nil {
		return nil, errors.New("failed to update session")
	}

	token, err := s.signer.GenerateToken(account.ID, account.Email, string(account.Role), version)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &model.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.signer.TTL().Seconds()),
		User:        account.ToSessionUser(),
	}, nil
}

// SignUp creates the auth account and its users row together.
func (s *authService) SignUp(req *model.SignUpRequest) (*model.SignUpResponse, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if !req.Data.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Data.Role)
	}

	account := model.Account{
		Email:          strings.ToLower(req.Email),
		Role:           req.Data.Role,
		FullName:       req.Data.FullName,
		Identification: req.Data.Identification,
	}
	if err := account.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	var profile model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		accounts := s.accountRepo.WithTx(tx)
		if _, err := accounts.FindByEmail(account.Email); err == nil {
			return ErrEmailExists
		}
		if err := accounts.Create(&account); err != nil {
			return err
		}
		profile = account.Profile()
		profile.CreatedAt = account.CreatedAt
		return s.userRepo.WithTx(tx).Create(&profile)
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(changeEvent(model.TableUsers, model.EventInsert, profile, nil))
	return &model.SignUpResponse{User: account.ToSessionUser(), Profile: profile}, nil
}

func (s *authService) CurrentUser(id string) (*model.SessionUser, error) {
	account, err := s.accountRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	u := account.ToSessionUser()
	return &u, nil
}

// SignOut revokes every token issued for the account.
func (s *authService) SignOut(id string) error {
	if _, err := s.accountRepo.FindByID(id); err != nil {
		return notFound(err)
	}
	return s.accountRepo.UpdateTokenVersion(id, uuid.NewString())
}
