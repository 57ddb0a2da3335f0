// Package remote is the dashboard's boundary to the backend service: the
// table API, auth, object storage and the realtime change feed.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go-dispatch-ws/internal/model"
)

// Service is the table API plus the change feed.
type Service interface {
	Select(ctx context.Context, table model.Table, dst interface{}) error
	Insert(ctx context.Context, table model.Table, row, dst interface{}) error
	Update(ctx context.Context, table model.Table, id string, patch, dst interface{}) error
	Delete(ctx context.Context, table model.Table, id string) error
	RPC(ctx context.Context, fn string, args, dst interface{}) error
	Subscribe(ctx context.Context, table model.Table, handler func(model.ChangeEvent)) (Channel, error)
}

// Channel is an open change-feed subscription for one table.
type Channel interface {
	Unsubscribe() error
}

type Auth interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, req model.SignUpRequest) (*model.SignUpResponse, error)
	Session() *model.Session
	OnSessionChange(fn func(*model.Session)) (cancel func())
	SignOut(ctx context.Context) error
}

type Storage interface {
	Upload(ctx context.Context, bucket, name string, r io.Reader) (publicURL string, err error)
}

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrNoSession    = errors.New("not signed in")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match the status class with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}
