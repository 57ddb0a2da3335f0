// Package store is the dashboard's client-side cache of products, orders and
// users plus the session role. It is seeded by bulk fetches, kept current by
// the realtime change feed and written through by the dashboard's actions.
package store

import (
	"errors"
	"sync"
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/remote"
	"go-dispatch-ws/pkg/logger"
)

const DefaultOrphanTTL = 5 * time.Second

var (
	ErrNoRemote  = errors.New("store: no remote service configured")
	ErrNoSession = remote.ErrNoSession
)

type ChangeKind string

const (
	ChangeReplace ChangeKind = "replace"
	ChangeInsert  ChangeKind = "insert"
	ChangeUpdate  ChangeKind = "update"
	ChangeDelete  ChangeKind = "delete"
	ChangeSession ChangeKind = "session"
)

// Change tells listeners which slice of the store moved. Table is empty for
// session changes.
type Change struct {
	Table model.Table
	Kind  ChangeKind
}

type Store struct {
	remote    remote.Service
	auth      remote.Auth
	storage   remote.Storage
	persister Persister
	log       *logger.Logger
	orphanTTL time.Duration
	now       func() time.Time

	mu         sync.RWMutex
	products   collection[model.Product]
	orders     collection[model.Order]
	users      collection[model.User]
	role       model.Role
	activeUser *model.ActiveUser

	listenMu  sync.Mutex
	listeners map[int]func(Change)
	nextID    int

	persistMu sync.Mutex
}

type Option func(*Store)

func WithRemote(svc remote.Service) Option {
	return func(s *Store) { s.remote = svc }
}

func WithAuth(auth remote.Auth) Option {
	return func(s *Store) { s.auth = auth }
}

func WithStorage(storage remote.Storage) Option {
	return func(s *Store) { s.storage = storage }
}

// WithPersister saves a snapshot after every change.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithOrphanTTL sets how long an update for an unknown id is kept waiting
// for its row. Zero drops such updates immediately.
func WithOrphanTTL(ttl time.Duration) Option {
	return func(s *Store) { s.orphanTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		log:       logger.Nop(),
		orphanTTL: DefaultOrphanTTL,
		now:       time.Now,
		listeners: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Products returns a copy of the products collection.
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products.snapshot()
}

func (s *Store) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders.snapshot()
}

func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.snapshot()
}

// ActiveUser returns the signed-in user, if any.
func (s *Store) ActiveUser() (model.ActiveUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeUser == nil {
		return model.ActiveUser{}, false
	}
	return *s.activeUser, true
}

func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Store) IsAdmin() bool {
	return s.Role() == model.RoleAdmin
}

// FetchAdmin marks the session as admin.
func (s *Store) FetchAdmin() {
	s.mu.Lock()
	s.role = model.RoleAdmin
	s.mu.Unlock()
	s.changed(Change{Kind: ChangeSession})
}

// SetActiveUser replaces the active user and takes the session role from it.
func (s *Store) SetActiveUser(u model.ActiveUser) {
	s.mu.Lock()
	s.activeUser = &u
	s.role = u.Role
	s.mu.Unlock()
	s.changed(Change{Kind: ChangeSession})
}

// ClearSession forgets the active user, the role and every cached row.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.activeUser = nil
	s.role = ""
	s.products.clear()
	s.orders.clear()
	s.users.clear()
	s.mu.Unlock()
	s.changed(Change{Kind: ChangeSession})
}

// Subscribe registers fn to run after every change. Listeners run on the
// goroutine that made the change, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

func (s *Store) changed(changes ...Change) {
	s.listenMu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenMu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
	s.save()
}
