package store

import (
	"context"
	"encoding/json"
	"sync"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/remote"
)

// FetchProducts replaces the products collection with a full read. On
// failure the error is logged and the collection is left as it was.
func (s *Store) FetchProducts(ctx context.Context) {
	fetchInto(ctx, s, model.TableProducts, &s.products)
}

func (s *Store) FetchOrders(ctx context.Context) {
	fetchInto(ctx, s, model.TableOrders, &s.orders)
}

func (s *Store) FetchUsers(ctx context.Context) {
	fetchInto(ctx, s, model.TableUsers, &s.users)
}

func fetchInto[T entity](ctx context.Context, s *Store, table model.Table, col *collection[T]) {
	if s.remote == nil {
		s.log.Error().Err(ErrNoRemote).Str("table", string(table)).Msg("fetch failed")
		return
	}
	var rows []T
	if err := s.remote.Select(ctx, table, &rows); err != nil {
		s.log.Error().Err(err).Str("table", string(table)).Msg("fetch failed")
		return
	}

	s.mu.Lock()
	col.replace(rows, s.now(), s.orphanTTL)
	s.mu.Unlock()
	s.changed(Change{Table: table, Kind: ChangeReplace})
}

// Bootstrap loads what the session's role may see: admins get every table,
// dispatchers get products and orders, and any users restored from an
// earlier admin session are dropped.
func (s *Store) Bootstrap(ctx context.Context, session *model.Session) {
	user := session.User.ActiveUser()
	s.SetActiveUser(user)

	fetches := []func(context.Context){s.FetchProducts, s.FetchOrders}
	if user.Role == model.RoleAdmin {
		s.FetchAdmin()
		fetches = append(fetches, s.FetchUsers)
	} else {
		s.mu.Lock()
		s.users.clear()
		s.mu.Unlock()
		s.changed(Change{Table: model.TableUsers, Kind: ChangeReplace})
	}

	var wg sync.WaitGroup
	for _, fetch := range fetches {
		wg.Add(1)
		go func(fetch func(context.Context)) {
			defer wg.Done()
			fetch(ctx)
		}(fetch)
	}
	wg.Wait()
}

// WatchSession follows the auth session: a new session bootstraps the store
// and a sign out clears it.
func (s *Store) WatchSession(ctx context.Context) (cancel func()) {
	if s.auth == nil {
		return func() {}
	}
	return s.auth.OnSessionChange(func(session *model.Session) {
		if session == nil {
			s.ClearSession()
			return
		}
		s.Bootstrap(ctx, session)
	})
}

type feed struct {
	closed bool // guarded by Store.mu
}

// SubscribeToChanges opens one channel per table and folds every event into
// the matching collection. Channels that fail to open are logged and
// skipped. The returned teardown closes all channels; after it returns no
// event mutates the store. Calling it again is a no-op.
func (s *Store) SubscribeToChanges(ctx context.Context) (teardown func()) {
	if s.remote == nil {
		s.log.Error().Err(ErrNoRemote).Msg("subscribe failed")
		return func() {}
	}

	f := &feed{}
	var channels []remote.Channel
	for _, table := range model.Tables {
		ch, err := s.remote.Subscribe(ctx, table, func(ev model.ChangeEvent) {
			ev.Table = table
			s.handleEvent(f, ev)
		})
		if err != nil {
			s.log.Error().Err(err).Str("table", string(table)).Msg("subscribe failed")
			continue
		}
		channels = append(channels, ch)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			f.closed = true
			s.mu.Unlock()
			for _, ch := range channels {
				if err := ch.Unsubscribe(); err != nil {
					s.log.Warn().Err(err).Msg("unsubscribe")
				}
			}
		})
	}
}

func (s *Store) handleEvent(f *feed, ev model.ChangeEvent) {
	s.mu.Lock()
	if f.closed {
		s.mu.Unlock()
		return
	}
	var (
		changed bool
		err     error
	)
	switch ev.Table {
	case model.TableProducts:
		changed, err = applyEvent(s, &s.products, ev)
	case model.TableOrders:
		changed, err = applyEvent(s, &s.orders, ev)
	case model.TableUsers:
		changed, err = applyEvent(s, &s.users, ev)
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("table", string(ev.Table)).Str("event", string(ev.EventType)).Msg("dropping change event")
		return
	}
	if changed {
		s.changed(Change{Table: ev.Table, Kind: kindOf(ev.EventType)})
	}
}

// applyEvent must be called with s.mu held.
func applyEvent[T entity](s *Store, col *collection[T], ev model.ChangeEvent) (bool, error) {
	now := s.now()
	switch ev.EventType {
	case model.EventInsert:
		var row T
		if err := json.Unmarshal(ev.New, &row); err != nil {
			return false, err
		}
		col.insert(row, now, s.orphanTTL)
		return true, nil
	case model.EventUpdate:
		var row T
		if err := json.Unmarshal(ev.New, &row); err != nil {
			return false, err
		}
		return col.update(row, now, s.orphanTTL), nil
	case model.EventDelete:
		var old struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Old, &old); err != nil {
			return false, err
		}
		return col.remove(old.ID), nil
	}
	return false, nil
}

func kindOf(t model.EventType) ChangeKind {
	switch t {
	case model.EventInsert:
		return ChangeInsert
	case model.EventUpdate:
		return ChangeUpdate
	}
	return ChangeDelete
}
