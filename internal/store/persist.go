package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-dispatch-ws/internal/model"
)

// PersistKey is the key the snapshot is stored under.
const PersistKey = "dispatch-store"

const saveTimeout = 2 * time.Second

// Persister is local key-value storage. Load returns nil, nil for a
// missing key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

type Snapshot struct {
	Products   []model.Product   `json:"products"`
	Orders     []model.Order     `json:"orders"`
	Users      []model.User      `json:"users"`
	IsAdmin    bool              `json:"isAdmin"`
	ActiveUser *model.ActiveUser `json:"activeUser"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Products: s.products.snapshot(),
		Orders:   s.orders.snapshot(),
		Users:    s.users.snapshot(),
		IsAdmin:  s.role == model.RoleAdmin,
	}
	if s.activeUser != nil {
		u := *s.activeUser
		snap.ActiveUser = &u
	}
	return snap
}

// Restore seeds the store from the persisted snapshot. A missing snapshot
// leaves the store empty.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	data, err := s.persister.Load(ctx, PersistKey)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if data == nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	s.mu.Lock()
	now := s.now()
	s.products.replace(snap.Products, now, s.orphanTTL)
	s.orders.replace(snap.Orders, now, s.orphanTTL)
	s.users.replace(snap.Users, now, s.orphanTTL)
	s.activeUser = snap.ActiveUser
	s.role = ""
	if snap.ActiveUser != nil {
		s.role = snap.ActiveUser.Role
	}
	if snap.IsAdmin {
		s.role = model.RoleAdmin
	}
	s.mu.Unlock()

	s.changed(
		Change{Table: model.TableProducts, Kind: ChangeReplace},
		Change{Table: model.TableOrders, Kind: ChangeReplace},
		Change{Table: model.TableUsers, Kind: ChangeReplace},
		Change{Kind: ChangeSession},
	)
	return nil
}

// save writes the current snapshot. Saves are serialized so the last one
// always carries the newest state.
func (s *Store) save() {
	if s.persister == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		s.log.Error().Err(err).Msg("encode snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, PersistKey, data); err != nil {
		s.log.Error().Err(err).Msg("persist snapshot")
	}
}
