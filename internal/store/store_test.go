package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-dispatch-ws/internal/model"
)

func newSynced(t *testing.T, opts ...Option) (*Store, *fakeRemote) {
	t.Helper()
	f := newFakeRemote()
	s := New(append([]Option{WithRemote(f), WithAuth(f), WithStorage(f)}, opts...)...)
	teardown := s.SubscribeToChanges(context.Background())
	t.Cleanup(teardown)
	return s, f
}

func TestInsertIntoEmpty(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	got := s.Products()
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 5, got[0].Quantity)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)
	f.emit(model.TableProducts, model.EventUpdate, product("p1", 3), product("p1", 5))

	got := s.Products()
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Quantity)
}

func TestDeleteByOldRowID(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p2", 1), nil)
	f.emit(model.TableProducts, model.EventDelete, nil, deleted{ID: "p1"})

	assert.Equal(t, []string{"p2"}, ids(s.Products()))
}

func TestUpdateForMissingIDIsNoop(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })
	f.emit(model.TableProducts, model.EventUpdate, product("p9", 4), nil)

	assert.Equal(t, []string{"p1"}, ids(s.Products()))
	assert.Empty(t, changes)
}

func TestNoMutationAfterTeardown(t *testing.T) {
	f := newFakeRemote()
	s := New(WithRemote(f))
	teardown := s.SubscribeToChanges(context.Background())
	f.emit(model.TableOrders, model.EventInsert, model.Order{BaseModel: model.BaseModel{ID: "o1"}}, nil)

	teardown()
	f.emit(model.TableOrders, model.EventInsert, model.Order{BaseModel: model.BaseModel{ID: "o2"}}, nil)
	f.emit(model.TableOrders, model.EventDelete, nil, deleted{ID: "o1"})

	assert.Equal(t, []string{"o1"}, ids(s.Orders()))
	for _, table := range model.Tables {
		assert.Equal(t, 1, f.channels[table].closeCount(), table)
	}

	teardown()
	for _, table := range model.Tables {
		assert.Equal(t, 1, f.channels[table].closeCount(), "second teardown must not unsubscribe again")
	}
}

// Replaying any sequence of events yields the ids a plain set would hold,
// with updates for unknown ids ignored.
func TestReplayMatchesSetModel(t *testing.T) {
	type step struct {
		kind model.EventType
		id   string
	}
	seqs := [][]step{
		{{model.EventInsert, "a"}, {model.EventInsert, "b"}, {model.EventDelete, "a"}, {model.EventUpdate, "b"}},
		{{model.EventUpdate, "x"}, {model.EventInsert, "y"}, {model.EventDelete, "x"}, {model.EventDelete, "y"}},
		{{model.EventInsert, "a"}, {model.EventDelete, "a"}, {model.EventUpdate, "a"}, {model.EventInsert, "c"}},
		{{model.EventInsert, "a"}, {model.EventInsert, "a"}, {model.EventUpdate, "a"}, {model.EventDelete, "a"}, {model.EventDelete, "a"}},
	}
	for i, seq := range seqs {
		s, f := newSynced(t, WithOrphanTTL(0))
		var want []string
		for _, st := range seq {
			idx := -1
			for j, id := range want {
				if id == st.id {
					idx = j
				}
			}
			switch st.kind {
			case model.EventInsert:
				f.emit(model.TableUsers, st.kind, model.User{BaseModel: model.BaseModel{ID: st.id}}, nil)
				if idx < 0 {
					want = append(want, st.id)
				}
			case model.EventUpdate:
				f.emit(model.TableUsers, st.kind, model.User{BaseModel: model.BaseModel{ID: st.id}, FullName: "n"}, nil)
			case model.EventDelete:
				f.emit(model.TableUsers, st.kind, nil, deleted{ID: st.id})
				if idx >= 0 {
					want = append(want[:idx], want[idx+1:]...)
				}
			}
		}
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, ids(s.Users()), "sequence %d", i)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p2", 1), nil)

	f.emit(model.TableProducts, model.EventDelete, nil, deleted{ID: "p1"})
	after := s.Products()
	f.emit(model.TableProducts, model.EventDelete, nil, deleted{ID: "p1"})
	assert.Equal(t, after, s.Products())
}

func TestInsertIsUpsertByID(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p2", 1), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 9), nil)

	got := s.Products()
	assert.Equal(t, []string{"p1", "p2"}, ids(got))
	assert.Equal(t, 9, got[0].Quantity)
}

func TestMalformedEventIsDropped(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)
	f.emit(model.TableProducts, model.EventDelete, nil, nil)
	f.emit(model.TableProducts, model.EventInsert, "not a row", nil)

	assert.Equal(t, []string{"p1"}, ids(s.Products()))
}

func TestOrphanUpdateAppliedOnInsert(t *testing.T) {
	clk := newClock()
	s, f := newSynced(t, WithClock(clk.Now))

	f.emit(model.TableProducts, model.EventUpdate, product("p1", 2), nil)
	assert.Empty(t, s.Products())

	clk.Advance(time.Second)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	got := s.Products()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Quantity, "buffered update wins over the older insert")
}

func TestOrphanUpdateExpires(t *testing.T) {
	clk := newClock()
	s, f := newSynced(t, WithClock(clk.Now), WithOrphanTTL(5*time.Second))

	f.emit(model.TableProducts, model.EventUpdate, product("p1", 2), nil)
	clk.Advance(6 * time.Second)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	assert.Equal(t, 5, s.Products()[0].Quantity)
}

func TestOrphanUpdateDiscardedByDelete(t *testing.T) {
	clk := newClock()
	s, f := newSynced(t, WithClock(clk.Now))

	f.emit(model.TableProducts, model.EventUpdate, product("p1", 2), nil)
	f.emit(model.TableProducts, model.EventDelete, nil, deleted{ID: "p1"})
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	assert.Equal(t, 5, s.Products()[0].Quantity)
}

func TestOrphanUpdateAppliedOnFetch(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventUpdate, product("p2", 0), nil)

	f.rows[model.TableProducts] = []model.Product{product("p1", 1), product("p2", 7)}
	s.FetchProducts(context.Background())

	got := s.Products()
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[1].Quantity)
}

func TestOrphanTTLZeroIsLossy(t *testing.T) {
	s, f := newSynced(t, WithOrphanTTL(0))
	f.emit(model.TableProducts, model.EventUpdate, product("p1", 2), nil)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	assert.Equal(t, 5, s.Products()[0].Quantity)
	assert.Zero(t, s.products.pending())
}

func TestFetchReplacesInOrder(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("old", 1), nil)

	fetched := []model.Product{product("p3", 3), product("p1", 1), product("p2", 2)}
	f.rows[model.TableProducts] = fetched
	s.FetchProducts(context.Background())

	assert.Equal(t, fetched, s.Products())
}

func TestFetchFailureKeepsCollection(t *testing.T) {
	s, f := newSynced(t)
	f.rows[model.TableOrders] = []model.Order{{BaseModel: model.BaseModel{ID: "o1"}}}
	s.FetchOrders(context.Background())

	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	f.selectErr[model.TableOrders] = errors.New("network down")
	s.FetchOrders(context.Background())

	assert.Equal(t, []string{"o1"}, ids(s.Orders()))
	assert.Empty(t, changes)
}

func TestFetchWithoutRemote(t *testing.T) {
	s := New()
	s.FetchUsers(context.Background())
	assert.Empty(t, s.Users())
	s.SubscribeToChanges(context.Background())()
}

func TestSubscribeSkipsFailedChannel(t *testing.T) {
	f := newFakeRemote()
	f.subscribeErr[model.TableUsers] = errors.New("refused")
	s := New(WithRemote(f))
	teardown := s.SubscribeToChanges(context.Background())

	f.emit(model.TableProducts, model.EventInsert, product("p1", 1), nil)
	assert.Len(t, s.Products(), 1)

	teardown()
	assert.Equal(t, 1, f.channels[model.TableProducts].closeCount())
	assert.Equal(t, 1, f.channels[model.TableOrders].closeCount())
	assert.Nil(t, f.channels[model.TableUsers])
}

func TestReadersReturnCopies(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)

	got := s.Products()
	got[0].Quantity = 100
	assert.Equal(t, 5, s.Products()[0].Quantity)

	order := model.Order{BaseModel: model.BaseModel{ID: "o1"}, Products: model.OrderItems{{ProductID: "p1", Quantity: 5}}}
	f.emit(model.TableOrders, model.EventInsert, order, nil)

	orders := s.Orders()
	orders[0].Products[0].Quantity = 99
	assert.Equal(t, 5, s.Orders()[0].Products[0].Quantity)

	snap := s.Snapshot()
	snap.Orders[0].Products[0].Quantity = 98
	assert.Equal(t, 5, s.Orders()[0].Products[0].Quantity)
}

func TestListeners(t *testing.T) {
	s, f := newSynced(t)
	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) {
		// readers work from inside a listener
		_ = s.Products()
		changes = append(changes, c)
	})

	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)
	f.emit(model.TableProducts, model.EventUpdate, product("p1", 4), nil)
	f.emit(model.TableProducts, model.EventDelete, nil, deleted{ID: "p1"})
	s.FetchAdmin()
	unsubscribe()
	f.emit(model.TableProducts, model.EventInsert, product("p2", 5), nil)

	assert.Equal(t, []Change{
		{Table: model.TableProducts, Kind: ChangeInsert},
		{Table: model.TableProducts, Kind: ChangeUpdate},
		{Table: model.TableProducts, Kind: ChangeDelete},
		{Kind: ChangeSession},
	}, changes)
}

func TestSessionRole(t *testing.T) {
	s := New()
	assert.False(t, s.IsAdmin())
	_, ok := s.ActiveUser()
	assert.False(t, ok)

	s.SetActiveUser(model.ActiveUser{Sub: "d1", Role: model.RoleUser, FullName: "Dana"})
	assert.False(t, s.IsAdmin())
	u, ok := s.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "d1", u.Sub)

	s.FetchAdmin()
	s.FetchAdmin()
	assert.True(t, s.IsAdmin())

	s.SetActiveUser(model.ActiveUser{Sub: "a1", Role: model.RoleAdmin})
	assert.True(t, s.IsAdmin())

	s.ClearSession()
	assert.False(t, s.IsAdmin())
	_, ok = s.ActiveUser()
	assert.False(t, ok)
}

func TestClearSessionDropsRows(t *testing.T) {
	s, f := newSynced(t)
	f.emit(model.TableProducts, model.EventInsert, product("p1", 5), nil)
	s.ClearSession()
	assert.Empty(t, s.Products())
}

func TestConcurrentEventsAndReads(t *testing.T) {
	s, f := newSynced(t)
	var wg sync.WaitGroup
	for _, table := range model.Tables {
		wg.Add(1)
		go func(table model.Table) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := string(table) + "-" + strings.Repeat("x", i%5)
				f.emit(table, model.EventInsert, map[string]string{"id": id}, nil)
				_ = s.Snapshot()
			}
		}(table)
	}
	wg.Wait()
	assert.Len(t, s.Products(), 5)
	assert.Len(t, s.Orders(), 5)
	assert.Len(t, s.Users(), 5)
}
