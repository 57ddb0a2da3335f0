package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/remote"
)

// fakeRemote implements remote.Service, remote.Auth and remote.Storage.
// Results are round-tripped through JSON like the real client does.
type fakeRemote struct {
	mu           sync.Mutex
	rows         map[model.Table]interface{}
	selectErr    map[model.Table]error
	subscribeErr map[model.Table]error
	replies      map[string]interface{}
	errs         map[string]error
	handlers     map[model.Table]func(model.ChangeEvent)
	channels     map[model.Table]*fakeChannel
	calls        []call
	listeners    []func(*model.Session)
	uploads      map[string]string
}

type call struct {
	Op    string
	Table model.Table
	ID    string
	Body  string
}

type fakeChannel struct {
	mu     sync.Mutex
	closed int
}

func (c *fakeChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *fakeChannel) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:         map[model.Table]interface{}{},
		selectErr:    map[model.Table]error{},
		subscribeErr: map[model.Table]error{},
		replies:      map[string]interface{}{},
		errs:         map[string]error{},
		handlers:     map[model.Table]func(model.ChangeEvent){},
		channels:     map[model.Table]*fakeChannel{},
		uploads:      map[string]string{},
	}
}

var (
	_ remote.Service = (*fakeRemote)(nil)
	_ remote.Auth    = (*fakeRemote)(nil)
	_ remote.Storage = (*fakeRemote)(nil)
)

func roundTrip(v, dst interface{}) error {
	if dst == nil || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func (f *fakeRemote) record(op string, table model.Table, id string, body interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := json.Marshal(body)
	f.calls = append(f.calls, call{Op: op, Table: table, ID: id, Body: string(b)})
	key := op + " " + string(table)
	return f.replies[key], f.errs[key]
}

func (f *fakeRemote) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeRemote) Select(ctx context.Context, table model.Table, dst interface{}) error {
	f.mu.Lock()
	rows, err := f.rows[table], f.selectErr[table]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return roundTrip(rows, dst)
}

func (f *fakeRemote) Insert(ctx context.Context, table model.Table, row, dst interface{}) error {
	reply, err := f.record("insert", table, "", row)
	if err != nil {
		return err
	}
	return roundTrip(reply, dst)
}

func (f *fakeRemote) Update(ctx context.Context, table model.Table, id string, patch, dst interface{}) error {
	reply, err := f.record("update", table, id, patch)
	if err != nil {
		return err
	}
	return roundTrip(reply, dst)
}

func (f *fakeRemote) Delete(ctx context.Context, table model.Table, id string) error {
	_, err := f.record("delete", table, id, nil)
	return err
}

func (f *fakeRemote) RPC(ctx context.Context, fn string, args, dst interface{}) error {
	reply, err := f.record("rpc", model.Table(fn), "", args)
	if err != nil {
		return err
	}
	return roundTrip(reply, dst)
}

func (f *fakeRemote) Subscribe(ctx context.Context, table model.Table, handler func(model.ChangeEvent)) (remote.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subscribeErr[table]; err != nil {
		return nil, err
	}
	ch := &fakeChannel{}
	f.handlers[table] = handler
	f.channels[table] = ch
	return ch, nil
}

// emit delivers an event as the channel for table would.
func (f *fakeRemote) emit(table model.Table, kind model.EventType, newRow, oldRow interface{}) {
	f.mu.Lock()
	h := f.handlers[table]
	f.mu.Unlock()
	if h == nil {
		panic("no handler for " + string(table))
	}
	ev := model.ChangeEvent{Table: table, EventType: kind}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}
	h(ev)
}

func (f *fakeRemote) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return nil, errors.New("not used")
}

func (f *fakeRemote) SignUp(ctx context.Context, req model.SignUpRequest) (*model.SignUpResponse, error) {
	reply, err := f.record("signup", model.TableUsers, "", req)
	if err != nil {
		return nil, err
	}
	var resp model.SignUpResponse
	return &resp, roundTrip(reply, &resp)
}

func (f *fakeRemote) Session() *model.Session { return nil }

func (f *fakeRemote) OnSessionChange(fn func(*model.Session)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeRemote) setSession(s *model.Session) {
	f.mu.Lock()
	fns := append([]func(*model.Session){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeRemote) SignOut(ctx context.Context) error { return nil }

func (f *fakeRemote) Upload(ctx context.Context, bucket, name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[bucket+"/"+name] = string(b)
	return "http://cdn/" + bucket + "/" + name, nil
}

// memPersister keeps snapshots in memory.
type memPersister struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
	err   error
}

func (m *memPersister) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], m.err
}

func (m *memPersister) Save(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = append([]byte(nil), value...)
	m.saves++
	return m.err
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func product(id string, qty int) model.Product {
	return model.Product{BaseModel: model.BaseModel{ID: id}, ProductName: "item " + id, ProductMeasurement: "unit", Quantity: qty}
}

func ids[T entity](rows []T) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RowID()
	}
	return out
}

type deleted struct {
	ID string `json:"id"`
}
