package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

// Client talks to the backend over HTTP and websockets. It implements
// Service, Auth and Storage.
type Client struct {
	baseURL string
	timeout time.Duration
	dialer  *websocket.Dialer
	log     *logger.Logger

	mu        sync.RWMutex
	session   *model.Session
	listeners map[int]func(*model.Session)
	nextID    int
}

type Option func(*Client)

// WithTimeout bounds every HTTP request. The context deadline wins when it
// is sooner.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   10 * time.Second,
		dialer:    websocket.DefaultDialer,
		log:       logger.Nop(),
		listeners: make(map[int]func(*model.Session)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ Service = (*Client)(nil)
	_ Auth    = (*Client)(nil)
	_ Storage = (*Client)(nil)
)

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// send runs the request and decodes a JSON response into dst when dst is
// not nil.
func (c *Client) send(ctx context.Context, a *fiber.Agent, dst interface{}) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	a.Timeout(timeout)
	if tok := c.token(); tok != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("remote: %w", errs[0])
	}
	if code < 200 || code > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return &APIError{Status: code, Message: payload.Error}
	}
	if dst == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func (c *Client) tableURL(table model.Table, id string) string {
	u := c.baseURL + "/rest/v1/" + string(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func (c *Client) Select(ctx context.Context, table model.Table, dst interface{}) error {
	if err := c.send(ctx, fiber.Get(c.tableURL(table, "")), dst); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, table model.Table, row, dst interface{}) error {
	if err := c.send(ctx, fiber.Post(c.tableURL(table, "")).JSON(row), dst); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, table model.Table, id string, patch, dst interface{}) error {
	if err := c.send(ctx, fiber.Patch(c.tableURL(table, id)).JSON(patch), dst); err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, table model.Table, id string) error {
	if err := c.send(ctx, fiber.Delete(c.tableURL(table, id)), nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return nil
}

func (c *Client) RPC(ctx context.Context, fn string, args, dst interface{}) error {
	a := fiber.Post(c.baseURL + "/rest/v1/rpc/" + url.PathEscape(fn)).JSON(args)
	if err := c.send(ctx, a, dst); err != nil {
		return fmt.Errorf("rpc %s: %w", fn, err)
	}
	return nil
}

// SignIn exchanges credentials for a session and keeps it for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var session model.Session
	a := fiber.Post(c.baseURL + "/auth/v1/token").JSON(model.SignInRequest{Email: email, Password: password})
	if err := c.send(ctx, a, &session); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	c.SetSession(&session)
	return &session, nil
}

// SignUp creates another account. The current session is kept.
func (c *Client) SignUp(ctx context.Context, req model.SignUpRequest) (*model.SignUpResponse, error) {
	var resp model.SignUpResponse
	if err := c.send(ctx, fiber.Post(c.baseURL+"/auth/v1/signup").JSON(req), &resp); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &resp, nil
}

// SignOut revokes the session remotely and always drops it locally.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token() == "" {
		return nil
	}
	err := c.send(ctx, fiber.Post(c.baseURL+"/auth/v1/logout"), nil)
	c.SetSession(nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession replaces the session, e.g. with one restored from disk, and
// notifies listeners.
func (c *Client) SetSession(s *model.Session) {
	c.mu.Lock()
	if s != nil {
		cp := *s
		s = &cp
	}
	c.session = s
	fns := make([]func(*model.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(c.Session())
	}
}

func (c *Client) OnSessionChange(fn func(*model.Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Upload stores r as bucket/name and returns its public URL.
func (c *Client) Upload(ctx context.Context, bucket, name string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	a := fiber.Post(c.baseURL + "/storage/v1/object/" + url.PathEscape(bucket) + "/" + url.PathEscape(name))
	a.ContentType("application/octet-stream")
	a.Body(body)

	var resp struct {
		PublicURL string `json:"publicUrl"`
	}
	if err := c.send(ctx, a, &resp); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return resp.PublicURL, nil
}
