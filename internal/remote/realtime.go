package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-dispatch-ws/internal/model"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

type channel struct {
	table   model.Table
	conn    *websocket.Conn
	handler func(model.ChangeEvent)
	c       *Client

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1"
	q := u.Query()
	q.Set("token", c.token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe opens a change-feed connection for table. It returns once the
// server has acknowledged the subscription; every event committed after
// that point is passed to handler, in order, from a single goroutine.
func (c *Client) Subscribe(ctx context.Context, table model.Table, handler func(model.ChangeEvent)) (Channel, error) {
	if c.token() == "" {
		return nil, fmt.Errorf("subscribe %s: %w", table, ErrNoSession)
	}
	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe %s: %w", table, &APIError{Status: resp.StatusCode})
		}
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	success := false
	defer func() {
		if !success {
			conn.Close()
		}
	}()

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(model.RealtimeMessage{Type: model.MessageSubscribe, Topic: table}); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}
	conn.SetReadDeadline(deadline)
	for {
		var msg model.RealtimeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", table, err)
		}
		if msg.Topic != table {
			continue
		}
		if msg.Type == model.MessageError {
			return nil, fmt.Errorf("subscribe %s: %s", table, msg.Error)
		}
		if msg.Type == model.MessageSubscribed {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	success = true

	ch := &channel{
		table:   table,
		conn:    conn,
		handler: handler,
		c:       c,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ch.run()
	return ch, nil
}

func (ch *channel) run() {
	defer close(ch.done)
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			select {
			case <-ch.closed:
			default:
				ch.c.log.Warn().Err(err).Str("table", string(ch.table)).Msg("realtime channel lost")
			}
			return
		}
		var msg model.RealtimeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ch.c.log.Debug().Err(err).Msg("ignoring malformed realtime frame")
			continue
		}
		if msg.Type != model.MessageChange || msg.Topic != ch.table {
			continue
		}
		ch.handler(msg.Event())
	}
}

// Unsubscribe closes the channel and waits for a running handler call to
// return. It is safe to call more than once, but not from the handler.
func (ch *channel) Unsubscribe() error {
	var err error
	ch.once.Do(func() {
		close(ch.closed)

		ch.writeMu.Lock()
		deadline := time.Now().Add(writeTimeout)
		ch.conn.SetWriteDeadline(deadline)
		_ = ch.conn.WriteJSON(model.RealtimeMessage{Type: model.MessageUnsubscribe, Topic: ch.table})
		closeErr := ch.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		ch.writeMu.Unlock()

		if cerr := ch.conn.Close(); cerr != nil && closeErr == nil {
			closeErr = cerr
		}
		if closeErr != nil && !errors.Is(closeErr, websocket.ErrCloseSent) {
			err = fmt.Errorf("unsubscribe %s: %w", ch.table, closeErr)
		}
	})
	<-ch.done
	return err
}
