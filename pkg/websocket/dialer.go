package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tickerfeed/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const (
	DefaultDialerTimeout = 10 * time.Second
	DefaultReadLimit     = 1 << 20
	closeWriteTimeout    = time.Second
)

// DialerOption tunes the gorilla backed dialer.
type DialerOption struct {
	// HandshakeTimeout bounds the opening handshake. Optional; default DefaultDialerTimeout.
	HandshakeTimeout time.Duration
	// ReadLimit caps one inbound message size in bytes. Optional; default DefaultReadLimit.
	ReadLimit int64
	// Header is sent with the handshake request. Optional.
	Header http.Header
	// IdleTimeout fails a Read when nothing, pongs included, arrives for this long. Optional; default 0 (disabled).
	IdleTimeout time.Duration
	// PingInterval sends a ping frame periodically while the conn is open. Optional; default 0 (disabled).
	PingInterval time.Duration
}

type dialer struct {
	url    string
	opt    DialerOption
	dialer *websocket.Dialer
}

// NewDialer returns a Dialer connecting to url (ws:// or wss://).
func NewDialer(url string, option ...DialerOption) Dialer {
	var opt DialerOption
	if len(option) != 0 {
		opt = option[0]
	}
	if opt.HandshakeTimeout <= 0 {
		opt.HandshakeTimeout = DefaultDialerTimeout
	}
	if opt.ReadLimit <= 0 {
		opt.ReadLimit = DefaultReadLimit
	}

	return &dialer{
		url: url,
		opt: opt,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opt.HandshakeTimeout,
		},
	}
}

func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	c, resp, err := d.dialer.DialContext(ctx, d.url, d.opt.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrap(err, "dial websocket").With("url", d.url).With("status", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "dial websocket").With("url", d.url)
	}
	c.SetReadLimit(d.opt.ReadLimit)

	conn := &wsConn{
		conn:    c,
		idle:    d.opt.IdleTimeout,
		closeCh: make(chan struct{}),
	}
	if conn.idle > 0 {
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(conn.idle))
		})
	}
	if d.opt.PingInterval > 0 {
		go conn.ping(d.opt.PingInterval)
	}
	return conn, nil
}

type wsConn struct {
	conn      *websocket.Conn
	idle      time.Duration
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closeCh   chan struct{}
}

// readDeadline is the earlier of the ctx deadline and the idle timeout.
func (c *wsConn) readDeadline(ctx context.Context) time.Time {
	deadline, ok := ctx.Deadline()
	if c.idle <= 0 {
		if !ok {
			return time.Time{}
		}
		return deadline
	}
	idle := time.Now().Add(c.idle)
	if ok && deadline.Before(idle) {
		return deadline
	}
	return idle
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := c.conn.SetReadDeadline(c.readDeadline(ctx)); err != nil {
		return 0, nil, err
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return 0, nil, errors.Wrap(exception.ErrWebSocketConnectionClose, err.Error())
		}
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	if !msgType.IsData() {
		return exception.ErrWebSocketProtocol
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(int(msgType), payload)
}

func (c *wsConn) ping(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval)); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) Close(code CloseCode, reason string) error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		msg := websocket.FormatCloseMessage(int(code), reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
