// Package wstest provides scripted in-memory websocket transports for tests.
package wstest

import (
	"context"
	"sync"

	"tickerfeed/pkg/exception"
	"tickerfeed/pkg/websocket"

	"github.com/yanun0323/errors"
)

// ErrNoScript is returned by Dialer once its script is exhausted.
var ErrNoScript = errors.New("wstest: no scripted connection left")

type inbound struct {
	msgType websocket.MessageType
	payload []byte
	err     error
}

// Conn is a websocket.Conn fed by Push and Fail.
type Conn struct {
	inbound chan inbound
	closed  chan struct{}
	once    sync.Once

	mu        sync.Mutex
	written   []string
	writeErr  error
	closeCode websocket.CloseCode
}

// NewConn returns an open connection with room for buffer pending frames.
func NewConn(buffer int) *Conn {
	return &Conn{
		inbound: make(chan inbound, buffer),
		closed:  make(chan struct{}),
	}
}

// Push queues an inbound text frame.
func (c *Conn) Push(payload string) *Conn {
	c.inbound <- inbound{msgType: websocket.MessageText, payload: []byte(payload)}
	return c
}

// PushType queues an inbound frame of any type.
func (c *Conn) PushType(msgType websocket.MessageType, payload string) *Conn {
	c.inbound <- inbound{msgType: msgType, payload: []byte(payload)}
	return c
}

// Fail makes the next Read return err after the frames queued before it.
func (c *Conn) Fail(err error) *Conn {
	c.inbound <- inbound{err: err}
	return c
}

// FailWrites makes every Write return err.
func (c *Conn) FailWrites(err error) *Conn {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
	return c
}

// Written returns the payloads written so far.
func (c *Conn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// CloseCode returns the code passed to the first Close.
func (c *Conn) CloseCode() websocket.CloseCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *Conn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, exception.ErrWebSocketConnectionClose
	default:
	}
	select {
	case in := <-c.inbound:
		if in.err != nil {
			return 0, nil, in.err
		}
		return in.msgType, in.payload, nil
	case <-c.closed:
		return 0, nil, exception.ErrWebSocketConnectionClose
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *Conn) Write(ctx context.Context, msgType websocket.MessageType, payload []byte) error {
	if c.IsClosed() {
		return exception.ErrWebSocketConnectionClose
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, string(payload))
	return nil
}

func (c *Conn) Close(code websocket.CloseCode, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}
