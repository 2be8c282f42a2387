package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tickerfeed/internal/obs"
	"tickerfeed/pkg/exception"
	"tickerfeed/pkg/websocket"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Encoder builds the subscribe frame of a channel.
// Implementations should write into dst and return a slice backed by dst.
type Encoder interface {
	EncodeSubscribe(dst []byte, channel string) (websocket.MessageType, []byte, error)
}

// Handler consumes inbound data frames. It must not retain payload.
type Handler interface {
	HandleFrame(payload []byte)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(payload []byte)

func (f HandlerFunc) HandleFrame(payload []byte) {
	f(payload)
}

// Option defines the connection runtime configuration.
type Option struct {
	// ReconnectDelay is the wait between a disconnect and the next attempt. Optional; default 5s.
	ReconnectDelay time.Duration
	// MaxReconnectDelay enables capped exponential growth when greater than ReconnectDelay. Optional; default 0 (fixed).
	MaxReconnectDelay time.Duration
	// WriteTimeout bounds each subscribe frame write. Optional; default 10s.
	WriteTimeout time.Duration
	// OnStateChange runs synchronously on every state transition. Optional; default nil.
	OnStateChange func(from, to State)
	// Metrics receives connection counters. Optional; default nil.
	Metrics *obs.Metrics
}

const defaultWriteTimeout = 10 * time.Second

func (opt *Option) init() error {
	if opt.ReconnectDelay < 0 || opt.MaxReconnectDelay < 0 {
		return exception.ErrFeedBadDelay
	}
	if opt.ReconnectDelay == 0 {
		opt.ReconnectDelay = websocket.DefaultReconnectDelay
	}
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = defaultWriteTimeout
	}
	return nil
}

// Connection owns one logical streaming session with the feed and keeps it
// alive until Stop.
//
// Lifecycle: Disconnected -> Connecting -> Subscribing -> Streaming -> Closing -> Disconnected,
// with a reconnect delay after every return to Disconnected. Stop leads to Stopped.
type Connection struct {
	dialer  websocket.Dialer
	encoder Encoder
	handler Handler
	subs    *subscriptions
	opt     Option
	backoff websocket.Backoff

	state   atomic.Uint32
	running atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New validates config and builds a connection subscribing to channels in order.
func New(dialer websocket.Dialer, encoder Encoder, handler Handler, channels []string, option ...Option) (*Connection, error) {
	if dialer == nil {
		return nil, exception.ErrWebSocketNilDialer
	}
	if encoder == nil {
		return nil, exception.ErrFeedNilEncoder
	}
	if handler == nil {
		return nil, exception.ErrFeedNilHandler
	}

	var opt Option
	if len(option) != 0 {
		opt = option[0]
	}
	if err := opt.init(); err != nil {
		return nil, err
	}

	backoff := websocket.FixedBackoff(opt.ReconnectDelay)
	if opt.MaxReconnectDelay > opt.ReconnectDelay {
		backoff = websocket.CappedBackoff(opt.ReconnectDelay, opt.MaxReconnectDelay)
	}

	c := &Connection{
		dialer:  dialer,
		encoder: encoder,
		handler: handler,
		subs:    newSubscriptions(channels),
		opt:     opt,
		backoff: backoff,
	}
	c.state.Store(uint32(StateDisconnected))
	return c, nil
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Channels returns the subscription list.
func (c *Connection) Channels() []string {
	return c.subs.Desired()
}

// Start runs the connect loop on its own goroutine. It is a no-op while running or after Stop.
func (c *Connection) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		logs.Warn("feed connection already stopped, ignore start")
		return
	}
	if !c.running.CompareAndSwap(false, true) {
		logs.Warn("feed connection is already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Stop cancels the loop and the open connection, then waits for the loop to release the transport.
func (c *Connection) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		c.setState(StateStopped)
		return
	}
	cancel()
	<-done
}

// Done is closed once the loop has exited. It is nil before Start.
func (c *Connection) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Connection) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.setState(StateStopped)
		c.running.Store(false)
		close(done)
		logs.Info("feed connection stopped")
	}()

	attempt := 0
	for ctx.Err() == nil {
		sessionID := uuid.NewString()
		streamed, err := c.session(ctx, sessionID)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		if streamed {
			attempt = 0
		}
		attempt++

		wait := c.backoff.Next(attempt)
		if err != nil {
			logs.Errorf("feed session %s ended: %+v. Retrying in %s...", sessionID, err, wait)
		} else {
			logs.Infof("feed session %s closed. Retrying in %s...", sessionID, wait)
		}
		if !sleep(ctx, wait) {
			return
		}
	}
}

// session runs one connect, subscribe, stream cycle. streamed reports whether it reached Streaming.
func (c *Connection) session(ctx context.Context, id string) (streamed bool, err error) {
	c.setState(StateConnecting)
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		c.opt.Metrics.IncConnectFailure()
		return false, errors.Wrap(err, "connect feed")
	}
	c.opt.Metrics.IncConnect()
	logs.Infof("feed session %s connected", id)

	stopClose := context.AfterFunc(ctx, func() {
		_ = conn.Close(websocket.CloseGoingAway, "stopping")
	})
	defer func() {
		stopClose()
		c.setState(StateClosing)
		_ = conn.Close(websocket.CloseNormal, "session_end")
		if streamed {
			c.opt.Metrics.IncDisconnect()
		}
	}()

	c.setState(StateSubscribing)
	c.subs.ClearActive()
	if err := c.subscribe(ctx, conn); err != nil {
		return false, err
	}

	c.setState(StateStreaming)
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			if errors.Is(err, exception.ErrWebSocketConnectionClose) {
				return true, nil
			}
			return true, errors.Wrap(err, "read feed frame")
		}
		if !msgType.IsData() || len(payload) == 0 {
			continue
		}
		c.opt.Metrics.IncFrame()
		c.dispatch(payload)
	}
}

func (c *Connection) subscribe(ctx context.Context, conn websocket.Conn) error {
	pending := c.subs.Pending()
	if len(pending) == 0 {
		logs.Info("feed has no channel to subscribe")
		return nil
	}

	buf := make([]byte, 0, 128)
	for _, channel := range pending {
		msgType, payload, err := c.encoder.EncodeSubscribe(buf[:0], channel)
		if err != nil {
			return errors.Wrap(err, "encode subscribe").With("channel", channel)
		}
		if len(payload) == 0 {
			return errors.Wrap(exception.ErrFeedEmptyFrame, "encode subscribe").With("channel", channel)
		}

		writeCtx, cancel := context.WithTimeout(ctx, c.opt.WriteTimeout)
		err = conn.Write(writeCtx, msgType, payload)
		cancel()
		if err != nil {
			return errors.Wrap(err, "write subscribe payload").With("channel", channel)
		}
		c.subs.MarkActive(channel)
		c.opt.Metrics.IncSubscribe()
		if cap(payload) > cap(buf) {
			buf = payload[:0]
		}
	}
	return nil
}

// dispatch hands one frame to the handler. A panicking handler costs the frame, not the session.
func (c *Connection) dispatch(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("feed handler panic: %v, frame: %s", r, payload)
		}
	}()
	c.handler.HandleFrame(payload)
}

func (c *Connection) setState(next State) {
	prev := State(c.state.Swap(uint32(next)))
	if prev == next {
		return
	}
	logs.Debugf("feed state %s -> %s", prev, next)
	if c.opt.OnStateChange != nil {
		c.opt.OnStateChange(prev, next)
	}
}

func sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
