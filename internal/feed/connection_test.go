package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"tickerfeed/internal/obs"
	"tickerfeed/pkg/exception"
	"tickerfeed/pkg/websocket"
	"tickerfeed/pkg/websocket/wstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type testEncoder struct{}

func (testEncoder) EncodeSubscribe(dst []byte, channel string) (websocket.MessageType, []byte, error) {
	dst = append(dst, "sub:"...)
	dst = append(dst, channel...)
	return websocket.MessageText, dst, nil
}

type recorder struct {
	mu     sync.Mutex
	frames []string
}

func (r *recorder) HandleFrame(payload []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, string(payload))
	r.mu.Unlock()
}

func (r *recorder) Frames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) observe(_, to State) {
	l.mu.Lock()
	l.states = append(l.states, to)
	l.mu.Unlock()
}

func (l *stateLog) States() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func newTestConnection(t *testing.T, dialer websocket.Dialer, handler Handler, channels []string, opt Option) *Connection {
	t.Helper()
	if opt.ReconnectDelay == 0 {
		opt.ReconnectDelay = 10 * time.Millisecond
	}
	c, err := New(dialer, testEncoder{}, handler, channels, opt)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestNewValidates(t *testing.T) {
	dialer := wstest.NewDialer(wstest.Sequence())
	h := &recorder{}

	_, err := New(nil, testEncoder{}, h, nil)
	assert.ErrorIs(t, err, exception.ErrWebSocketNilDialer)
	_, err = New(dialer, nil, h, nil)
	assert.ErrorIs(t, err, exception.ErrFeedNilEncoder)
	_, err = New(dialer, testEncoder{}, nil, nil)
	assert.ErrorIs(t, err, exception.ErrFeedNilHandler)
	_, err = New(dialer, testEncoder{}, h, nil, Option{ReconnectDelay: -time.Second})
	assert.ErrorIs(t, err, exception.ErrFeedBadDelay)

	c, err := New(dialer, testEncoder{}, h, nil)
	require.NoError(t, err)
	assert.Equal(t, websocket.DefaultReconnectDelay, c.opt.ReconnectDelay)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnectionSubscribesInOrderAndStreams(t *testing.T) {
	conn := wstest.NewConn(8).
		Push(`frame-1`).
		Push(`frame-2`)
	dialer := wstest.NewDialer(wstest.Sequence(conn))
	h := &recorder{}
	c := newTestConnection(t, dialer, h, []string{"live_trades_btcusd", "live_trades_ethusd", "live_trades_btcusd"}, Option{})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"frame-1", "frame-2"}, h.Frames())
	assert.Equal(t, []string{"sub:live_trades_btcusd", "sub:live_trades_ethusd"}, conn.Written())
	assert.Equal(t, StateStreaming, c.State())

	c.Stop()
	assert.True(t, conn.IsClosed())
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 1, dialer.Dials())
}

func TestConnectionIgnoresControlAndEmptyFrames(t *testing.T) {
	conn := wstest.NewConn(8).
		PushType(websocket.MessagePing, "ping").
		Push("").
		Push("data")
	dialer := wstest.NewDialer(wstest.Sequence(conn))
	h := &recorder{}
	metrics := obs.NewMetrics()
	c := newTestConnection(t, dialer, h, nil, Option{Metrics: metrics})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"data"}, h.Frames())
	assert.Empty(t, conn.Written())
	assert.Equal(t, uint64(1), metrics.Snapshot().Frames)
}

func TestConnectionReconnectAfterAbnormalClose(t *testing.T) {
	first := wstest.NewConn(8).
		Push(`before-close`).
		Fail(errors.New("websocket: close 1006 (abnormal closure)"))
	second := wstest.NewConn(8).Push(`after-reconnect`)
	dialer := wstest.NewDialer(wstest.Sequence(first, second))
	h := &recorder{}
	states := &stateLog{}
	metrics := obs.NewMetrics()
	channels := []string{"live_trades_btcusd", "live_trades_ethbtc"}
	c := newTestConnection(t, dialer, h, channels, Option{
		ReconnectDelay: 20 * time.Millisecond,
		OnStateChange:  states.observe,
		Metrics:        metrics,
	})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"before-close", "after-reconnect"}, h.Frames())
	assert.Equal(t, 2, dialer.Dials())
	assert.True(t, first.IsClosed())
	assert.Equal(t, []string{"sub:live_trades_btcusd", "sub:live_trades_ethbtc"}, first.Written())
	assert.Equal(t, []string{"sub:live_trades_btcusd", "sub:live_trades_ethbtc"}, second.Written())

	assert.Equal(t, []State{
		StateConnecting, StateSubscribing, StateStreaming, StateClosing, StateDisconnected,
		StateConnecting, StateSubscribing, StateStreaming,
	}, states.States())

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.Connects)
	assert.Equal(t, uint64(1), snap.Disconnects)
	assert.Equal(t, uint64(4), snap.Subscribes)
}

func TestConnectionRetriesDialFailures(t *testing.T) {
	conn := wstest.NewConn(1).Push("ok")
	dialer := wstest.NewDialer(func(attempt int) (*wstest.Conn, error) {
		if attempt < 3 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	})
	h := &recorder{}
	metrics := obs.NewMetrics()
	c := newTestConnection(t, dialer, h, []string{"live_trades_btcusd"}, Option{Metrics: metrics})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 1 }, waitFor, tick)
	assert.Equal(t, 3, dialer.Dials())
	assert.Equal(t, uint64(2), metrics.Snapshot().ConnectFailures)
	assert.Equal(t, []string{"sub:live_trades_btcusd"}, conn.Written())
}

func TestConnectionSubscribeWriteFailureReconnects(t *testing.T) {
	broken := wstest.NewConn(1).FailWrites(errors.New("broken pipe"))
	healthy := wstest.NewConn(1).Push("ok")
	dialer := wstest.NewDialer(wstest.Sequence(broken, healthy))
	h := &recorder{}
	c := newTestConnection(t, dialer, h, []string{"live_trades_btcusd"}, Option{})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 1 }, waitFor, tick)
	assert.True(t, broken.IsClosed())
	assert.Empty(t, broken.Written())
	assert.Equal(t, []string{"sub:live_trades_btcusd"}, healthy.Written())
}

func TestConnectionStopDuringDelayPreventsNextAttempt(t *testing.T) {
	dialer := wstest.NewDialer(func(int) (*wstest.Conn, error) {
		return nil, errors.New("connection refused")
	})
	c := newTestConnection(t, dialer, &recorder{}, []string{"live_trades_btcusd"}, Option{ReconnectDelay: time.Hour})

	c.Start(context.Background())
	select {
	case <-dialer.Dialed():
	case <-time.After(waitFor):
		t.Fatalf("no dial attempt")
	}
	require.Eventually(t, func() bool { return c.State() == StateDisconnected }, waitFor, tick)

	begin := time.Now()
	c.Stop()
	assert.Less(t, time.Since(begin), time.Second)
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 1, dialer.Dials())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.Dials())
}

func TestConnectionStartIsIdempotent(t *testing.T) {
	conn := wstest.NewConn(1)
	dialer := wstest.NewDialer(wstest.Sequence(conn))
	c := newTestConnection(t, dialer, &recorder{}, []string{"live_trades_btcusd"}, Option{})

	c.Start(context.Background())
	c.Start(context.Background())
	require.Eventually(t, func() bool { return c.State() == StateStreaming }, waitFor, tick)
	c.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, []string{"sub:live_trades_btcusd"}, conn.Written())
}

func TestConnectionStopIsTerminal(t *testing.T) {
	dialer := wstest.NewDialer(wstest.Sequence(wstest.NewConn(1)))
	c := newTestConnection(t, dialer, &recorder{}, nil, Option{})

	c.Stop()
	assert.Equal(t, StateStopped, c.State())

	c.Start(context.Background())
	assert.Nil(t, c.Done())
	assert.Equal(t, 0, dialer.Dials())
	assert.Equal(t, StateStopped, c.State())
}

func TestConnectionStopsWithParentContext(t *testing.T) {
	dialer := wstest.NewDialer(wstest.Sequence(wstest.NewConn(1)))
	c := newTestConnection(t, dialer, &recorder{}, nil, Option{})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	require.Eventually(t, func() bool { return c.State() == StateStreaming }, waitFor, tick)
	cancel()

	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatalf("loop did not exit after parent cancel")
	}
	assert.Equal(t, StateStopped, c.State())
}

func TestConnectionHandlerPanicKeepsSession(t *testing.T) {
	conn := wstest.NewConn(4).Push("boom").Push("fine")
	dialer := wstest.NewDialer(wstest.Sequence(conn))
	h := &recorder{}
	c := newTestConnection(t, dialer, HandlerFunc(func(payload []byte) {
		if string(payload) == "boom" {
			panic("handler exploded")
		}
		h.HandleFrame(payload)
	}), nil, Option{})

	c.Start(context.Background())

	require.Eventually(t, func() bool { return len(h.Frames()) == 1 }, waitFor, tick)
	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, StateStreaming, c.State())
}
