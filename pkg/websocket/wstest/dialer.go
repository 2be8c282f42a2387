package wstest

import (
	"context"
	"sync"

	"tickerfeed/pkg/websocket"
)

// Script decides the outcome of the n-th dial (1-based).
type Script func(attempt int) (*Conn, error)

// Sequence hands out conns in order and then fails with ErrNoScript.
func Sequence(conns ...*Conn) Script {
	return func(attempt int) (*Conn, error) {
		if attempt > len(conns) {
			return nil, ErrNoScript
		}
		return conns[attempt-1], nil
	}
}

// Dialer is a websocket.Dialer driven by a Script.
type Dialer struct {
	script Script

	mu     sync.Mutex
	dials  int
	dialed chan int
}

// NewDialer creates a dialer. Every dial attempt number is also sent to Dialed.
func NewDialer(script Script) *Dialer {
	return &Dialer{
		script: script,
		dialed: make(chan int, 64),
	}
}

// Dials returns the number of Dial calls so far.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Dialed receives the attempt number of each dial.
func (d *Dialer) Dialed() <-chan int {
	return d.dialed
}

func (d *Dialer) Dial(ctx context.Context) (websocket.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.dials++
	attempt := d.dials
	d.mu.Unlock()

	select {
	case d.dialed <- attempt:
	default:
	}

	conn, err := d.script(attempt)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
