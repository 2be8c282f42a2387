package obs

import (
	"sync/atomic"
	"time"
)

// DropReason classifies why an inbound frame or trade was discarded.
type DropReason uint8

const (
	DropMalformed DropReason = iota
	DropIncomplete
	DropUntracked
	DropNoInstrument
	maxDropReason = DropNoInstrument
)

func (r DropReason) String() string {
	switch r {
	case DropMalformed:
		return "malformed"
	case DropIncomplete:
		return "incomplete"
	case DropUntracked:
		return "untracked"
	case DropNoInstrument:
		return "no_instrument"
	default:
		return "unknown"
	}
}

// Metrics collects lightweight ingestion counters and trade lag stats.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	connects        uint64
	connectFailures uint64
	disconnects     uint64
	subscribes      uint64
	frames          uint64
	acks            uint64
	tradesApplied   uint64
	drops           [maxDropReason + 1]uint64

	tradeLag LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Connects        uint64            `json:"connects"`
	ConnectFailures uint64            `json:"connect_failures"`
	Disconnects     uint64            `json:"disconnects"`
	Subscribes      uint64            `json:"subscribes"`
	Frames          uint64            `json:"frames"`
	Acks            uint64            `json:"acks"`
	TradesApplied   uint64            `json:"trades_applied"`
	Drops           map[string]uint64 `json:"drops"`
	TradeLag        LatencySnapshot   `json:"trade_lag"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncConnect records an established feed connection.
func (m *Metrics) IncConnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.connects, 1)
}

// IncConnectFailure records a failed dial.
func (m *Metrics) IncConnectFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.connectFailures, 1)
}

// IncDisconnect records the end of an established session.
func (m *Metrics) IncDisconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.disconnects, 1)
}

// IncSubscribe records one subscribe frame sent.
func (m *Metrics) IncSubscribe() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.subscribes, 1)
}

// IncFrame records one inbound data frame.
func (m *Metrics) IncFrame() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.frames, 1)
}

// IncAck records a subscription acknowledgement.
func (m *Metrics) IncAck() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.acks, 1)
}

// IncDrop records a discarded frame or trade.
func (m *Metrics) IncDrop(reason DropReason) {
	if m == nil {
		return
	}
	if reason <= maxDropReason {
		atomic.AddUint64(&m.drops[reason], 1)
	}
}

// ObserveTrade records an applied trade and its lag behind the feed timestamp.
func (m *Metrics) ObserveTrade(tradeTime time.Time, now time.Time) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.tradesApplied, 1)
	m.tradeLag.Observe(now.Sub(tradeTime))
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Drops: map[string]uint64{}}
	}
	drops := make(map[string]uint64)
	for i := range m.drops {
		if v := atomic.LoadUint64(&m.drops[i]); v > 0 {
			drops[DropReason(i).String()] = v
		}
	}
	return Snapshot{
		Connects:        atomic.LoadUint64(&m.connects),
		ConnectFailures: atomic.LoadUint64(&m.connectFailures),
		Disconnects:     atomic.LoadUint64(&m.disconnects),
		Subscribes:      atomic.LoadUint64(&m.subscribes),
		Frames:          atomic.LoadUint64(&m.frames),
		Acks:            atomic.LoadUint64(&m.acks),
		TradesApplied:   atomic.LoadUint64(&m.tradesApplied),
		Drops:           drops,
		TradeLag:        m.tradeLag.Snapshot(),
	}
}

// Observe records a duration sample. Negative samples are ignored.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
