package obs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncConnect()
	m.IncDrop(DropMalformed)
	m.ObserveTrade(time.Now(), time.Now())
	snap := m.Snapshot()
	assert.Zero(t, snap.Connects)
	assert.Empty(t, snap.Drops)
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncConnect()
	m.IncConnectFailure()
	m.IncConnectFailure()
	m.IncSubscribe()
	m.IncFrame()
	m.IncAck()
	m.IncDrop(DropUntracked)
	m.IncDrop(DropUntracked)
	m.IncDrop(DropNoInstrument)

	base := time.Unix(1000, 0)
	m.ObserveTrade(base, base.Add(2*time.Second))
	m.ObserveTrade(base, base.Add(4*time.Second))
	m.ObserveTrade(base, base.Add(-time.Second))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Connects)
	assert.Equal(t, uint64(2), snap.ConnectFailures)
	assert.Equal(t, uint64(3), snap.TradesApplied)
	assert.Equal(t, map[string]uint64{"untracked": 2, "no_instrument": 1}, snap.Drops)
	assert.Equal(t, uint64(2), snap.TradeLag.Count)
	assert.Equal(t, 2*time.Second, snap.TradeLag.Min)
	assert.Equal(t, 4*time.Second, snap.TradeLag.Max)
	assert.Equal(t, 3*time.Second, snap.TradeLag.Avg)
}
