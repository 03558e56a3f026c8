package service

import "time"

// tickMonitor detects missed ticks. The ticker coalesces ticks when the
// loop falls behind, which matches the harness contract: a missed tick is
// skipped outright and the core state stays untouched for it.
type tickMonitor struct {
	period   time.Duration
	lastTick time.Time
	missed   uint64
}

func newTickMonitor(period time.Duration) *tickMonitor {
	return &tickMonitor{period: period}
}

// Observe records a tick at now and returns how many ticks were skipped
// since the previous one.
func (m *tickMonitor) Observe(now time.Time) int {
	defer func() { m.lastTick = now }()

	if m.lastTick.IsZero() || m.period <= 0 {
		return 0
	}

	elapsed := now.Sub(m.lastTick)
	if elapsed < m.period+m.period/2 {
		return 0
	}

	skipped := int(elapsed/m.period) - 1
	m.missed += uint64(skipped)
	return skipped
}

// Reset changes the period and clears the tick history, keeping the
// missed-tick total.
func (m *tickMonitor) Reset(period time.Duration) {
	m.period = period
	m.lastTick = time.Time{}
}

// Missed returns the total number of skipped ticks.
func (m *tickMonitor) Missed() uint64 {
	return m.missed
}
