// Package frame validates the 19-byte telemetry frames that carry the
// supervisor's discrete inputs and decodes them.
package frame

import (
	"github.com/flightcore/ap-supervisor/internal/fsm"
)

// Frame layout.
const (
	Length        = 19
	headerByte0   = 0xAC
	headerByte1   = 0x12
	statusIndex   = 2
	counterIndex  = 17
	checksumIndex = 18
)

// Status word bits.
const (
	bitStandby = 1 << iota
	bitAPFail
	bitSupported
	bitLimits
)

// Stats holds per-cause reject counters. The consecutive counters reset
// whenever the corresponding check passes; the totals only grow.
type Stats struct {
	BadLength   uint32
	Stale       uint32
	BadHeader   uint32
	BadChecksum uint32

	TotalBadLength   uint32
	TotalStale       uint32
	TotalBadHeader   uint32
	TotalBadChecksum uint32

	Accepted uint32
}

// Validator checks frames in arrival order. Checks run length, staleness,
// header, checksum; the first failing check rejects the frame and bumps
// its counters. A frame whose counter byte equals the previous frame's is
// stale and carries no new sample.
type Validator struct {
	lastCounter byte
	stats       Stats
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks one frame and, when it is acceptable, decodes the
// discrete inputs from its status word.
func (v *Validator) Validate(buf []byte) (fsm.Inputs, bool) {
	if len(buf) != Length {
		v.stats.BadLength++
		v.stats.TotalBadLength++
		return fsm.Inputs{}, false
	}
	v.stats.BadLength = 0

	if buf[counterIndex] == v.lastCounter {
		v.stats.Stale++
		v.stats.TotalStale++
		return fsm.Inputs{}, false
	}
	v.stats.Stale = 0
	v.lastCounter = buf[counterIndex]

	if buf[0] != headerByte0 || buf[1] != headerByte1 {
		v.stats.BadHeader++
		v.stats.TotalBadHeader++
		return fsm.Inputs{}, false
	}
	v.stats.BadHeader = 0

	if checksumAdd8(buf[:checksumIndex]) != buf[checksumIndex] {
		v.stats.BadChecksum++
		v.stats.TotalBadChecksum++
		return fsm.Inputs{}, false
	}
	v.stats.BadChecksum = 0
	v.stats.Accepted++

	return decodeStatus(buf[statusIndex]), true
}

// Stats returns a copy of the current counters.
func (v *Validator) Stats() Stats {
	return v.stats
}

func decodeStatus(status byte) fsm.Inputs {
	return fsm.Inputs{
		Standby:   status&bitStandby != 0,
		APFail:    status&bitAPFail != 0,
		Supported: status&bitSupported != 0,
		Limits:    status&bitLimits != 0,
	}
}

// checksumAdd8 is the 8-bit additive checksum over the frame body.
func checksumAdd8(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b
	}
	return sum
}

// Encode builds a valid frame for the given inputs and counter value.
// Intended for tests and simulation feeds.
func Encode(in fsm.Inputs, counter byte) []byte {
	buf := make([]byte, Length)
	buf[0] = headerByte0
	buf[1] = headerByte1

	var status byte
	if in.Standby {
		status |= bitStandby
	}
	if in.APFail {
		status |= bitAPFail
	}
	if in.Supported {
		status |= bitSupported
	}
	if in.Limits {
		status |= bitLimits
	}
	buf[statusIndex] = status
	buf[counterIndex] = counter
	buf[checksumIndex] = checksumAdd8(buf[:checksumIndex])
	return buf
}
