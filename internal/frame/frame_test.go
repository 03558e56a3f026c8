package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/ap-supervisor/internal/frame"
	"github.com/flightcore/ap-supervisor/internal/fsm"
)

func TestValidFrameDecodes(t *testing.T) {
	v := frame.NewValidator()
	in := fsm.Inputs{Standby: true, Supported: true}

	got, ok := v.Validate(frame.Encode(in, 1))
	require.True(t, ok)
	assert.Equal(t, in, got)
	assert.Equal(t, uint32(1), v.Stats().Accepted)
}

func TestRejectsWrongLength(t *testing.T) {
	v := frame.NewValidator()
	_, ok := v.Validate(make([]byte, 7))
	assert.False(t, ok)
	assert.Equal(t, uint32(1), v.Stats().BadLength)
	assert.Equal(t, uint32(1), v.Stats().TotalBadLength)
}

func TestRejectsStaleCounter(t *testing.T) {
	v := frame.NewValidator()
	buf := frame.Encode(fsm.Inputs{Limits: true}, 5)

	_, ok := v.Validate(buf)
	require.True(t, ok)

	// Same counter again: no new sample.
	_, ok = v.Validate(buf)
	assert.False(t, ok)
	assert.Equal(t, uint32(1), v.Stats().Stale)

	_, ok = v.Validate(frame.Encode(fsm.Inputs{Limits: true}, 6))
	assert.True(t, ok)
	assert.Zero(t, v.Stats().Stale, "consecutive stale counter resets on a fresh frame")
	assert.Equal(t, uint32(1), v.Stats().TotalStale)
}

func TestRejectsBadHeader(t *testing.T) {
	v := frame.NewValidator()
	buf := frame.Encode(fsm.Inputs{}, 1)
	buf[0] = 0x00

	_, ok := v.Validate(buf)
	assert.False(t, ok)
	assert.Equal(t, uint32(1), v.Stats().BadHeader)
}

func TestRejectsBadChecksum(t *testing.T) {
	v := frame.NewValidator()
	buf := frame.Encode(fsm.Inputs{APFail: true}, 1)
	buf[18]++

	_, ok := v.Validate(buf)
	assert.False(t, ok)
	assert.Equal(t, uint32(1), v.Stats().BadChecksum)
	assert.Zero(t, v.Stats().Accepted)

	// A good frame clears the consecutive checksum counter.
	_, ok = v.Validate(frame.Encode(fsm.Inputs{APFail: true}, 2))
	require.True(t, ok)
	assert.Zero(t, v.Stats().BadChecksum)
	assert.Equal(t, uint32(1), v.Stats().TotalBadChecksum)
}

func TestStatusBitsRoundTrip(t *testing.T) {
	v := frame.NewValidator()
	for bits := 0; bits < 16; bits++ {
		in := fsm.Inputs{
			Standby:   bits&1 != 0,
			APFail:    bits&2 != 0,
			Supported: bits&4 != 0,
			Limits:    bits&8 != 0,
		}
		got, ok := v.Validate(frame.Encode(in, byte(bits+1)))
		require.True(t, ok, "bits %04b", bits)
		assert.Equal(t, in, got)
	}
}
