package fsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/ap-supervisor/internal/fsm"
)

func TestInitialConditions(t *testing.T) {
	core := fsm.NewCore()
	assert.Equal(t, fsm.ManagerTransition, core.Manager())
	assert.Equal(t, fsm.SensorNominal, core.Sensor())
	assert.True(t, core.SensorOK())
}

// A limit violation latches the sensor machine one tick before the manager
// reacts: the manager reads the latch from the previous tick, so pullup
// stays low on the violating tick itself.
func TestLimitViolationLatchesOneTickLate(t *testing.T) {
	core := fsm.NewCore()

	// Drive the manager into nominal first.
	core.Step(fsm.Inputs{Supported: true})
	require.Equal(t, fsm.ManagerNominal, core.Manager())
	require.True(t, core.SensorOK())

	pullup := core.Step(fsm.Inputs{Supported: true, Limits: true})
	assert.False(t, pullup, "pullup must stay low on the violating tick")
	assert.Equal(t, fsm.ManagerNominal, core.Manager())
	assert.Equal(t, fsm.SensorFault, core.Sensor())
	assert.False(t, core.SensorOK())

	// Next tick the manager sees the stale latch and escalates.
	pullup = core.Step(fsm.Inputs{Supported: true, Limits: true})
	assert.True(t, pullup)
	assert.Equal(t, fsm.ManagerManeuver, core.Manager())
}

func TestStandbyOverridesEverythingInTransition(t *testing.T) {
	for _, in := range []fsm.Inputs{
		{Standby: true},
		{Standby: true, APFail: true},
		{Standby: true, Supported: true, Limits: true},
	} {
		core := fsm.NewCore()
		core.Step(in)
		assert.Equal(t, fsm.ManagerStandby, core.Manager(), "inputs %+v", in)
	}
}

func TestSupportedEntersNominal(t *testing.T) {
	core := fsm.NewCore()
	core.Step(fsm.Inputs{Supported: true})
	assert.Equal(t, fsm.ManagerNominal, core.Manager())
}

func TestStaleSensorLatchForcesManeuver(t *testing.T) {
	core := fsm.NewCore()

	// Nominal, then fault the sensor to clear the latch.
	core.Step(fsm.Inputs{Supported: true})
	core.Step(fsm.Inputs{Supported: true, Limits: true})
	require.Equal(t, fsm.ManagerNominal, core.Manager())
	require.False(t, core.SensorOK())

	pullup := core.Step(fsm.Inputs{Supported: true, Limits: true})
	assert.Equal(t, fsm.ManagerManeuver, core.Manager())
	assert.True(t, pullup)
	assert.True(t, core.Snapshot().Outputs.Pullup)
}

func TestAPFailBeatsStandbyRelease(t *testing.T) {
	core := fsm.NewCore()
	core.Step(fsm.Inputs{Standby: true})
	require.Equal(t, fsm.ManagerStandby, core.Manager())

	core.Step(fsm.Inputs{APFail: true})
	assert.Equal(t, fsm.ManagerManeuver, core.Manager())
}

func TestStepIsDeterministic(t *testing.T) {
	for input := 0; input < 16; input++ {
		in := inputsFromBits(input)

		a := fsm.NewCore()
		b := fsm.NewCore()
		// Same prefix of steps, then the probed input.
		prefix := []fsm.Inputs{{Supported: true}, {Limits: true}, {Standby: true}}
		for _, p := range prefix {
			a.Step(p)
			b.Step(p)
		}

		pa := a.Step(in)
		pb := b.Step(in)
		assert.Equal(t, pa, pb)
		assert.Equal(t, a.Snapshot(), b.Snapshot())
	}
}

func TestSensorOKTracksSensorMode(t *testing.T) {
	core := fsm.NewCore()
	for input := 0; input < 16; input++ {
		core.Step(inputsFromBits(input))
		assert.Equal(t, core.Sensor() != fsm.SensorFault, core.SensorOK())
	}
}

func TestInitializeResetsAfterUse(t *testing.T) {
	core := fsm.NewCore()
	core.Step(fsm.Inputs{Standby: true})
	core.Step(fsm.Inputs{APFail: true, Limits: true})

	core.Initialize()
	assert.Equal(t, fsm.ManagerTransition, core.Manager())
	assert.Equal(t, fsm.SensorNominal, core.Sensor())
	assert.True(t, core.SensorOK())
}

func inputsFromBits(bits int) fsm.Inputs {
	return fsm.Inputs{
		Standby:   bits&1 != 0,
		APFail:    bits&2 != 0,
		Supported: bits&4 != 0,
		Limits:    bits&8 != 0,
	}
}
