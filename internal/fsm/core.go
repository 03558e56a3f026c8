// Package fsm implements the supervisory decision core: a manager state
// machine that owns the pullup alert, a sensor health state machine, and
// the one-tick delay registers coupling them. The core is synchronous and
// total; one Step call consumes one tick's inputs and always completes.
package fsm

// Core holds the three delay registers carried between ticks. It is owned
// by the caller; there is no package-level state. The zero value has the
// sensor-ok latch cleared; use NewCore or Initialize to get the initial
// conditions.
type Core struct {
	manager  ManagerMode
	sensor   SensorMode
	sensorOK bool
}

// NewCore returns an initialized core.
func NewCore() *Core {
	c := &Core{}
	c.Initialize()
	return c
}

// Initialize resets the delay registers to their initial conditions:
// manager in transition, sensor nominal, sensor-ok latch set.
func (c *Core) Initialize() {
	c.manager = ManagerTransition
	c.sensor = SensorNominal
	c.sensorOK = true
}

// Step runs one tick. The manager transition reads the sensor-ok latch
// from the previous tick; the sensor transition reads the output flags
// just derived from the new manager mode. All three registers commit at
// the end, so a step is deterministic in (state, inputs) and cannot
// partially fail.
func (c *Core) Step(in Inputs) bool {
	manager := NextManagerMode(c.manager, c.sensorOK, in.Standby, in.APFail, in.Supported)
	outputs := OutputsFor(manager)
	sensor := NextSensorMode(c.sensor, outputs.Healthy, outputs.SensorNominal, in.Limits)

	c.manager = manager
	c.sensor = sensor
	c.sensorOK = sensor != SensorFault

	return outputs.Pullup
}

// Manager returns the manager mode as of the last step.
func (c *Core) Manager() ManagerMode { return c.manager }

// Sensor returns the sensor mode as of the last step.
func (c *Core) Sensor() SensorMode { return c.sensor }

// SensorOK returns the latched sensor health that the next step's manager
// transition will read.
func (c *Core) SensorOK() bool { return c.sensorOK }

// Snapshot returns the externally observable state after the last step.
// The output flags are a pure function of the manager mode, so they are
// derived rather than stored.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		Manager:  c.manager,
		Sensor:   c.sensor,
		SensorOK: c.sensorOK,
		Outputs:  OutputsFor(c.manager),
	}
}
