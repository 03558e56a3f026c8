package fsm

// ManagerMode is the supervisory machine's operating mode.
type ManagerMode int

const (
	ManagerTransition ManagerMode = iota
	ManagerNominal
	ManagerManeuver
	ManagerStandby
)

func (m ManagerMode) String() string {
	switch m {
	case ManagerTransition:
		return "transition"
	case ManagerNominal:
		return "nominal"
	case ManagerManeuver:
		return "maneuver"
	case ManagerStandby:
		return "standby"
	default:
		return "unknown"
	}
}

// SensorMode is the health-monitoring machine's mode. The numeric values
// match the transition table of the sensor machine; they must not be
// reordered.
type SensorMode int

const (
	SensorNominal SensorMode = iota
	SensorTransition
	SensorFault
)

func (s SensorMode) String() string {
	switch s {
	case SensorNominal:
		return "nominal"
	case SensorTransition:
		return "transition"
	case SensorFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Inputs is one tick's worth of discrete inputs.
type Inputs struct {
	Standby   bool // pilot has taken control
	APFail    bool // external autopilot failure indication
	Supported bool // system health indication
	Limits    bool // sensor limit violation
}

// Outputs are the flags derived from the manager mode each tick.
// Pullup is the externally visible alert.
type Outputs struct {
	Healthy       bool
	SensorNominal bool
	Pullup        bool
}

// Snapshot is the externally observable state after a step.
type Snapshot struct {
	Manager  ManagerMode
	Sensor   SensorMode
	SensorOK bool
	Outputs  Outputs
}
