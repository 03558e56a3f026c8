package service

import (
	"time"

	"github.com/flightcore/ap-supervisor/internal/fsm"
)

// EventType represents the type of event in the system
type EventType int

const (
	EventInputChanged EventType = iota
	EventFrameReceived
	EventCommand
	EventConfigChanged
)

// Event represents an event in the system
type Event struct {
	Type EventType
	Data interface{}
}

// InputChangedData carries one updated field of the autopilot input hash
type InputChangedData struct {
	Field string
	Value bool
}

// FrameReceivedData carries one raw telemetry frame
type FrameReceivedData struct {
	Raw []byte
}

// CommandData carries a supervisor command
type CommandData struct {
	Command string
}

// ConfigChangedData carries reloadable settings from the config file
type ConfigChangedData struct {
	TickPeriod   time.Duration
	EscalateUnit string
}

// Input hash fields
const (
	FieldStandby   = "standby"
	FieldAPFail    = "apfail"
	FieldSupported = "supported"
	FieldLimits    = "limits"
)

// InputFields lists the hash fields in a fixed order.
var InputFields = []string{FieldStandby, FieldAPFail, FieldSupported, FieldLimits}

// SetField returns inputs with the named field replaced. Unknown fields
// leave the inputs unchanged.
func SetField(in fsm.Inputs, field string, value bool) fsm.Inputs {
	switch field {
	case FieldStandby:
		in.Standby = value
	case FieldAPFail:
		in.APFail = value
	case FieldSupported:
		in.Supported = value
	case FieldLimits:
		in.Limits = value
	}
	return in
}

// ParseBool interprets the input hash's string values.
func ParseBool(value string) bool {
	switch value {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}
