package fsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flightcore/ap-supervisor/internal/fsm"
)

func TestNextSensorMode(t *testing.T) {
	tests := []struct {
		name          string
		mode          fsm.SensorMode
		healthy       bool
		sensorNominal bool
		limits        bool
		want          fsm.SensorMode
	}{
		{"nominal: limit violation latches fault", fsm.SensorNominal, true, true, true, fsm.SensorFault},
		{"nominal: limits win over flag drop", fsm.SensorNominal, true, false, true, fsm.SensorFault},
		{"nominal: flag drop enters transition", fsm.SensorNominal, true, false, false, fsm.SensorTransition},
		{"nominal: stays", fsm.SensorNominal, true, true, false, fsm.SensorNominal},

		{"transition: both flags recover", fsm.SensorTransition, true, true, false, fsm.SensorNominal},
		{"transition: healthy alone not enough", fsm.SensorTransition, true, false, false, fsm.SensorTransition},
		{"transition: nominal flag alone not enough", fsm.SensorTransition, false, true, false, fsm.SensorTransition},

		{"fault: flag drop clears", fsm.SensorFault, true, false, true, fsm.SensorTransition},
		{"fault: limits clearing clears", fsm.SensorFault, true, true, false, fsm.SensorTransition},
		{"fault: holds while nominal flag and limits persist", fsm.SensorFault, true, true, true, fsm.SensorFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fsm.NextSensorMode(tt.mode, tt.healthy, tt.sensorNominal, tt.limits)
			assert.Equal(t, tt.want, got)
		})
	}
}
