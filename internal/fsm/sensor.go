package fsm

// NextSensorMode computes the sensor health transition for one tick.
// healthy and sensorNominal are the output flags produced earlier in the
// same tick, not delayed values.
func NextSensorMode(mode SensorMode, healthy, sensorNominal, limits bool) SensorMode {
	switch mode {
	case SensorNominal:
		if limits {
			return SensorFault
		}
		if !sensorNominal {
			return SensorTransition
		}
		return SensorNominal
	case SensorTransition:
		if healthy && sensorNominal {
			return SensorNominal
		}
		return SensorTransition
	case SensorFault:
		if !sensorNominal || !limits {
			return SensorTransition
		}
		return SensorFault
	default:
		return mode
	}
}
