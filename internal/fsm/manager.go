package fsm

// NextManagerMode computes the manager transition for one tick. sensorOK is
// the latched sensor health from the previous tick, read before this tick's
// sensor update. The function is total: every mode and input combination
// yields exactly one next mode.
func NextManagerMode(mode ManagerMode, sensorOK, standby, apfail, supported bool) ManagerMode {
	switch mode {
	case ManagerTransition:
		if standby {
			return ManagerStandby
		}
		if supported && sensorOK {
			return ManagerNominal
		}
		return ManagerTransition
	case ManagerNominal:
		if standby {
			return ManagerStandby
		}
		if !sensorOK {
			return ManagerManeuver
		}
		return ManagerNominal
	case ManagerManeuver:
		if standby && sensorOK {
			return ManagerStandby
		}
		if supported && sensorOK {
			return ManagerTransition
		}
		return ManagerManeuver
	case ManagerStandby:
		if apfail {
			return ManagerManeuver
		}
		if !standby {
			return ManagerTransition
		}
		return ManagerStandby
	default:
		return mode
	}
}

// OutputsFor maps the manager mode just computed this tick to the output
// flags. Pullup is asserted exactly in maneuver mode.
func OutputsFor(mode ManagerMode) Outputs {
	switch mode {
	case ManagerTransition:
		return Outputs{Healthy: false, SensorNominal: true, Pullup: false}
	case ManagerNominal:
		return Outputs{Healthy: true, SensorNominal: true, Pullup: false}
	case ManagerManeuver:
		return Outputs{Healthy: true, SensorNominal: false, Pullup: true}
	case ManagerStandby:
		return Outputs{Healthy: true, SensorNominal: false, Pullup: false}
	default:
		return Outputs{}
	}
}
