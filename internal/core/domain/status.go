package domain

import "fmt"

// Status reports the operating condition of the scheduler or one of its
// upstream capabilities.
type Status int

const (
	StatusNotConfigured Status = iota
	StatusFault
	StatusNormal
	StatusStarting
	StatusRateLimited
	StatusActuatorOff
)

func (s Status) String() string {
	switch s {
	case StatusNotConfigured:
		return "NOT_CONFIGURED"
	case StatusFault:
		return "FAULT"
	case StatusNormal:
		return "NORMAL"
	case StatusStarting:
		return "STARTING"
	case StatusRateLimited:
		return "RATE_LIMITED"
	case StatusActuatorOff:
		return "ACTUATOR_OFF"
	default:
		return "UNKNOWN"
	}
}

// BoostMode selects which boost value, if any, is written to the inverter.
type BoostMode string

const (
	BoostModeAutomatic BoostMode = "automatic"
	BoostModeManual    BoostMode = "manual"
	BoostModeOff       BoostMode = "off"
	BoostModeTesting   BoostMode = "testing"
)

func ParseBoostMode(s string) (BoostMode, error) {
	switch BoostMode(s) {
	case BoostModeAutomatic, BoostModeManual, BoostModeOff, BoostModeTesting:
		return BoostMode(s), nil
	}
	return "", fmt.Errorf("invalid boost mode %q", s)
}

// WritesToActuator reports whether the mode allows writing a capacity point.
func (m BoostMode) WritesToActuator() bool {
	return m == BoostModeAutomatic || m == BoostModeManual
}

// Core calculation defaults. Values mirror the Deye/Sunsynk/Sol-Ark
// inverter family the integration was built around.
const (
	DefaultPVMaxDays             = 21
	DefaultLoadAverageDays       = 4
	DefaultLoadEstimateWatt      = 1000
	DefaultInverterEfficiencyPct = 96.6
	DefaultMinimumSoCPercent     = 20
	DefaultBoostSoCPercent       = 50
	DefaultUpdateHour            = 22
	DontBoostBeforeHour          = 6
	MaxBoostSoCPercent           = 99

	// Hours where the battery reported at or above this SoC are not
	// trusted for ratio calculation: a saturated battery silently caps
	// recorded PV regardless of true generation.
	SoCSaturationThresholdPct = 98
)
