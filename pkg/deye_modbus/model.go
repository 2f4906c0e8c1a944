// Package deye_modbus reads and controls Deye/Sunsynk/Sol-Ark hybrid
// inverters over Modbus TCP. Only the subset of the register map needed for
// grid boost scheduling is implemented: battery identity and state of
// charge, live load/PV power, the time-of-use enable switch and the first
// time-of-use capacity point.
package deye_modbus

type InverterInfo struct {
	Manufacturer      string
	Model             string
	Serial            string
	Version           string
	MaxRatedPowerWatt uint32
}

type BatteryState struct {
	// CapacityAh is the rated battery capacity in ampere-hours.
	CapacityAh uint32
	// FloatChargeVoltage is the configured float charge voltage in volts.
	FloatChargeVoltage float64
	// StateOfChargePct is the reported state of charge in percent (0-100).
	StateOfChargePct float64
}

// CapacityWh derives the usable battery capacity in watt-hours.
func (b BatteryState) CapacityWh() float64 {
	return float64(b.CapacityAh) * b.FloatChargeVoltage
}

type PowerState struct {
	LoadPowerWatt float64
	PVPowerWatt   float64
}

// InverterController is the device capability consumed by the scheduler:
// battery telemetry plus the two writable time-of-use controls.
type InverterController interface {
	Open() error
	Close() error

	GetInfo() (*InverterInfo, error)
	GetBatteryState() (*BatteryState, error)
	GetPowerState() (*PowerState, error)

	// GetCapacityPoint returns the first time-of-use capacity point
	// (battery SoC percent the inverter holds during the boost window).
	GetCapacityPoint() (uint8, error)
	SetCapacityPoint(percent uint8) error

	// Time-of-use master switch. Capacity points have no effect while
	// this is off.
	GetTimeOfUseEnabled() (bool, error)
	SetTimeOfUseEnabled(enabled bool) error
}
