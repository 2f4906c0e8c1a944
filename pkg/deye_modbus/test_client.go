package deye_modbus

func CreateTestInverterController() (InverterController, error) {
	return &TestInverterController{
		CapacityPoint: 20,
		TimeOfUse:     true,
		StateOfCharge: 56,
	}, nil
}

// TestInverterController is an in-memory controller for tests. Writes are
// remembered so assertions can observe them.
type TestInverterController struct {
	CapacityPoint uint8
	TimeOfUse     bool
	StateOfCharge float64
	Fail          error
}

func (inv *TestInverterController) Open() error {
	return inv.Fail
}

func (inv *TestInverterController) Close() error {
	return nil
}

func (inv *TestInverterController) GetInfo() (*InverterInfo, error) {
	if inv.Fail != nil {
		return nil, inv.Fail
	}
	return &InverterInfo{
		Manufacturer:      "Deye",
		Model:             "SUN-6K-SG04LP3",
		Serial:            "2301015678",
		Version:           "1.53",
		MaxRatedPowerWatt: 6000,
	}, nil
}

func (inv *TestInverterController) GetBatteryState() (*BatteryState, error) {
	if inv.Fail != nil {
		return nil, inv.Fail
	}
	return &BatteryState{
		CapacityAh:         100,
		FloatChargeVoltage: 53.2,
		StateOfChargePct:   inv.StateOfCharge,
	}, nil
}

func (inv *TestInverterController) GetPowerState() (*PowerState, error) {
	if inv.Fail != nil {
		return nil, inv.Fail
	}
	return &PowerState{
		LoadPowerWatt: 840,
		PVPowerWatt:   1620,
	}, nil
}

func (inv *TestInverterController) GetCapacityPoint() (uint8, error) {
	if inv.Fail != nil {
		return 0, inv.Fail
	}
	return inv.CapacityPoint, nil
}

func (inv *TestInverterController) SetCapacityPoint(percent uint8) error {
	if inv.Fail != nil {
		return inv.Fail
	}
	inv.CapacityPoint = percent
	return nil
}

func (inv *TestInverterController) GetTimeOfUseEnabled() (bool, error) {
	if inv.Fail != nil {
		return false, inv.Fail
	}
	return inv.TimeOfUse, nil
}

func (inv *TestInverterController) SetTimeOfUseEnabled(enabled bool) error {
	if inv.Fail != nil {
		return inv.Fail
	}
	inv.TimeOfUse = enabled
	return nil
}
