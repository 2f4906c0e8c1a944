package deye_modbus

import (
	"fmt"
	"slices"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Deye SUN-xK-SG0xLP3 / Sol-Ark holding register map (subset).
const (
	regDeviceType      = 0
	regCommVersion     = 2
	regSerialNumber    = 3 // 5 registers, ASCII
	regRatedPower      = 20
	regBatteryFloatV   = 101 // 0.01 V
	regBatteryCapacity = 102 // Ah
	regTimeOfUseEnable = 146
	regCapacityPoint1  = 166 // Prog1 capacity, SoC percent
	regBatterySoC      = 588 // percent
	regLoadPower       = 653 // W, int16
	regPV1Power        = 672 // W
	regPV2Power        = 673 // W
)

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

type deyeModbusClient struct {
	client     *modbus.ModbusClient
	unitId     uint8
	logger     *zap.Logger
	instrument []ModbusInstrument
}

// CreateDeyeInverterController connects an InverterController to a Deye
// family inverter reachable over Modbus TCP.
func CreateDeyeInverterController(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrument []ModbusInstrument) (InverterController, error) {

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return &deyeModbusClient{
		client:     client,
		unitId:     unitId,
		logger:     logger.With(zap.String("component", "deye_modbus")),
		instrument: instrument,
	}, nil
}

func (c *deyeModbusClient) Open() error {
	err := c.client.Open()
	if err != nil {
		return err
	}
	return c.client.SetUnitId(c.unitId)
}

func (c *deyeModbusClient) Close() error {
	return c.client.Close()
}

func (c *deyeModbusClient) GetInfo() (*InverterInfo, error) {
	serial, err := c.readString(regSerialNumber, 5)
	if err != nil {
		return nil, err
	}
	version, err := c.readRegister(regCommVersion)
	if err != nil {
		return nil, err
	}
	rated, err := c.readUint32(regRatedPower)
	if err != nil {
		return nil, err
	}
	return &InverterInfo{
		Manufacturer:      "Deye",
		Model:             "SUN Hybrid",
		Serial:            serial,
		Version:           fmt.Sprintf("%d.%02d", version>>8, version&0xff),
		MaxRatedPowerWatt: rated / 10,
	}, nil
}

func (c *deyeModbusClient) GetBatteryState() (*BatteryState, error) {
	capAh, err := c.readRegister(regBatteryCapacity)
	if err != nil {
		return nil, err
	}
	floatV, err := c.readRegister(regBatteryFloatV)
	if err != nil {
		return nil, err
	}
	soc, err := c.readRegister(regBatterySoC)
	if err != nil {
		return nil, err
	}
	return &BatteryState{
		CapacityAh:         uint32(capAh),
		FloatChargeVoltage: float64(floatV) / 100,
		StateOfChargePct:   float64(soc),
	}, nil
}

func (c *deyeModbusClient) GetPowerState() (*PowerState, error) {
	load, err := c.readRegister(regLoadPower)
	if err != nil {
		return nil, err
	}
	pv, err := c.readRegisters(regPV1Power, 2)
	if err != nil {
		return nil, err
	}
	return &PowerState{
		LoadPowerWatt: float64(int16(load)),
		PVPowerWatt:   float64(pv[0]) + float64(pv[1]),
	}, nil
}

func (c *deyeModbusClient) GetCapacityPoint() (uint8, error) {
	v, err := c.readRegister(regCapacityPoint1)
	if err != nil {
		return 0, err
	}
	if v > 100 {
		return 0, fmt.Errorf("deye: capacity point out of range: %d", v)
	}
	return uint8(v), nil
}

func (c *deyeModbusClient) SetCapacityPoint(percent uint8) error {
	if percent > 100 {
		return fmt.Errorf("deye: capacity point out of range: %d", percent)
	}
	return c.writeRegister(regCapacityPoint1, uint16(percent))
}

func (c *deyeModbusClient) GetTimeOfUseEnabled() (bool, error) {
	v, err := c.readRegister(regTimeOfUseEnable)
	if err != nil {
		return false, err
	}
	return v&0x0001 != 0, nil
}

func (c *deyeModbusClient) SetTimeOfUseEnabled(enabled bool) error {
	var v uint16
	if enabled {
		v = 1
	}
	return c.writeRegister(regTimeOfUseEnable, v)
}

func (c *deyeModbusClient) readString(address uint16, size uint16) (string, error) {
	bytes, err := c.readRawBytes(address, size)
	if err != nil {
		return "", err
	}
	f := slices.Index(bytes, 0x00)
	if f >= 0 {
		return string(bytes[:f]), nil
	}
	return string(bytes), nil
}

func (c *deyeModbusClient) readRegister(addr uint16) (uint16, error) {
	defer RecordTimer("ReadRegister", c.instrument)()
	return c.client.ReadRegister(addr, modbus.HOLDING_REGISTER)
}

func (c *deyeModbusClient) readRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	return c.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

func (c *deyeModbusClient) readUint32(addr uint16) (uint32, error) {
	defer RecordTimer("ReadUint32", c.instrument)()
	return c.client.ReadUint32(addr, modbus.HOLDING_REGISTER)
}

func (c *deyeModbusClient) readRawBytes(addr uint16, quantity uint16) ([]byte, error) {
	defer RecordTimer("ReadRawBytes", c.instrument)()
	return c.client.ReadRawBytes(addr, quantity, modbus.HOLDING_REGISTER)
}

func (c *deyeModbusClient) writeRegister(addr uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	return c.client.WriteRegister(addr, value)
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
