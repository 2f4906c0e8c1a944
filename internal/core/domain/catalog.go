package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"

	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

const (
	SENSOR_ID_BRIDGE_STATE             = "bridge"
	SENSOR_ID_BOOST_STATUS             = "boost_status"
	SENSOR_ID_FORECASTER_STATUS        = "forecaster_status"
	SENSOR_ID_CALCULATED_BOOST_SOC     = "calculated_boost_soc"
	SENSOR_ID_ACTUAL_BOOST_SOC         = "actual_boost_soc"
	SENSOR_ID_BATTERY_SOC              = "battery_soc"
	SENSOR_ID_BATTERY_TIME_REMAINING   = "battery_time_remaining"
	SENSOR_ID_BATTERY_EXHAUSTED        = "battery_exhausted"
	SENSOR_ID_PV_FORECAST_TODAY        = "pv_forecast_today"
	SENSOR_ID_PV_FORECAST_TOMORROW     = "pv_forecast_tomorrow"
	SENSOR_ID_PV_POWER_NOW             = "calculated_pv_now"
	SWITCH_ID_TIME_OF_USE              = "time_of_use"
	SELECT_ID_BOOST_MODE               = "boost_mode"
	INPUT_NUMBER_ID_MANUAL_BOOST_SOC   = "manual_boost_soc"
	STATE_CLASS_DURATION               = "duration"
	STATE_CLASS_MEASUREMENT            = "measurement"
	STATE_CLASS_TOTAL_INCREASING       = "total_increasing"
	DEVICE_CLASS_BATTERY               = "battery"
	DEVICE_CLASS_DURATION              = "duration"
	DEVICE_CLASS_ENERGY                = "energy"
	DEVICE_CLASS_POWER                 = "power"
	DEVICE_CLASS_TIMESTAMP             = "timestamp"
	DEVICE_CLASS_CONNECTIVITY          = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC            = "diagnostic"
	ENTITY_CLASS_CONFIG                = "config"
	SENSOR_TYPE_SENSOR                 = "sensor"
	SENSOR_TYPE_BINARY                 = "binary_sensor"
	INPUT_NUMBER_MODE_BOX              = "box"
	INPUT_NUMBER_MODE_SLIDER           = "slider"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("gridboost_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Gridboost",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Gridboost %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(info *deye_modbus.InverterInfo) Device {
	return Device{
		Id:           fmt.Sprintf("gb_inverter_%s", md5HashShort(info.Serial)),
		Version:      info.Version,
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s %s", info.Manufacturer, info.Model, md5HashShort(info.Serial)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BoostSensors(inverterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Scheduler status
	sensors = append(sensors, GenericSensor{
		Device:     inverterDevice,
		Id:         SENSOR_ID_BOOST_STATUS,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Grid boost status",
		UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_BOOST_STATUS),
	})

	// Forecaster status
	sensors = append(sensors, GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_FORECASTER_STATUS,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Forecaster status",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_FORECASTER_STATUS),
	})

	// Calculated boost SoC
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_CALCULATED_BOOST_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Calculated boost SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_CALCULATED_BOOST_SOC),
	})

	// Actual boost SoC written to the inverter
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_ACTUAL_BOOST_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Actual boost SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_ACTUAL_BOOST_SOC),
	})

	// Battery SoC
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	// Battery time remaining
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_TIME_REMAINING,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery time remaining",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "h",
		Icon:              "mdi:battery-clock",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_TIME_REMAINING),
	})

	// Battery exhaustion time
	sensors = append(sensors, GenericSensor{
		Device:      inverterDevice,
		Id:          SENSOR_ID_BATTERY_EXHAUSTED,
		SensorType:  SENSOR_TYPE_SENSOR,
		Name:        "Battery exhausted at",
		DeviceClass: DEVICE_CLASS_TIMESTAMP,
		UniqueId:    uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_EXHAUSTED),
	})

	// Adjusted PV forecast, today
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV_FORECAST_TODAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Adjusted PV forecast today",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV_FORECAST_TODAY),
	})

	// Adjusted PV forecast, tomorrow
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV_FORECAST_TOMORROW,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Adjusted PV forecast tomorrow",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV_FORECAST_TOMORROW),
	})

	// Adjusted PV power for the current hour
	sensors = append(sensors, GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV_POWER_NOW,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Adjusted PV power now",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV_POWER_NOW),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func BoostControlSwitches(inverterDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// Time of Use enable
	switches = append(switches, GenericSwitch{
		Device:   inverterDevice,
		Id:       SWITCH_ID_TIME_OF_USE,
		Name:     "Time of Use",
		UniqueId: uniqueId(inverterDevice.Id, SWITCH_ID_TIME_OF_USE),
		Icon:     "mdi:timer-cog",
	})

	return switches
}

func BoostControlSelects(inverterDevice Device) []GenericSelect {

	var selects []GenericSelect

	// Boost mode
	selects = append(selects, GenericSelect{
		Device:   inverterDevice,
		Id:       SELECT_ID_BOOST_MODE,
		Name:     "Grid boost mode",
		UniqueId: uniqueId(inverterDevice.Id, SELECT_ID_BOOST_MODE),
		Icon:     "mdi:battery-charging-high",
		Options: []string{
			string(BoostModeAutomatic),
			string(BoostModeManual),
			string(BoostModeOff),
			string(BoostModeTesting),
		},
	})

	return selects
}

func BoostControlInputNumbers(inverterDevice Device) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	// Manual boost SoC
	inputNumbers = append(inputNumbers, GenericInputNumber{
		Device:       inverterDevice,
		Id:           INPUT_NUMBER_ID_MANUAL_BOOST_SOC,
		Name:         "Manual boost SoC",
		UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_MANUAL_BOOST_SOC),
		Icon:         "mdi:ticket-percent",
		Max:          MaxBoostSoCPercent,
		Min:          0,
		Step:         1,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: DefaultBoostSoCPercent,
	})

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
