package events

import (
	. "github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// SnapshotToUpdateEvents flattens a scheduler snapshot into the sensor
// update events published after every cycle.
func SnapshotToUpdateEvents(snap *Snapshot) []any {
	var events []any

	// Scheduler status
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BOOST_STATUS,
		},
		Value: snap.Status,
	})
	// Forecaster status
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FORECASTER_STATUS,
		},
		Value: snap.ForecasterStatus,
	})
	// Calculated boost SoC
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CALCULATED_BOOST_SOC,
		},
		Value: float64(snap.CalculatedSoC),
	})
	// Boost SoC written to the inverter
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_ACTUAL_BOOST_SOC,
		},
		Value: snap.ActualSoC,
	})
	// Battery SoC
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC,
		},
		Value:    snap.BatterySoC,
		Decimals: 1,
	})
	// Battery time remaining
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_TIME_REMAINING,
		},
		Value:    snap.BatteryTimeLeft,
		Decimals: 1,
	})
	// Battery exhaustion timestamp, empty when not discharging
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_EXHAUSTED,
		},
		Value: snap.BatteryExhausted,
	})
	// Adjusted PV forecast totals
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV_FORECAST_TODAY,
		},
		Value: float64(snap.PVTodayTotal),
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV_FORECAST_TOMORROW,
		},
		Value: float64(snap.PVTomorrowTotal),
	})
	// Adjusted PV power for the current hour
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV_POWER_NOW,
		},
		Value: float64(snap.CalculatedPVNow),
	})
	// Control states
	events = append(events, BoostModeUpdateEvent(snap.Mode))
	events = append(events, ManualBoostSoCUpdateEvent(uint(snap.ManualSoC)))

	return events
}

func BoostModeUpdateEvent(mode BoostMode) SelectSensorUpdateEvent {
	return SelectSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SELECT_ID_BOOST_MODE,
		},
		Value: string(mode),
	}
}

func ManualBoostSoCUpdateEvent(soc uint) InputNumberSensorUpdateEvent {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_MANUAL_BOOST_SOC,
		},
		Value: float64(soc),
	}
}

func TimeOfUseSwitchUpdateEvent(enabled bool) SwitchSensorUpdateEvent {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_TIME_OF_USE,
		},
		Value: enabled,
	}
}
