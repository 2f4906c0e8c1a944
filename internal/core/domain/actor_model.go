package domain

import "github.com/acasal/gridboost2mqtt/pkg/deye_modbus"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MODBUS       = "modbus"
	ACTOR_ID_SCHEDULER    = "scheduler"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetInverterInfoRequest struct {
	ActorRequestMixIn
}

type GetInverterInfoResponse struct {
	ActorResponseMixIn
	Inverter *deye_modbus.InverterInfo
}

type GetBatteryStateRequest struct {
	ActorRequestMixIn
}

type GetBatteryStateResponse struct {
	ActorResponseMixIn
	Battery *deye_modbus.BatteryState
	Power   *deye_modbus.PowerState
}

type GetCapacityPointRequest struct {
	ActorRequestMixIn
}

type GetCapacityPointResponse struct {
	ActorResponseMixIn
	Percent uint8
}

type SetCapacityPointRequest struct {
	ActorRequestMixIn
	Percent uint8
}

type SetCapacityPointResponse struct {
	ActorResponseMixIn
}

type GetTimeOfUseRequest struct {
	ActorRequestMixIn
}

type GetTimeOfUseResponse struct {
	ActorResponseMixIn
	Enabled bool
}

type SetTimeOfUseRequest struct {
	ActorRequestMixIn
	Enabled bool
}

type SetTimeOfUseResponse struct {
	ActorResponseMixIn
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot *Snapshot
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	Selects      []GenericSelect
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
