package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

const gatewayRequestTimeout = 5 * time.Second

// ModbusGateway adapts the modbus actor to port.InverterGateway so the
// scheduler service can run register transactions from a background task.
// Requests go through the root context, which is safe off the actor thread.
type ModbusGateway struct {
	root        *actor.RootContext
	modbusActor *actor.PID
}

var _ port.InverterGateway = (*ModbusGateway)(nil)

func NewModbusGateway(root *actor.RootContext, modbusActor *actor.PID) *ModbusGateway {
	return &ModbusGateway{root: root, modbusActor: modbusActor}
}

func (g *ModbusGateway) BatteryState(ctx context.Context) (*deye_modbus.BatteryState, error) {
	resp, err := request[domain.GetBatteryStateResponse](g, domain.GetBatteryStateRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Battery, nil
}

func (g *ModbusGateway) PowerState(ctx context.Context) (*deye_modbus.PowerState, error) {
	resp, err := request[domain.GetBatteryStateResponse](g, domain.GetBatteryStateRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Power, nil
}

func (g *ModbusGateway) CapacityPoint(ctx context.Context) (uint8, error) {
	resp, err := request[domain.GetCapacityPointResponse](g, domain.GetCapacityPointRequest{})
	if err != nil {
		return 0, err
	}
	return resp.Percent, nil
}

func (g *ModbusGateway) SetCapacityPoint(ctx context.Context, percent uint8) error {
	_, err := request[domain.SetCapacityPointResponse](g, domain.SetCapacityPointRequest{Percent: percent})
	return err
}

func (g *ModbusGateway) TimeOfUseEnabled(ctx context.Context) (bool, error) {
	resp, err := request[domain.GetTimeOfUseResponse](g, domain.GetTimeOfUseRequest{})
	if err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

func (g *ModbusGateway) SetTimeOfUseEnabled(ctx context.Context, enabled bool) error {
	_, err := request[domain.SetTimeOfUseResponse](g, domain.SetTimeOfUseRequest{Enabled: enabled})
	return err
}

func request[T domain.ActorResponse](g *ModbusGateway, msg any) (T, error) {
	var zero T
	result, err := g.root.RequestFuture(g.modbusActor, msg, gatewayRequestTimeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected modbus response type %T", result)
	}
	if resp.HasResponseError() {
		return zero, resp.GetResponseError()
	}
	return resp, nil
}
