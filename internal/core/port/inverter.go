package port

import (
	"context"

	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

// InverterGateway is the scheduler's view of the inverter. The production
// implementation proxies requests through the modbus actor.
type InverterGateway interface {
	BatteryState(ctx context.Context) (*deye_modbus.BatteryState, error)
	PowerState(ctx context.Context) (*deye_modbus.PowerState, error)
	CapacityPoint(ctx context.Context) (uint8, error)
	SetCapacityPoint(ctx context.Context, percent uint8) error
	TimeOfUseEnabled(ctx context.Context) (bool, error)
	SetTimeOfUseEnabled(ctx context.Context, enabled bool) error
}
