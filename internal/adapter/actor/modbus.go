package actor

import (
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/util/actorutil"
	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

// ModbusActor serializes access to the inverter's Modbus TCP connection.
// Each request runs in a background task while the actor stashes incoming
// traffic, so only one register transaction is in flight at a time.
type ModbusActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	inverter deye_modbus.InverterController
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(inverter deye_modbus.InverterController, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		inverter: inverter,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started")
		if err := state.inverter.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.inverter.Close()
	default:
		state.logger.Debug("modbus@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetInverterInfoRequest:
		state.logger.Debug("modbus@default: GetInverterInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getInverterInfo),
			mapTaskResult[domain.GetInverterInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetInverterInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.GetBatteryStateRequest:
		state.logger.Debug("modbus@default: GetBatteryStateRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getBatteryState),
			mapTaskResult[domain.GetBatteryStateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetBatteryStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.GetCapacityPointRequest:
		state.logger.Debug("modbus@default: GetCapacityPointRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getCapacityPoint),
			mapTaskResult[domain.GetCapacityPointResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetCapacityPointResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.SetCapacityPointRequest:
		state.logger.Debug("modbus@default: SetCapacityPointRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetCapacityPointResponse, error) {
			return state.setCapacityPoint(msg.Percent)
		}),
			mapTaskResult[domain.SetCapacityPointResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetCapacityPointResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.GetTimeOfUseRequest:
		state.logger.Debug("modbus@default: GetTimeOfUseRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getTimeOfUse),
			mapTaskResult[domain.GetTimeOfUseResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetTimeOfUseResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.SetTimeOfUseRequest:
		state.logger.Debug("modbus@default: SetTimeOfUseRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetTimeOfUseResponse, error) {
			return state.setTimeOfUse(msg.Enabled)
		}),
			mapTaskResult[domain.SetTimeOfUseResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetTimeOfUseResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		state.inverter.Close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.inverter.Close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *ModbusActor) getInverterInfo() (*domain.GetInverterInfoResponse, error) {
	info, err := a.inverter.GetInfo()
	if err != nil {
		return nil, err
	}
	return &domain.GetInverterInfoResponse{
		Inverter: info,
	}, nil
}

func (a *ModbusActor) getBatteryState() (*domain.GetBatteryStateResponse, error) {
	battery, err := a.inverter.GetBatteryState()
	if err != nil {
		return nil, err
	}
	power, err := a.inverter.GetPowerState()
	if err != nil {
		return nil, err
	}
	return &domain.GetBatteryStateResponse{
		Battery: battery,
		Power:   power,
	}, nil
}

func (a *ModbusActor) getCapacityPoint() (*domain.GetCapacityPointResponse, error) {
	percent, err := a.inverter.GetCapacityPoint()
	if err != nil {
		return nil, err
	}
	return &domain.GetCapacityPointResponse{
		Percent: percent,
	}, nil
}

func (a *ModbusActor) setCapacityPoint(percent uint8) (*domain.SetCapacityPointResponse, error) {
	if err := a.inverter.SetCapacityPoint(percent); err != nil {
		return nil, err
	}
	return &domain.SetCapacityPointResponse{}, nil
}

func (a *ModbusActor) getTimeOfUse() (*domain.GetTimeOfUseResponse, error) {
	enabled, err := a.inverter.GetTimeOfUseEnabled()
	if err != nil {
		return nil, err
	}
	return &domain.GetTimeOfUseResponse{
		Enabled: enabled,
	}, nil
}

func (a *ModbusActor) setTimeOfUse(enabled bool) (*domain.SetTimeOfUseResponse, error) {
	if err := a.inverter.SetTimeOfUseEnabled(enabled); err != nil {
		return nil, err
	}
	return &domain.SetTimeOfUseResponse{}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
