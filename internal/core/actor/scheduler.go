package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/config"
	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/events"
	"github.com/acasal/gridboost2mqtt/internal/core/service"
	"github.com/acasal/gridboost2mqtt/internal/util/actorutil"
)

// SchedulerActor drives the grid boost pipeline. A coarse timer tick runs
// the scheduler service in a background task (forecast refresh, telemetry
// pulls and register writes all block), publishes the resulting snapshot to
// the event stream and answers control commands coming from MQTT and HTTP.
type SchedulerActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	grid         *service.Scheduler
	eventStream  *eventstream.EventStream
	pollInterval time.Duration

	logger *zap.Logger
}

type gridBoostTick struct {
}

type tickCompleted struct {
	snapshot *domain.Snapshot
}

type timeOfUseApplied struct {
	enable  bool
	err     error
	replyTo *actor.PID
}

func NewSchedulerActor(config *config.Config, grid *service.Scheduler, eventStream *eventstream.EventStream, logger *zap.Logger) *SchedulerActor {
	pollInterval := time.Duration(config.MonitorConfig.PollIntervalMillis) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	act := &SchedulerActor{
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		config:       config,
		grid:         grid,
		eventStream:  eventStream,
		pollInterval: pollInterval,
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_SCHEDULER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SchedulerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SchedulerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("scheduler@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.grid.MarkRunning()
		ctx.Send(ctx.Self(), gridBoostTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("scheduler@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SchedulerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("scheduler@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SCHEDULER,
			Healthy: true,
			State:   "idle",
		})
	case gridBoostTick:
		state.logger.Debug("scheduler@default tick")
		actorutil.NewBackgroundTaskNoError(ctx, func() *tickCompleted {
			snap := state.grid.Tick(context.Background(), time.Now())
			return &tickCompleted{snapshot: snap}
		}).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingTick)
	case domain.GetSnapshotRequest:
		state.logger.Debug("scheduler@default: GetSnapshotRequest")
		ctx.Respond(domain.GetSnapshotResponse{
			Snapshot: state.grid.Snapshot(),
		})
	case domain.BoostControlRequest:
		state.handleCommand(ctx, msg)
	case timeOfUseApplied:
		state.onTimeOfUseApplied(ctx, msg)
	default:
		state.logger.Debug("scheduler@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// WaitingTick stashes traffic while a pipeline tick runs so commands are
// applied against a settled snapshot.
func (state *SchedulerActor) WaitingTick(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case tickCompleted:
		state.logger.Debug("scheduler@waitingTick tickCompleted")
		if msg.snapshot != nil {
			state.publishSnapshot(msg.snapshot)
		}
		state.scheduler.RequestOnce(state.pollInterval, ctx.Self(), gridBoostTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.GetSnapshotRequest:
		// snapshot reads do not need to wait for the tick
		ctx.Respond(domain.GetSnapshotResponse{
			Snapshot: state.grid.Snapshot(),
		})
	default:
		state.logger.Debug("scheduler@waitingTick: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SchedulerActor) handleCommand(ctx actor.Context, msg domain.BoostControlRequest) {
	switch cmd := msg.(type) {
	case domain.BoostControlSetModeRequest:
		state.logger.Sugar().Debugf("scheduler@default: cmd setMode %s", cmd.Mode)
		changed := state.grid.SetMode(cmd.Mode)
		state.eventStream.Publish(events.BoostModeUpdateEvent(state.grid.Mode()))
		if ctx.Sender() != nil {
			ctx.Respond(domain.BoostControlSetModeResponse{
				BoostControlResponseMixIn: domain.BoostControlResponseMixIn{
					ActorResponse: domain.ActorResponseMixIn{},
				},
				Changed: changed,
				Mode:    state.grid.Mode(),
			})
		}
	case domain.BoostControlSetManualSoCRequest:
		state.logger.Sugar().Debugf("scheduler@default: cmd setManualSoC %d", cmd.ManualSoC)
		state.grid.SetManualSoC(cmd.ManualSoC)
		state.eventStream.Publish(events.ManualBoostSoCUpdateEvent(cmd.ManualSoC))
		if ctx.Sender() != nil {
			ctx.Respond(domain.BoostControlSetManualSoCResponse{
				BoostControlResponseMixIn: domain.BoostControlResponseMixIn{
					ActorResponse: domain.ActorResponseMixIn{},
				},
				ManualSoC: cmd.ManualSoC,
			})
		}
	case domain.BoostControlSetTimeOfUseRequest:
		state.logger.Sugar().Debugf("scheduler@default: cmd setTimeOfUse %t", cmd.Enable)
		sender := ctx.Sender()
		actorutil.NewBackgroundTaskNoError(ctx, func() *timeOfUseApplied {
			err := state.grid.SetTimeOfUse(context.Background(), cmd.Enable)
			return &timeOfUseApplied{enable: cmd.Enable, err: err, replyTo: sender}
		}).PipeTo(ctx.Self())
	case domain.BoostControlRefreshRequest:
		state.logger.Debug("scheduler@default: cmd refresh")
		state.grid.ForceRefresh()
		if ctx.Sender() != nil {
			ctx.Respond(domain.BoostControlRefreshResponse{
				BoostControlResponseMixIn: domain.BoostControlResponseMixIn{
					ActorResponse: domain.ActorResponseMixIn{},
				},
			})
		}
	}
}

func (state *SchedulerActor) onTimeOfUseApplied(ctx actor.Context, msg timeOfUseApplied) {
	if msg.err != nil {
		state.logger.Error("scheduler@default: time of use write failed", zap.Error(msg.err))
	} else {
		state.eventStream.Publish(events.TimeOfUseSwitchUpdateEvent(msg.enable))
	}
	if msg.replyTo != nil {
		ctx.Send(msg.replyTo, domain.BoostControlSetTimeOfUseResponse{
			BoostControlResponseMixIn: domain.BoostControlResponseMixIn{
				ActorResponse: domain.ActorResponseMixIn{ResponseError: msg.err},
			},
			Changed: msg.err == nil,
		})
	}
}

func (state *SchedulerActor) publishSnapshot(snap *domain.Snapshot) {
	for _, ev := range events.SnapshotToUpdateEvents(snap) {
		state.eventStream.Publish(ev)
	}
}
