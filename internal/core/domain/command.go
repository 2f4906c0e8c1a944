package domain

import "fmt"

// BoostControlRequest

type BoostControlRequest interface {
	ActorRequest
	BoostControlCommand() string
}

type BoostControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r BoostControlRequestMixIn) BoostControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// BoostControlResponse

type BoostControlResponse interface {
	ActorResponse
	BoostControlResponse() string
}

type BoostControlResponseMixIn struct {
	ActorResponse
}

func (r BoostControlResponseMixIn) BoostControlResponse() string {
	return fmt.Sprintf("%T", r)
}

// BoostControl commands

type BoostControlSetModeRequest struct {
	BoostControlRequestMixIn
	Mode BoostMode
}

type BoostControlSetModeResponse struct {
	BoostControlResponseMixIn
	Changed bool
	Mode    BoostMode
}

type BoostControlSetManualSoCRequest struct {
	BoostControlRequestMixIn
	ManualSoC uint
}

type BoostControlSetManualSoCResponse struct {
	BoostControlResponseMixIn
	ManualSoC uint
}

type BoostControlSetTimeOfUseRequest struct {
	BoostControlRequestMixIn
	Enable bool
}

type BoostControlSetTimeOfUseResponse struct {
	BoostControlResponseMixIn
	Changed bool
}

type BoostControlRefreshRequest struct {
	BoostControlRequestMixIn
}

type BoostControlRefreshResponse struct {
	BoostControlResponseMixIn
}

// ensure interface compliance
var _ BoostControlRequest = (*BoostControlSetModeRequest)(nil)
