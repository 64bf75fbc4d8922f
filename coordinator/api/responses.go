package api

import (
	"net/http"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*agentResponse)(nil)
	_ supermq.Response = (*listAgentsResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundsResponse)(nil)
	_ supermq.Response = (*updateResponse)(nil)
	_ supermq.Response = (*listUpdatesResponse)(nil)
	_ supermq.Response = (*resultResponse)(nil)
	_ supermq.Response = (*detectionResponse)(nil)
	_ supermq.Response = (*metricsResponse)(nil)
)

type agentResponse struct {
	agent.Agent
	registered bool
}

func (a agentResponse) Code() int {
	if a.registered {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (a agentResponse) Headers() map[string]string {
	if a.registered {
		return map[string]string{
			"Location": "/agents/" + a.ID,
		}
	}

	return map[string]string{}
}

func (a agentResponse) Empty() bool {
	return false
}

type listAgentsResponse struct {
	agent.AgentPage
}

func (l listAgentsResponse) Code() int {
	return http.StatusOK
}

func (l listAgentsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listAgentsResponse) Empty() bool {
	return false
}

type roundResponse struct {
	round.LearningRound
	created bool
}

func (r roundResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r roundResponse) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/rounds/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r roundResponse) Empty() bool {
	return false
}

type listRoundsResponse struct {
	round.RoundPage
}

func (l listRoundsResponse) Code() int {
	return http.StatusOK
}

func (l listRoundsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRoundsResponse) Empty() bool {
	return false
}

type updateResponse struct {
	update.ModelUpdate
	created bool
}

func (u updateResponse) Code() int {
	if u.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (u updateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (u updateResponse) Empty() bool {
	return false
}

type listUpdatesResponse struct {
	update.UpdatePage
}

func (l listUpdatesResponse) Code() int {
	return http.StatusOK
}

func (l listUpdatesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listUpdatesResponse) Empty() bool {
	return false
}

type resultResponse struct {
	round.AggregationResult
}

func (r resultResponse) Code() int {
	return http.StatusOK
}

func (r resultResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r resultResponse) Empty() bool {
	return false
}

type detectionResponse struct {
	round.DetectionResult
}

func (d detectionResponse) Code() int {
	return http.StatusOK
}

func (d detectionResponse) Headers() map[string]string {
	return map[string]string{}
}

func (d detectionResponse) Empty() bool {
	return false
}

type metricsResponse struct {
	coordinator.Metrics
}

func (m metricsResponse) Code() int {
	return http.StatusOK
}

func (m metricsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (m metricsResponse) Empty() bool {
	return false
}
