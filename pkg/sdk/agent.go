package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/absmach/colearn/agent"
)

const agentsEndpoint = "/agents"

func (sdk *colearnSDK) RegisterAgent(a agent.Agent) (agent.Agent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return agent.Agent{}, err
	}

	url := sdk.coordinatorURL + agentsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return agent.Agent{}, err
	}

	var res agent.Agent
	if err := json.Unmarshal(body, &res); err != nil {
		return agent.Agent{}, err
	}

	return res, nil
}

func (sdk *colearnSDK) GetAgent(id string) (agent.Agent, error) {
	url := sdk.coordinatorURL + agentsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return agent.Agent{}, err
	}

	var a agent.Agent
	if err := json.Unmarshal(body, &a); err != nil {
		return agent.Agent{}, err
	}

	return a, nil
}

func (sdk *colearnSDK) ListAgents(offset, limit uint64) (agent.AgentPage, error) {
	url := sdk.coordinatorURL + agentsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return agent.AgentPage{}, err
	}

	var page agent.AgentPage
	if err := json.Unmarshal(body, &page); err != nil {
		return agent.AgentPage{}, err
	}

	return page, nil
}
