package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

const roundsEndpoint = "/rounds"

func (sdk *colearnSDK) CreateRound(spec coordinator.RoundSpec) (round.LearningRound, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return round.LearningRound{}, err
	}

	url := sdk.coordinatorURL + roundsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return round.LearningRound{}, err
	}

	var r round.LearningRound
	if err := json.Unmarshal(body, &r); err != nil {
		return round.LearningRound{}, err
	}

	return r, nil
}

func (sdk *colearnSDK) GetRound(id string) (round.LearningRound, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.LearningRound{}, err
	}

	var r round.LearningRound
	if err := json.Unmarshal(body, &r); err != nil {
		return round.LearningRound{}, err
	}

	return r, nil
}

func (sdk *colearnSDK) ListRounds(offset, limit uint64) (round.RoundPage, error) {
	url := sdk.coordinatorURL + roundsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.RoundPage{}, err
	}

	var page round.RoundPage
	if err := json.Unmarshal(body, &page); err != nil {
		return round.RoundPage{}, err
	}

	return page, nil
}

func (sdk *colearnSDK) SubmitUpdate(sub coordinator.Submission) (update.ModelUpdate, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return update.ModelUpdate{}, err
	}

	url := sdk.coordinatorURL + roundsEndpoint + "/" + sub.RoundID + "/updates"

	body, err := sdk.processRequest(http.MethodPost, url, data, http.StatusCreated)
	if err != nil {
		return update.ModelUpdate{}, err
	}

	var u update.ModelUpdate
	if err := json.Unmarshal(body, &u); err != nil {
		return update.ModelUpdate{}, err
	}

	return u, nil
}

func (sdk *colearnSDK) ListUpdates(roundID string, offset, limit uint64) (update.UpdatePage, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + roundID + "/updates" + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return update.UpdatePage{}, err
	}

	var page update.UpdatePage
	if err := json.Unmarshal(body, &page); err != nil {
		return update.UpdatePage{}, err
	}

	return page, nil
}

func (sdk *colearnSDK) AggregateRound(roundID string) (round.AggregationResult, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + roundID + "/aggregate"

	body, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusOK)
	if err != nil {
		return round.AggregationResult{}, err
	}

	var res round.AggregationResult
	if err := json.Unmarshal(body, &res); err != nil {
		return round.AggregationResult{}, err
	}

	return res, nil
}

func (sdk *colearnSDK) GetResult(roundID string) (round.AggregationResult, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + roundID + "/result"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.AggregationResult{}, err
	}

	var res round.AggregationResult
	if err := json.Unmarshal(body, &res); err != nil {
		return round.AggregationResult{}, err
	}

	return res, nil
}

func (sdk *colearnSDK) GetDetection(roundID string) (round.DetectionResult, error) {
	url := sdk.coordinatorURL + roundsEndpoint + "/" + roundID + "/detection"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return round.DetectionResult{}, err
	}

	var det round.DetectionResult
	if err := json.Unmarshal(body, &det); err != nil {
		return round.DetectionResult{}, err
	}

	return det, nil
}

func (sdk *colearnSDK) Metrics() (coordinator.Metrics, error) {
	url := sdk.coordinatorURL + "/stats"

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return coordinator.Metrics{}, err
	}

	var m coordinator.Metrics
	if err := json.Unmarshal(body, &m); err != nil {
		return coordinator.Metrics{}, err
	}

	return m, nil
}

func pageQuery(offset, limit uint64) string {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	if len(queries) == 0 {
		return ""
	}

	return "?" + strings.Join(queries, "&")
}
