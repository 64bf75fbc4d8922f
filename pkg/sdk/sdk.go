package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

const CTJSON string = "application/json"

type SDK interface {
	// RegisterAgent registers a new agent with the coordinator.
	//
	// example:
	//  a := agent.Agent{
	//    ID:       "agent-1",
	//    Networks: []string{"net-a"},
	//    Capacity: 0.8,
	//  }
	//  a, _ := sdk.RegisterAgent(a)
	//  fmt.Println(a)
	RegisterAgent(a agent.Agent) (agent.Agent, error)

	// GetAgent gets an agent by id.
	//
	// example:
	//  a, _ := sdk.GetAgent("agent-1")
	//  fmt.Println(a)
	GetAgent(id string) (agent.Agent, error)

	// ListAgents lists registered agents.
	//
	// example:
	//  page, _ := sdk.ListAgents(0, 10)
	//  fmt.Println(page)
	ListAgents(offset, limit uint64) (agent.AgentPage, error)

	// CreateRound creates a new learning round.
	//
	// example:
	//  r, _ := sdk.CreateRound(coordinator.RoundSpec{
	//    ModelID:  "model-1",
	//    Strategy: round.FedAvg,
	//  })
	//  fmt.Println(r)
	CreateRound(spec coordinator.RoundSpec) (round.LearningRound, error)

	// GetRound gets a round by id.
	//
	// example:
	//  r, _ := sdk.GetRound("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(r)
	GetRound(id string) (round.LearningRound, error)

	// ListRounds lists learning rounds.
	//
	// example:
	//  page, _ := sdk.ListRounds(0, 10)
	//  fmt.Println(page)
	ListRounds(offset, limit uint64) (round.RoundPage, error)

	// SubmitUpdate submits a model update to a round.
	//
	// example:
	//  u, _ := sdk.SubmitUpdate(coordinator.Submission{
	//    AgentID: "agent-1",
	//    RoundID: "b1d10738-c5d7-4ff1-8f4d-b9328ce6f040",
	//    Weights: weights,
	//  })
	//  fmt.Println(u)
	SubmitUpdate(sub coordinator.Submission) (update.ModelUpdate, error)

	// ListUpdates lists the updates submitted to a round.
	//
	// example:
	//  page, _ := sdk.ListUpdates("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040", 0, 10)
	//  fmt.Println(page)
	ListUpdates(roundID string, offset, limit uint64) (update.UpdatePage, error)

	// AggregateRound closes a round and aggregates its updates.
	//
	// example:
	//  res, _ := sdk.AggregateRound("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(res)
	AggregateRound(roundID string) (round.AggregationResult, error)

	// GetResult gets the aggregation result of a completed round.
	//
	// example:
	//  res, _ := sdk.GetResult("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(res)
	GetResult(roundID string) (round.AggregationResult, error)

	// GetDetection gets the byzantine detection verdict of a round.
	//
	// example:
	//  det, _ := sdk.GetDetection("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(det)
	GetDetection(roundID string) (round.DetectionResult, error)

	// Metrics gets the coordinator-wide health snapshot.
	//
	// example:
	//  m, _ := sdk.Metrics()
	//  fmt.Println(m)
	Metrics() (coordinator.Metrics, error)
}

type colearnSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &colearnSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *colearnSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
