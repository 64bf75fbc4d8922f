package coordinator

import (
	"context"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

// RoundSpec is the caller's request for a new learning round.
type RoundSpec struct {
	ModelID        string         `json:"model_id"`
	Strategy       round.Strategy `json:"strategy"`
	TargetAccuracy float64        `json:"target_accuracy"`
	MaxIterations  int            `json:"max_iterations"`
	Epsilon        float64        `json:"epsilon"`
}

// Submission is one agent's model update for a round.
type Submission struct {
	AgentID         string         `json:"agent_id"`
	RoundID         string         `json:"round_id"`
	Weights         tensor.Weights `json:"weights"`
	ValidationScore float64        `json:"validation_score"`
	BandwidthUsed   float64        `json:"bandwidth_used,omitempty"`
}

// Metrics is the coordinator-wide health snapshot.
type Metrics struct {
	RegisteredAgents         uint64  `json:"registered_agents"`
	TotalRounds              uint64  `json:"total_rounds"`
	CompletedRounds          uint64  `json:"completed_rounds"`
	SuccessRate              float64 `json:"success_rate"`
	ByzantineDetected        uint64  `json:"byzantine_detected"`
	AverageTrust             float64 `json:"average_trust"`
	PrivacyBudgetUtilization float64 `json:"privacy_budget_utilization"`
	NetworkHealth            float64 `json:"network_health"`
}

type Service interface {
	// RegisterAgent adds an agent to the federation. Failures are non-fatal:
	// a duplicate id, a capacity outside [0,1] or an empty network list are
	// logged and reported as false.
	RegisterAgent(ctx context.Context, a agent.Agent) bool
	GetAgent(ctx context.Context, agentID string) (agent.Agent, error)
	ListAgents(ctx context.Context, offset, limit uint64) (agent.AgentPage, error)

	// CreateRound selects the participants for a new learning round and
	// notifies them over the control channel.
	CreateRound(ctx context.Context, spec RoundSpec) (round.LearningRound, error)
	GetRound(ctx context.Context, roundID string) (round.LearningRound, error)
	ListRounds(ctx context.Context, offset, limit uint64) (round.RoundPage, error)

	// SubmitUpdate ingests one model update per agent per round, applying
	// differential-privacy noise when the round's strategy calls for it.
	SubmitUpdate(ctx context.Context, sub Submission) (update.ModelUpdate, error)
	ListUpdates(ctx context.Context, roundID string, offset, limit uint64) (update.UpdatePage, error)

	// AggregateRound closes the round's submission window, runs byzantine
	// detection, aggregates the surviving updates and adjusts trust scores.
	AggregateRound(ctx context.Context, roundID string) (round.AggregationResult, error)
	GetResult(ctx context.Context, roundID string) (round.AggregationResult, error)
	GetDetection(ctx context.Context, roundID string) (round.DetectionResult, error)

	Metrics(ctx context.Context) (Metrics, error)

	// Subscribe attaches the coordinator to the agent control channel for
	// liveness and registration messages.
	Subscribe(ctx context.Context) error
}

// Tuning carries the coordinator's operational knobs.
type Tuning struct {
	ConsensusThreshold float64
	TotalPrivacyBudget float64
	RoundTimeout       time.Duration
	Sensitivity        float64
	WASMAggregatorPath string
}

func DefaultTuning() Tuning {
	return Tuning{
		ConsensusThreshold: 0.67,
		TotalPrivacyBudget: 10.0,
		RoundTimeout:       10 * time.Minute,
		Sensitivity:        1.0,
	}
}
