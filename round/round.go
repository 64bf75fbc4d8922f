package round

import (
	"math"
	"time"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/tensor"
)

type Strategy string

const (
	FedAvg              Strategy = "federated_averaging"
	SecureAggregation   Strategy = "secure_aggregation"
	ByzantineRobust     Strategy = "byzantine_robust"
	DifferentialPrivate Strategy = "differential_private"
	WASM                Strategy = "wasm"
)

type Phase uint8

const (
	Initialization Phase = iota
	Training
	Aggregation
	Validation
	Completion
	Rollback
)

func (p Phase) String() string {
	switch p {
	case Initialization:
		return "initialization"
	case Training:
		return "training"
	case Aggregation:
		return "aggregation"
	case Validation:
		return "validation"
	case Completion:
		return "completion"
	case Rollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// transitions is the round lifecycle. Completion is reached only through a
// successful aggregation; Rollback is the alternate terminal for any phase
// whose preconditions fail.
var transitions = map[Phase][]Phase{
	Initialization: {Training, Rollback},
	Training:       {Aggregation, Rollback},
	Aggregation:    {Validation, Rollback},
	Validation:     {Completion, Rollback},
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

const toleranceFraction = 0.33

// Tolerance returns the number of agents that may be excluded as byzantine
// for a round with n participants. It never exceeds ⌊n/3⌋.
func Tolerance(n int) int {
	byFraction := int(math.Floor(float64(n) * toleranceFraction))
	byThird := n / 3
	if byFraction < byThird {
		return byFraction
	}

	return byThird
}

type LearningRound struct {
	ID                 string         `json:"id"`
	ModelID            string         `json:"model_id"`
	Strategy           Strategy       `json:"strategy"`
	Participants       []string       `json:"participants"`
	TargetAccuracy     float64        `json:"target_accuracy"`
	MaxIterations      int            `json:"max_iterations"`
	Epsilon            float64        `json:"epsilon"`
	ByzantineTolerance int            `json:"byzantine_tolerance"`
	StartTime          time.Time      `json:"start_time"`
	Deadline           time.Time      `json:"deadline"`
	Phase              Phase          `json:"phase"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Advance moves the round to the requested phase, rejecting transitions the
// lifecycle does not allow.
func (r *LearningRound) Advance(to Phase) error {
	for _, next := range transitions[r.Phase] {
		if next == to {
			r.Phase = to

			return nil
		}
	}

	return errors.ErrInvalidTransition
}

// IsParticipant reports whether the agent was selected for this round.
func (r *LearningRound) IsParticipant(agentID string) bool {
	for _, id := range r.Participants {
		if id == agentID {
			return true
		}
	}

	return false
}

// ToleranceFraction is the byzantine tolerance expressed as a fraction of the
// participant count.
func (r *LearningRound) ToleranceFraction() float64 {
	if len(r.Participants) == 0 {
		return 0
	}

	return float64(r.ByzantineTolerance) / float64(len(r.Participants))
}

type RoundPage struct {
	Offset uint64          `json:"offset"`
	Limit  uint64          `json:"limit"`
	Total  uint64          `json:"total"`
	Rounds []LearningRound `json:"rounds"`
}

type AggregationResult struct {
	ID                string         `json:"id"`
	RoundID           string         `json:"round_id"`
	Weights           tensor.Weights `json:"weights"`
	UpdateIDs         []string       `json:"update_ids"`
	ExcludedAgents    []string       `json:"excluded_agents,omitempty"`
	Strategy          Strategy       `json:"strategy"`
	QualityScore      float64        `json:"quality_score"`
	PrivacyLoss       float64        `json:"privacy_loss"`
	ComputeTime       time.Duration  `json:"compute_time"`
	ConsensusAchieved bool           `json:"consensus_achieved"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// DetectionResult is the verdict of the byzantine ensemble for one round.
// Suspects is truncated to the round's tolerance; Flagged keeps the full set
// of agents at or above threshold so the aggregator can refuse a round that
// would otherwise be silently degraded.
type DetectionResult struct {
	ID         string              `json:"id"`
	RoundID    string              `json:"round_id"`
	Suspects   []string            `json:"suspects"`
	Flagged    []string            `json:"flagged"`
	Confidence float64             `json:"confidence"`
	Evidence   map[string][]string `json:"evidence,omitempty"`
	DetectedAt time.Time           `json:"detected_at"`
}
