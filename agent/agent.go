package agent

import "time"

const aliveTimeout = 10 * time.Second

type Role uint8

const (
	Coordinator Role = iota
	Participant
	Validator
	Aggregator
	Observer
)

func (r Role) String() string {
	switch r {
	case Coordinator:
		return "coordinator"
	case Participant:
		return "participant"
	case Validator:
		return "validator"
	case Aggregator:
		return "aggregator"
	case Observer:
		return "observer"
	default:
		return "unknown"
	}
}

func ParseRole(s string) (Role, bool) {
	switch s {
	case "coordinator":
		return Coordinator, true
	case "participant":
		return Participant, true
	case "validator":
		return Validator, true
	case "aggregator":
		return Aggregator, true
	case "observer":
		return Observer, true
	default:
		return Observer, false
	}
}

// Agent is a registered participant of the federation. Trust and byzantine
// scores are mutated only by post-round trust adjustment; budget, contribution
// counters and performance history only by update ingestion.
type Agent struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Role               Role        `json:"role"`
	Networks           []string    `json:"networks"`
	Capacity           float64     `json:"capacity"`
	Specialization     string      `json:"specialization,omitempty"`
	TrustScore         float64     `json:"trust_score"`
	ByzantineScore     float64     `json:"byzantine_score"`
	PrivacyBudget      float64     `json:"privacy_budget"`
	PerformanceHistory []float64   `json:"performance_history,omitempty"`
	LatencyMS          float64     `json:"latency_ms"`
	BandwidthMbps      float64     `json:"bandwidth_mbps"`
	Contributions      uint64      `json:"contributions"`
	LastContribution   time.Time   `json:"last_contribution,omitzero"`
	Alive              bool        `json:"alive"`
	AliveHistory       []time.Time `json:"alive_history,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

const (
	DefaultTrustScore = 0.8

	// Agents that never reported a latency are assumed to sit one typical
	// network hop away.
	DefaultLatencyMS     = 50
	DefaultBandwidthMbps = 100
)

func (a *Agent) SetAlive() {
	if len(a.AliveHistory) > 0 {
		last := a.AliveHistory[len(a.AliveHistory)-1]
		if time.Since(last) <= aliveTimeout {
			a.Alive = true

			return
		}
	}
	a.Alive = false
}

type AgentPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Agents []Agent `json:"agents"`
}
