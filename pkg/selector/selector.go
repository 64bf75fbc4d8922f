// Package selector picks the participants of a learning round from the set
// of registered agents, ranked by a composite reputation score.
package selector

import (
	"sort"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
)

const (
	// MinParticipants is the smallest federation a round can run with.
	MinParticipants = 3

	minPrivacyBudget = 0.1
	minTrustScore    = 0.5

	defaultCap = 10
)

// strategyCaps bounds the participant count per aggregation strategy.
var strategyCaps = map[round.Strategy]int{
	round.FedAvg:              10,
	round.SecureAggregation:   8,
	round.ByzantineRobust:     15,
	round.DifferentialPrivate: 12,
}

type Selector interface {
	// Select returns the round participants chosen from agents, ranked by
	// composite score, highest first.
	Select(strategy round.Strategy, agents []agent.Agent) ([]agent.Agent, error)
}

type composite struct {
	caps map[round.Strategy]int
}

// Option adjusts the composite selector.
type Option func(*composite)

// WithCap overrides the participant cap for one strategy.
func WithCap(s round.Strategy, n int) Option {
	return func(c *composite) {
		c.caps[s] = n
	}
}

func NewComposite(opts ...Option) Selector {
	c := &composite{caps: make(map[round.Strategy]int, len(strategyCaps))}
	for s, n := range strategyCaps {
		c.caps[s] = n
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Eligible reports whether an agent qualifies for round participation.
func Eligible(a agent.Agent) bool {
	if a.Role != agent.Participant && a.Role != agent.Validator {
		return false
	}
	if a.PrivacyBudget <= minPrivacyBudget {
		return false
	}

	return a.TrustScore > minTrustScore
}

// Score ranks an agent for selection: trust and capacity dominate, a clean
// byzantine record and low latency help, past performance rounds it out.
func Score(a agent.Agent) float64 {
	latencyMS := a.LatencyMS
	if latencyMS == 0 {
		latencyMS = agent.DefaultLatencyMS
	}
	// Latency enters the formula in seconds so the term spans (0, 1].
	latency := latencyMS / 1000
	perf := tensor.Mean(a.PerformanceHistory, 0.5)

	return 0.3*a.TrustScore +
		0.3*a.Capacity +
		0.2*(1-a.ByzantineScore) +
		0.1*(1/(1+latency)) +
		0.1*perf
}

func (c *composite) Select(strategy round.Strategy, agents []agent.Agent) ([]agent.Agent, error) {
	eligible := make([]agent.Agent, 0, len(agents))
	for _, a := range agents {
		if Eligible(a) {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) < MinParticipants {
		return nil, errors.ErrInsufficientParticipants
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := Score(eligible[i]), Score(eligible[j])
		if si != sj {
			return si > sj
		}

		return eligible[i].ID < eligible[j].ID
	})

	limit, ok := c.caps[strategy]
	if !ok {
		limit = defaultCap
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	return eligible, nil
}
