package selector_test

import (
	"fmt"
	"testing"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/selector"
	"github.com/absmach/colearn/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(id string, trust, capacity float64) agent.Agent {
	return agent.Agent{
		ID:            id,
		Role:          agent.Participant,
		Networks:      []string{"net-a"},
		Capacity:      capacity,
		TrustScore:    trust,
		PrivacyBudget: 1.0,
	}
}

func TestEligible(t *testing.T) {
	cases := []struct {
		desc  string
		agent agent.Agent
		want  bool
	}{
		{
			desc:  "participant qualifies",
			agent: participant("a", 0.8, 0.9),
			want:  true,
		},
		{
			desc: "validator qualifies",
			agent: agent.Agent{
				ID: "v", Role: agent.Validator, TrustScore: 0.8, PrivacyBudget: 1.0,
			},
			want: true,
		},
		{
			desc: "observer excluded",
			agent: agent.Agent{
				ID: "o", Role: agent.Observer, TrustScore: 0.9, PrivacyBudget: 1.0,
			},
			want: false,
		},
		{
			desc: "exhausted privacy budget excluded",
			agent: agent.Agent{
				ID: "b", Role: agent.Participant, TrustScore: 0.9, PrivacyBudget: 0.1,
			},
			want: false,
		},
		{
			desc: "low trust excluded",
			agent: agent.Agent{
				ID: "l", Role: agent.Participant, TrustScore: 0.5, PrivacyBudget: 1.0,
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, selector.Eligible(tc.agent))
		})
	}
}

func TestSelectRanksByScore(t *testing.T) {
	agents := []agent.Agent{
		participant("low", 0.6, 0.2),
		participant("high", 1.0, 1.0),
		participant("mid", 0.8, 0.6),
	}

	s := selector.NewComposite()
	got, err := s.Select(round.FedAvg, agents)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "high", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "low", got[2].ID)
}

func TestSelectInsufficient(t *testing.T) {
	agents := []agent.Agent{
		participant("a", 0.8, 0.9),
		participant("b", 0.8, 0.9),
	}

	s := selector.NewComposite()
	_, err := s.Select(round.FedAvg, agents)
	assert.ErrorIs(t, err, errors.ErrInsufficientParticipants)
}

func TestSelectCaps(t *testing.T) {
	agents := make([]agent.Agent, 20)
	for i := range agents {
		agents[i] = participant(fmt.Sprintf("agent-%02d", i), 0.8, 0.9)
	}

	cases := []struct {
		strategy round.Strategy
		want     int
	}{
		{round.FedAvg, 10},
		{round.SecureAggregation, 8},
		{round.ByzantineRobust, 15},
		{round.DifferentialPrivate, 12},
		{round.Strategy("custom"), 10},
	}

	s := selector.NewComposite()
	for _, tc := range cases {
		got, err := s.Select(tc.strategy, agents)
		require.NoError(t, err)
		assert.Len(t, got, tc.want, "strategy %s", tc.strategy)
	}
}

func TestSelectCapOverride(t *testing.T) {
	agents := make([]agent.Agent, 10)
	for i := range agents {
		agents[i] = participant(fmt.Sprintf("agent-%02d", i), 0.8, 0.9)
	}

	s := selector.NewComposite(selector.WithCap(round.FedAvg, 4))
	got, err := s.Select(round.FedAvg, agents)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestScoreUsesHistory(t *testing.T) {
	fresh := participant("fresh", 0.8, 0.8)
	seasoned := participant("seasoned", 0.8, 0.8)
	seasoned.PerformanceHistory = []float64{0.9, 1.0, 0.95}

	assert.Greater(t, selector.Score(seasoned), selector.Score(fresh))
}
