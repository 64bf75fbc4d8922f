package detector_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/detector"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeUpdate(agentID string, weights tensor.Weights, score float64) update.ModelUpdate {
	hash := weights.Hash()

	return update.ModelUpdate{
		ID:              "upd-" + agentID,
		AgentID:         agentID,
		RoundID:         "round-1",
		Weights:         weights,
		WeightsHash:     hash,
		ValidationScore: score,
		Proof: update.Proof{
			AgentID:         agentID,
			WeightsHash:     hash,
			ValidationScore: score,
			Timestamp:       now,
		},
		SubmittedAt: now,
	}
}

func makeRound(strategy round.Strategy, participants int) round.LearningRound {
	ids := make([]string, participants)
	for i := range ids {
		ids[i] = fmt.Sprintf("agent-%d", i)
	}

	return round.LearningRound{
		ID:                 "round-1",
		Strategy:           strategy,
		Participants:       ids,
		ByzantineTolerance: round.Tolerance(participants),
	}
}

func TestDetectHonestRound(t *testing.T) {
	weights := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("agent-%d", i)
		updates = append(updates, makeUpdate(id, weights, 0.9))
		agents[id] = agent.Agent{ID: id, PerformanceHistory: []float64{0.9}}
	}

	result := detector.New().Detect(detector.Input{
		Round:   makeRound(round.FedAvg, 5),
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	assert.Empty(t, result.Suspects)
	assert.Empty(t, result.Flagged)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDetectScaledOutlier(t *testing.T) {
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	honestScores := []float64{0.9, 0.91, 0.89, 0.9}
	for i, score := range honestScores {
		id := fmt.Sprintf("agent-%d", i)
		w := tensor.Weights{"w": tensor.FromVector([]float64{
			1 + float64(i)*0.01, 2, 3,
		})}
		updates = append(updates, makeUpdate(id, w, score))
		agents[id] = agent.Agent{ID: id, PerformanceHistory: []float64{score}}
	}

	outlier := tensor.Weights{"w": tensor.FromVector([]float64{50, 100, 150})}
	updates = append(updates, makeUpdate("agent-4", outlier, 0.3))
	agents["agent-4"] = agent.Agent{ID: "agent-4", PerformanceHistory: []float64{0.3}}

	result := detector.New().Detect(detector.Input{
		Round:   makeRound(round.ByzantineRobust, 5),
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	require.Equal(t, []string{"agent-4"}, result.Suspects)
	assert.Positive(t, result.Confidence)
	assert.Contains(t, result.Evidence["agent-4"], "cross_validation")
	assert.Contains(t, result.Evidence["agent-4"], "model_divergence")
}

func TestDetectInvalidProof(t *testing.T) {
	weights := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("agent-%d", i)
		updates = append(updates, makeUpdate(id, weights, 0.9))
		agents[id] = agent.Agent{ID: id, PerformanceHistory: []float64{0.9}}
	}
	// Tamper the last proof so the weight hash no longer matches.
	updates[3].Proof.WeightsHash = "deadbeef"

	result := detector.New().Detect(detector.Input{
		Round:   makeRound(round.FedAvg, 4),
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	require.Equal(t, []string{"agent-3"}, result.Suspects)
	assert.Contains(t, result.Evidence["agent-3"], "invalid_proof")
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
}

func TestDetectStaleProof(t *testing.T) {
	weights := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("agent-%d", i)
		updates = append(updates, makeUpdate(id, weights, 0.9))
		agents[id] = agent.Agent{ID: id}
	}
	updates[0].Proof.Timestamp = now.Add(-2 * time.Hour)

	result := detector.New().Detect(detector.Input{
		Round:   makeRound(round.FedAvg, 4),
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	assert.Equal(t, []string{"agent-0"}, result.Suspects)
}

func TestDetectTruncatesToTolerance(t *testing.T) {
	weights := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	ids := []string{"agent-0", "agent-1", "agent-2", "agent-3", "b-agent", "a-agent"}
	for _, id := range ids {
		updates = append(updates, makeUpdate(id, weights, 0.9))
		agents[id] = agent.Agent{ID: id, PerformanceHistory: []float64{0.9}}
	}
	// Two equally suspicious agents, tolerance of one.
	updates[4].Proof.WeightsHash = "bad"
	updates[5].Proof.WeightsHash = "bad"

	r := makeRound(round.FedAvg, 6)
	require.Equal(t, 1, r.ByzantineTolerance)

	result := detector.New().Detect(detector.Input{
		Round:   r,
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	assert.Len(t, result.Flagged, 2)
	// Ties break on agent id order.
	assert.Equal(t, []string{"a-agent"}, result.Suspects)
}

func TestThresholdCapped(t *testing.T) {
	r := makeRound(round.FedAvg, 5)
	require.Equal(t, 1, r.ByzantineTolerance)

	cases := [][]float64{
		{},
		{0, 0, 0, 0, 0},
		{0.1, 0.2, 0.3, 0.4, 3.0},
		{5, 5, 5, 5, 5},
	}
	for _, suspicions := range cases {
		got := detector.Threshold(r, suspicions)
		assert.LessOrEqual(t, got, 1-r.ToleranceFraction(), "suspicions %v", suspicions)
	}
}

func TestThresholdSensitivity(t *testing.T) {
	suspicions := []float64{0.1, 0.2, 0.3, 0.2, 0.1}

	robust := detector.Threshold(makeRound(round.ByzantineRobust, 50), suspicions)
	def := detector.Threshold(makeRound(round.FedAvg, 50), suspicions)
	private := detector.Threshold(makeRound(round.DifferentialPrivate, 50), suspicions)

	assert.Less(t, robust, def)
	assert.Less(t, def, private)
}

func TestDetectEmpty(t *testing.T) {
	result := detector.New().Detect(detector.Input{
		Round: makeRound(round.FedAvg, 0),
		Now:   now,
	})

	assert.Empty(t, result.Suspects)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDetectReputation(t *testing.T) {
	weights := tensor.Weights{"w": tensor.FromVector([]float64{1, 2, 3})}
	agents := make(map[string]agent.Agent)
	var updates []update.ModelUpdate
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("agent-%d", i)
		updates = append(updates, makeUpdate(id, weights, 0.9))
		agents[id] = agent.Agent{ID: id, PerformanceHistory: []float64{0.9}}
	}
	repeat := agents["agent-2"]
	repeat.ByzantineScore = 0.7
	agents["agent-2"] = repeat

	result := detector.New().Detect(detector.Input{
		Round:   makeRound(round.FedAvg, 4),
		Updates: updates,
		Agents:  agents,
		Now:     now,
	})

	assert.Equal(t, []string{"agent-2"}, result.Suspects)
	assert.Contains(t, result.Evidence["agent-2"], "reputation")
}
