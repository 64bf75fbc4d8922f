package coordinator_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/pkg/detector"
	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/mqtt/mocks"
	"github.com/absmach/colearn/pkg/privacy"
	"github.com/absmach/colearn/pkg/selector"
	"github.com/absmach/colearn/pkg/storage"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testChannelID = "channel-1"

func setupTestService(t *testing.T, opts ...coordinator.Option) coordinator.Service {
	t.Helper()

	repos, err := storage.NewRepositories(storage.Config{Type: "memory"})
	require.NoError(t, err)

	pubsub := new(mocks.PubSub)
	pubsub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	pubsub.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	mech := privacy.NewGaussian(1.0, rand.New(rand.NewSource(42)))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return coordinator.NewService(repos, selector.NewComposite(), detector.New(), mech, pubsub, testChannelID, coordinator.DefaultTuning(), logger, opts...)
}

func registerAgents(t *testing.T, svc coordinator.Service, ids ...string) {
	t.Helper()

	for _, id := range ids {
		ok := svc.RegisterAgent(context.Background(), agent.Agent{
			ID:       id,
			Role:     agent.Participant,
			Networks: []string{"net-a"},
			Capacity: 0.8,
		})
		require.True(t, ok)
	}
}

func honestWeights() tensor.Weights {
	return tensor.Weights{
		"dense": tensor.FromVector([]float64{0.1, -0.2, 0.3}),
		"bias":  tensor.FromScalar(0.05),
	}
}

func TestRegisterAgent(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	cases := []struct {
		desc string
		a    agent.Agent
		ok   bool
	}{
		{
			desc: "valid agent",
			a:    agent.Agent{ID: "a1", Role: agent.Participant, Networks: []string{"net-a"}, Capacity: 0.5},
			ok:   true,
		},
		{
			desc: "duplicate id",
			a:    agent.Agent{ID: "a1", Role: agent.Participant, Networks: []string{"net-a"}, Capacity: 0.5},
			ok:   false,
		},
		{
			desc: "empty id",
			a:    agent.Agent{Role: agent.Participant, Networks: []string{"net-a"}, Capacity: 0.5},
			ok:   false,
		},
		{
			desc: "capacity out of range",
			a:    agent.Agent{ID: "a2", Role: agent.Participant, Networks: []string{"net-a"}, Capacity: 1.5},
			ok:   false,
		},
		{
			desc: "no networks",
			a:    agent.Agent{ID: "a3", Role: agent.Participant, Capacity: 0.5},
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.ok, svc.RegisterAgent(ctx, tc.a))
		})
	}

	a, err := svc.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.NotEmpty(t, a.Name)
	assert.Equal(t, agent.DefaultTrustScore, a.TrustScore)
	assert.Equal(t, coordinator.DefaultTuning().TotalPrivacyBudget, a.PrivacyBudget)
}

func TestCreateRoundInsufficientAgents(t *testing.T) {
	svc := setupTestService(t)
	registerAgents(t, svc, "agent-1", "agent-2")

	_, err := svc.CreateRound(context.Background(), coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.FedAvg,
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientParticipants)
}

func TestCreateRound(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3", "agent-4", "agent-5")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.ByzantineRobust,
	})
	require.NoError(t, err)
	assert.Len(t, r.Participants, 5)
	assert.Equal(t, 1, r.ByzantineTolerance)
	assert.Equal(t, round.Training, r.Phase)
	assert.True(t, r.Deadline.After(r.StartTime))
}

func TestCreateRoundSpansFullRegistry(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	// More agents than one storage page. The strongest candidate sorts
	// after all of them lexically, so a paged listing would miss it.
	for i := 0; i < 120; i++ {
		ok := svc.RegisterAgent(ctx, agent.Agent{
			ID:       fmt.Sprintf("agent-%03d", i),
			Role:     agent.Participant,
			Networks: []string{"net-a"},
			Capacity: 0.1,
		})
		require.True(t, ok)
	}
	ok := svc.RegisterAgent(ctx, agent.Agent{
		ID:       "z-strong",
		Role:     agent.Participant,
		Networks: []string{"net-a"},
		Capacity: 1.0,
	})
	require.True(t, ok)

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.FedAvg,
	})
	require.NoError(t, err)
	assert.Len(t, r.Participants, 10)
	assert.Contains(t, r.Participants, "z-strong")
}

func TestSubmitUpdate(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{ModelID: "model-1", Strategy: round.FedAvg})
	require.NoError(t, err)

	u, err := svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-1",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, honestWeights().Hash(), u.WeightsHash)
	assert.Equal(t, u.WeightsHash, u.Proof.WeightsHash)
	assert.Zero(t, u.NoiseMagnitude)

	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-1",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateUpdate)

	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "outsider",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	assert.ErrorIs(t, err, errors.ErrNotParticipant)

	a, err := svc.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Contributions)
	assert.Equal(t, []float64{0.9}, a.PerformanceHistory)
}

func TestSubmitUpdateDifferentialPrivate(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.DifferentialPrivate,
		Epsilon:  1.0,
	})
	require.NoError(t, err)

	weights := honestWeights()
	u, err := svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-1",
		RoundID:         r.ID,
		Weights:         weights,
		ValidationScore: 0.9,
	})
	require.NoError(t, err)
	assert.Positive(t, u.NoiseMagnitude)
	assert.NotEqual(t, weights.Hash(), u.WeightsHash)
	// Hash covers the stored, noised weights.
	assert.Equal(t, u.Weights.Hash(), u.WeightsHash)

	a, err := svc.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, a.PrivacyBudget, 1e-9)
}

func TestSubmitUpdateBudgetExhausted(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.DifferentialPrivate,
		Epsilon:  11.0,
	})
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-1",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	assert.ErrorIs(t, err, errors.ErrBudgetExhausted)
}

func TestSubmitUpdateAfterDeadline(t *testing.T) {
	now := time.Now()
	svc := setupTestService(t, coordinator.WithNow(func() time.Time { return now }))
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{ModelID: "model-1", Strategy: round.FedAvg})
	require.NoError(t, err)
	assert.Equal(t, round.Training, r.Phase)

	now = now.Add(coordinator.DefaultTuning().RoundTimeout + time.Second)

	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-1",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	assert.ErrorIs(t, err, errors.ErrRoundClosed)
}

func TestAggregateRoundExcludesByzantine(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3", "agent-4", "agent-5")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{
		ModelID:  "model-1",
		Strategy: round.ByzantineRobust,
	})
	require.NoError(t, err)

	honest := honestWeights()
	for _, id := range []string{"agent-1", "agent-2", "agent-3", "agent-4"} {
		_, err := svc.SubmitUpdate(ctx, coordinator.Submission{
			AgentID:         id,
			RoundID:         r.ID,
			Weights:         honest,
			ValidationScore: 0.9,
		})
		require.NoError(t, err)
	}
	outlier := honest.Map(func(v float64) float64 { return v * 50 })
	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-5",
		RoundID:         r.ID,
		Weights:         outlier,
		ValidationScore: 0.3,
	})
	require.NoError(t, err)

	res, err := svc.AggregateRound(ctx, r.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"agent-5"}, res.ExcludedAgents)
	assert.Len(t, res.UpdateIDs, 4)
	// Four identical surviving updates: the median is the honest model.
	assert.Equal(t, honest.Hash(), res.Weights.Hash())
	assert.InDelta(t, 0.94, res.QualityScore, 1e-9)
	assert.True(t, res.ConsensusAchieved)

	det, err := svc.GetDetection(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-5"}, det.Suspects)
	assert.Positive(t, det.Confidence)

	got, err := svc.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Completion, got.Phase)

	// Survivors earn trust, the suspect loses it and accrues byzantine score.
	for _, id := range []string{"agent-1", "agent-2", "agent-3", "agent-4"} {
		a, err := svc.GetAgent(ctx, id)
		require.NoError(t, err)
		assert.InDelta(t, 0.845, a.TrustScore, 1e-9)
		assert.Zero(t, a.ByzantineScore)
	}
	suspect, err := svc.GetAgent(ctx, "agent-5")
	require.NoError(t, err)
	assert.Less(t, suspect.TrustScore, agent.DefaultTrustScore)
	assert.GreaterOrEqual(t, suspect.TrustScore, 0.0)
	assert.InDelta(t, 0.1, suspect.ByzantineScore, 1e-9)

	// A second aggregation of a completed round is rejected.
	_, err = svc.AggregateRound(ctx, r.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	stored, err := svc.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, stored.ID)
}

func TestAggregateRoundTooManyFaulty(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	// Three participants carry zero byzantine tolerance, so one flagged
	// agent is already more than the round can absorb.
	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{ModelID: "model-1", Strategy: round.FedAvg})
	require.NoError(t, err)
	require.Zero(t, r.ByzantineTolerance)

	for _, id := range []string{"agent-1", "agent-2"} {
		_, err := svc.SubmitUpdate(ctx, coordinator.Submission{
			AgentID:         id,
			RoundID:         r.ID,
			Weights:         honestWeights(),
			ValidationScore: 0.9,
		})
		require.NoError(t, err)
	}
	flipped := honestWeights().Map(func(v float64) float64 { return -v })
	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-3",
		RoundID:         r.ID,
		Weights:         flipped,
		ValidationScore: 0.3,
	})
	require.NoError(t, err)

	_, err = svc.AggregateRound(ctx, r.ID)
	assert.ErrorIs(t, err, errors.ErrTooManyFaulty)

	got, err := svc.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Rollback, got.Phase)

	// Detection is recorded even when the round is refused.
	det, err := svc.GetDetection(ctx, r.ID)
	require.NoError(t, err)
	assert.Contains(t, det.Flagged, "agent-3")
	assert.Empty(t, det.Suspects)
}

func TestAggregateRoundInsufficientUpdates(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{ModelID: "model-1", Strategy: round.FedAvg})
	require.NoError(t, err)

	for _, id := range []string{"agent-1", "agent-2"} {
		_, err := svc.SubmitUpdate(ctx, coordinator.Submission{
			AgentID:         id,
			RoundID:         r.ID,
			Weights:         honestWeights(),
			ValidationScore: 0.9,
		})
		require.NoError(t, err)
	}

	_, err = svc.AggregateRound(ctx, r.ID)
	assert.ErrorIs(t, err, errors.ErrInsufficientParticipants)

	got, err := svc.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Rollback, got.Phase)

	// A rolled-back round no longer accepts updates.
	_, err = svc.SubmitUpdate(ctx, coordinator.Submission{
		AgentID:         "agent-3",
		RoundID:         r.ID,
		Weights:         honestWeights(),
		ValidationScore: 0.9,
	})
	assert.ErrorIs(t, err, errors.ErrRoundClosed)
}

func TestMetrics(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	registerAgents(t, svc, "agent-1", "agent-2", "agent-3")

	r, err := svc.CreateRound(ctx, coordinator.RoundSpec{ModelID: "model-1", Strategy: round.FedAvg})
	require.NoError(t, err)
	for _, id := range r.Participants {
		_, err := svc.SubmitUpdate(ctx, coordinator.Submission{
			AgentID:         id,
			RoundID:         r.ID,
			Weights:         honestWeights(),
			ValidationScore: 0.9,
		})
		require.NoError(t, err)
	}
	_, err = svc.AggregateRound(ctx, r.ID)
	require.NoError(t, err)

	m, err := svc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.RegisteredAgents)
	assert.Equal(t, uint64(1), m.TotalRounds)
	assert.Equal(t, uint64(1), m.CompletedRounds)
	assert.Equal(t, 1.0, m.SuccessRate)
	assert.Zero(t, m.ByzantineDetected)
	assert.InDelta(t, 0.845, m.AverageTrust, 1e-9)
	assert.Zero(t, m.PrivacyBudgetUtilization)
}
