package round_test

import (
	"testing"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTolerance(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 0},
		{3, 0},
		{4, 1},
		{5, 1},
		{6, 1},
		{9, 2},
		{10, 3},
		{15, 4},
	}

	for _, tc := range cases {
		got := round.Tolerance(tc.n)
		assert.Equal(t, tc.want, got, "n=%d", tc.n)
		assert.LessOrEqual(t, got, tc.n/3, "tolerance exceeds n/3 for n=%d", tc.n)
	}
}

func TestAdvance(t *testing.T) {
	r := round.LearningRound{Phase: round.Initialization}

	require.NoError(t, r.Advance(round.Training))
	require.NoError(t, r.Advance(round.Aggregation))
	require.NoError(t, r.Advance(round.Validation))
	require.NoError(t, r.Advance(round.Completion))
	assert.True(t, r.Phase.Terminal())

	err := r.Advance(round.Rollback)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestAdvanceRollback(t *testing.T) {
	r := round.LearningRound{Phase: round.Initialization}
	require.NoError(t, r.Advance(round.Training))
	require.NoError(t, r.Advance(round.Rollback))
	assert.True(t, r.Phase.Terminal())

	assert.ErrorIs(t, r.Advance(round.Completion), errors.ErrInvalidTransition)
}

func TestAdvanceSkipRejected(t *testing.T) {
	r := round.LearningRound{Phase: round.Initialization}
	assert.ErrorIs(t, r.Advance(round.Completion), errors.ErrInvalidTransition)
	assert.Equal(t, round.Initialization, r.Phase)
}

func TestIsParticipant(t *testing.T) {
	r := round.LearningRound{Participants: []string{"a", "b"}}
	assert.True(t, r.IsParticipant("a"))
	assert.False(t, r.IsParticipant("c"))
}
