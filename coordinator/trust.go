package coordinator

import (
	"context"
	"log/slog"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

const (
	trustReward        = 0.05
	trustPenalty       = 0.2
	byzantineIncrement = 0.1
)

// adjustTrust applies the post-round reputation update: survivors earn trust
// in proportion to their validation score, suspects lose trust scaled by the
// detection confidence and accrue byzantine score. All scores stay in [0, 1].
func (svc *service) adjustTrust(ctx context.Context, det round.DetectionResult, survivors []update.ModelUpdate) error {
	for _, u := range survivors {
		if err := svc.mutateAgent(ctx, u.AgentID, func(trust, byz float64) (float64, float64) {
			return clamp01(trust + trustReward*u.ValidationScore), byz
		}); err != nil {
			return err
		}
	}

	for _, id := range det.Suspects {
		if err := svc.mutateAgent(ctx, id, func(trust, byz float64) (float64, float64) {
			return clamp01(trust - trustPenalty*det.Confidence), clamp01(byz + byzantineIncrement)
		}); err != nil {
			return err
		}
		svc.logger.InfoContext(ctx, "penalized byzantine suspect",
			slog.String("agent_id", id),
			slog.Float64("confidence", det.Confidence))
	}

	return nil
}

func (svc *service) mutateAgent(ctx context.Context, agentID string, fn func(trust, byz float64) (float64, float64)) error {
	unlock := svc.lockAgent(agentID)
	defer unlock()

	data, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		return err
	}
	a, ok := data.(agent.Agent)
	if !ok {
		return errors.ErrInvalidData
	}

	a.TrustScore, a.ByzantineScore = fn(a.TrustScore, a.ByzantineScore)

	return svc.repos.Agents.Update(ctx, agentID, a)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}

	return v
}
