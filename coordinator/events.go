package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/round"
)

const aliveHistoryLimit = 10

// Round lifecycle events are broadcast on the coordinator's control channel;
// per-agent assignments go to each participant's own channel.
func (svc *service) publishRoundStart(ctx context.Context, r round.LearningRound) {
	msg := map[string]any{
		"round_id":     r.ID,
		"model_id":     r.ModelID,
		"strategy":     string(r.Strategy),
		"epsilon":      r.Epsilon,
		"participants": r.Participants,
		"deadline":     r.Deadline,
	}

	topic := "channels/" + svc.channelID + "/messages/control/coordinator/round/start"
	if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
		svc.logger.WarnContext(ctx, "failed to announce round start",
			slog.String("round_id", r.ID), slog.Any("error", err))
	}

	for _, id := range r.Participants {
		topic := "channels/" + id + "/messages/control/coordinator/assign"
		if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
			svc.logger.WarnContext(ctx, "failed to notify participant",
				slog.String("round_id", r.ID),
				slog.String("agent_id", id),
				slog.Any("error", err))
		}
	}
}

func (svc *service) publishRoundComplete(ctx context.Context, r round.LearningRound, res round.AggregationResult) {
	msg := map[string]any{
		"round_id":           r.ID,
		"model_id":           r.ModelID,
		"quality_score":      res.QualityScore,
		"consensus_achieved": res.ConsensusAchieved,
		"excluded_agents":    res.ExcludedAgents,
	}

	topic := "channels/" + svc.channelID + "/messages/control/coordinator/round/complete"
	if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
		svc.logger.WarnContext(ctx, "failed to announce round completion",
			slog.String("round_id", r.ID), slog.Any("error", err))
	}
}

// Subscribe attaches the coordinator to the agent control channel. Agents
// announce themselves on the register topic and heartbeat on the alive topic.
func (svc *service) Subscribe(ctx context.Context) error {
	baseTopic := "channels/" + svc.channelID + "/messages"

	return svc.pubsub.Subscribe(ctx, baseTopic+"/#", svc.handle(ctx, baseTopic))
}

func (svc *service) handle(ctx context.Context, baseTopic string) func(topic string, msg map[string]any) error {
	return func(topic string, msg map[string]any) error {
		switch topic {
		case baseTopic + "/control/agent/register":
			return svc.registerFromMessage(ctx, msg)
		case baseTopic + "/control/agent/alive":
			return svc.updateLiveness(ctx, msg)
		}

		return nil
	}
}

func (svc *service) registerFromMessage(ctx context.Context, msg map[string]any) error {
	agentID, ok := msg["agent_id"].(string)
	if !ok || agentID == "" {
		return errors.New("invalid agent_id")
	}

	a := agent.Agent{ID: agentID}
	if name, ok := msg["name"].(string); ok {
		a.Name = name
	}
	if role, ok := msg["role"].(string); ok {
		a.Role, _ = agent.ParseRole(role)
	} else {
		a.Role = agent.Participant
	}
	if capacity, ok := msg["capacity"].(float64); ok {
		a.Capacity = capacity
	}
	if networks, ok := msg["networks"].([]any); ok {
		for _, n := range networks {
			if s, ok := n.(string); ok {
				a.Networks = append(a.Networks, s)
			}
		}
	}

	if !svc.RegisterAgent(ctx, a) {
		return errors.New("agent registration failed")
	}
	svc.logger.InfoContext(ctx, "registered agent over control channel",
		slog.String("agent_id", agentID))

	return nil
}

func (svc *service) updateLiveness(ctx context.Context, msg map[string]any) error {
	agentID, ok := msg["agent_id"].(string)
	if !ok || agentID == "" {
		return errors.New("invalid agent_id")
	}
	if status, ok := msg["status"].(string); ok && status == "offline" {
		return svc.mutateLiveness(ctx, agentID, func(a *agent.Agent) {
			a.Alive = false
		})
	}

	return svc.mutateLiveness(ctx, agentID, func(a *agent.Agent) {
		a.Alive = true
		a.AliveHistory = append(a.AliveHistory, time.Now())
		if len(a.AliveHistory) > aliveHistoryLimit {
			a.AliveHistory = a.AliveHistory[1:]
		}
		if latency, ok := msg["latency_ms"].(float64); ok && latency > 0 {
			a.LatencyMS = latency
		}
		if bandwidth, ok := msg["bandwidth_mbps"].(float64); ok && bandwidth > 0 {
			a.BandwidthMbps = bandwidth
		}
	})
}

func (svc *service) mutateLiveness(ctx context.Context, agentID string, fn func(*agent.Agent)) error {
	unlock := svc.lockAgent(agentID)
	defer unlock()

	data, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		return err
	}
	a, ok := data.(agent.Agent)
	if !ok {
		return errors.New("invalid agent data")
	}
	fn(&a)

	return svc.repos.Agents.Update(ctx, agentID, a)
}
