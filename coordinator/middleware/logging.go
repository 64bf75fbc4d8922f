package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) RegisterAgent(ctx context.Context, a agent.Agent) (ok bool) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("agent",
				slog.String("id", a.ID),
				slog.String("role", a.Role.String()),
			),
		}
		if !ok {
			lm.logger.Warn("Register agent failed", args...)

			return
		}
		lm.logger.Info("Register agent completed successfully", args...)
	}(time.Now())

	return lm.svc.RegisterAgent(ctx, a)
}

func (lm *loggingMiddleware) GetAgent(ctx context.Context, agentID string) (resp agent.Agent, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("agent",
				slog.String("id", agentID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get agent failed", args...)

			return
		}
		lm.logger.Info("Get agent completed successfully", args...)
	}(time.Now())

	return lm.svc.GetAgent(ctx, agentID)
}

func (lm *loggingMiddleware) ListAgents(ctx context.Context, offset, limit uint64) (resp agent.AgentPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List agents failed", args...)

			return
		}
		lm.logger.Info("List agents completed successfully", args...)
	}(time.Now())

	return lm.svc.ListAgents(ctx, offset, limit)
}

func (lm *loggingMiddleware) CreateRound(ctx context.Context, spec coordinator.RoundSpec) (resp round.LearningRound, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", resp.ID),
				slog.String("model_id", spec.ModelID),
				slog.String("strategy", string(spec.Strategy)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create round failed", args...)

			return
		}
		lm.logger.Info("Create round completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateRound(ctx, spec)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, roundID string) (resp round.LearningRound, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", roundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, roundID)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (resp round.RoundPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, offset, limit)
}

func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, sub coordinator.Submission) (resp update.ModelUpdate, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.String("agent_id", sub.AgentID),
				slog.String("round_id", sub.RoundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit update failed", args...)

			return
		}
		lm.logger.Info("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, sub)
}

func (lm *loggingMiddleware) ListUpdates(ctx context.Context, roundID string, offset, limit uint64) (resp update.UpdatePage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("round_id", roundID),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List updates failed", args...)

			return
		}
		lm.logger.Info("List updates completed successfully", args...)
	}(time.Now())

	return lm.svc.ListUpdates(ctx, roundID, offset, limit)
}

func (lm *loggingMiddleware) AggregateRound(ctx context.Context, roundID string) (resp round.AggregationResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", roundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregate round failed", args...)

			return
		}
		args = append(args,
			slog.Float64("quality", resp.QualityScore),
			slog.Bool("consensus", resp.ConsensusAchieved),
		)
		lm.logger.Info("Aggregate round completed successfully", args...)
	}(time.Now())

	return lm.svc.AggregateRound(ctx, roundID)
}

func (lm *loggingMiddleware) GetResult(ctx context.Context, roundID string) (resp round.AggregationResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", roundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get result failed", args...)

			return
		}
		lm.logger.Info("Get result completed successfully", args...)
	}(time.Now())

	return lm.svc.GetResult(ctx, roundID)
}

func (lm *loggingMiddleware) GetDetection(ctx context.Context, roundID string) (resp round.DetectionResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("id", roundID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get detection failed", args...)

			return
		}
		lm.logger.Info("Get detection completed successfully", args...)
	}(time.Now())

	return lm.svc.GetDetection(ctx, roundID)
}

func (lm *loggingMiddleware) Metrics(ctx context.Context) (resp coordinator.Metrics, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get metrics failed", args...)

			return
		}
		lm.logger.Info("Get metrics completed successfully", args...)
	}(time.Now())

	return lm.svc.Metrics(ctx)
}

func (lm *loggingMiddleware) Subscribe(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Subscribe failed", args...)

			return
		}
		lm.logger.Info("Subscribe completed successfully", args...)
	}(time.Now())

	return lm.svc.Subscribe(ctx)
}
