package middleware

import (
	"context"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) RegisterAgent(ctx context.Context, a agent.Agent) bool {
	ctx, span := tm.tracer.Start(ctx, "register-agent", trace.WithAttributes(
		attribute.String("id", a.ID),
		attribute.String("role", a.Role.String()),
	))
	defer span.End()

	return tm.svc.RegisterAgent(ctx, a)
}

func (tm *tracing) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	ctx, span := tm.tracer.Start(ctx, "get-agent", trace.WithAttributes(
		attribute.String("id", agentID),
	))
	defer span.End()

	return tm.svc.GetAgent(ctx, agentID)
}

func (tm *tracing) ListAgents(ctx context.Context, offset, limit uint64) (agent.AgentPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-agents", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListAgents(ctx, offset, limit)
}

func (tm *tracing) CreateRound(ctx context.Context, spec coordinator.RoundSpec) (round.LearningRound, error) {
	ctx, span := tm.tracer.Start(ctx, "create-round", trace.WithAttributes(
		attribute.String("model_id", spec.ModelID),
		attribute.String("strategy", string(spec.Strategy)),
	))
	defer span.End()

	return tm.svc.CreateRound(ctx, spec)
}

func (tm *tracing) GetRound(ctx context.Context, roundID string) (round.LearningRound, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.String("id", roundID),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, roundID)
}

func (tm *tracing) ListRounds(ctx context.Context, offset, limit uint64) (round.RoundPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, offset, limit)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, sub coordinator.Submission) (update.ModelUpdate, error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.String("agent_id", sub.AgentID),
		attribute.String("round_id", sub.RoundID),
	))
	defer span.End()

	return tm.svc.SubmitUpdate(ctx, sub)
}

func (tm *tracing) ListUpdates(ctx context.Context, roundID string, offset, limit uint64) (update.UpdatePage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-updates", trace.WithAttributes(
		attribute.String("round_id", roundID),
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListUpdates(ctx, roundID, offset, limit)
}

func (tm *tracing) AggregateRound(ctx context.Context, roundID string) (round.AggregationResult, error) {
	ctx, span := tm.tracer.Start(ctx, "aggregate-round", trace.WithAttributes(
		attribute.String("id", roundID),
	))
	defer span.End()

	return tm.svc.AggregateRound(ctx, roundID)
}

func (tm *tracing) GetResult(ctx context.Context, roundID string) (round.AggregationResult, error) {
	ctx, span := tm.tracer.Start(ctx, "get-result", trace.WithAttributes(
		attribute.String("id", roundID),
	))
	defer span.End()

	return tm.svc.GetResult(ctx, roundID)
}

func (tm *tracing) GetDetection(ctx context.Context, roundID string) (round.DetectionResult, error) {
	ctx, span := tm.tracer.Start(ctx, "get-detection", trace.WithAttributes(
		attribute.String("id", roundID),
	))
	defer span.End()

	return tm.svc.GetDetection(ctx, roundID)
}

func (tm *tracing) Metrics(ctx context.Context) (coordinator.Metrics, error) {
	ctx, span := tm.tracer.Start(ctx, "metrics")
	defer span.End()

	return tm.svc.Metrics(ctx)
}

func (tm *tracing) Subscribe(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "subscribe")
	defer span.End()

	return tm.svc.Subscribe(ctx)
}
