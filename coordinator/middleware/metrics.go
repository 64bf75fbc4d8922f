package middleware

import (
	"context"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) RegisterAgent(ctx context.Context, a agent.Agent) bool {
	defer func(begin time.Time) {
		mm.counter.With("method", "register-agent").Add(1)
		mm.latency.With("method", "register-agent").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RegisterAgent(ctx, a)
}

func (mm *metricsMiddleware) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-agent").Add(1)
		mm.latency.With("method", "get-agent").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetAgent(ctx, agentID)
}

func (mm *metricsMiddleware) ListAgents(ctx context.Context, offset, limit uint64) (agent.AgentPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-agents").Add(1)
		mm.latency.With("method", "list-agents").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListAgents(ctx, offset, limit)
}

func (mm *metricsMiddleware) CreateRound(ctx context.Context, spec coordinator.RoundSpec) (round.LearningRound, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-round").Add(1)
		mm.latency.With("method", "create-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateRound(ctx, spec)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, roundID string) (round.LearningRound, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, roundID)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (round.RoundPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, offset, limit)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, sub coordinator.Submission) (update.ModelUpdate, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, sub)
}

func (mm *metricsMiddleware) ListUpdates(ctx context.Context, roundID string, offset, limit uint64) (update.UpdatePage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-updates").Add(1)
		mm.latency.With("method", "list-updates").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListUpdates(ctx, roundID, offset, limit)
}

func (mm *metricsMiddleware) AggregateRound(ctx context.Context, roundID string) (round.AggregationResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "aggregate-round").Add(1)
		mm.latency.With("method", "aggregate-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.AggregateRound(ctx, roundID)
}

func (mm *metricsMiddleware) GetResult(ctx context.Context, roundID string) (round.AggregationResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-result").Add(1)
		mm.latency.With("method", "get-result").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetResult(ctx, roundID)
}

func (mm *metricsMiddleware) GetDetection(ctx context.Context, roundID string) (round.DetectionResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-detection").Add(1)
		mm.latency.With("method", "get-detection").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetDetection(ctx, roundID)
}

func (mm *metricsMiddleware) Metrics(ctx context.Context) (coordinator.Metrics, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "metrics").Add(1)
		mm.latency.With("method", "metrics").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Metrics(ctx)
}

func (mm *metricsMiddleware) Subscribe(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "subscribe").Add(1)
		mm.latency.With("method", "subscribe").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Subscribe(ctx)
}
