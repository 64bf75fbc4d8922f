package coordinator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/aggregator"
	"github.com/absmach/colearn/pkg/detector"
	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/mqtt"
	"github.com/absmach/colearn/pkg/privacy"
	"github.com/absmach/colearn/pkg/selector"
	"github.com/absmach/colearn/pkg/storage"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"
)

const (
	defOffset = 0

	performanceHistoryLimit = 20
)

type service struct {
	repos     *storage.Repositories
	selector  selector.Selector
	detector  *detector.Detector
	mech      *privacy.Mechanism
	pubsub    mqtt.PubSub
	channelID string
	tuning    Tuning
	logger    *slog.Logger

	// agentLocks serializes read-modify-write cycles on a single agent
	// record: budget charges, contribution counters and trust adjustments.
	agentLocks sync.Map

	totalRounds       atomic.Uint64
	completedRounds   atomic.Uint64
	byzantineDetected atomic.Uint64

	namegen namegenerator.NameGenerator
	nowFn   func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithNow overrides the service clock. Deadlines and timestamps come from
// the injected clock instead of the wall clock.
func WithNow(now func() time.Time) Option {
	return func(svc *service) {
		svc.nowFn = now
	}
}

func NewService(repos *storage.Repositories, sel selector.Selector, det *detector.Detector, mech *privacy.Mechanism, pubsub mqtt.PubSub, channelID string, tuning Tuning, logger *slog.Logger, opts ...Option) Service {
	svc := &service{
		repos:     repos,
		selector:  sel,
		detector:  det,
		mech:      mech,
		pubsub:    pubsub,
		channelID: channelID,
		tuning:    tuning,
		logger:    logger,
		namegen:   namegenerator.NewGenerator(),
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *service) lockAgent(agentID string) func() {
	v, _ := svc.agentLocks.LoadOrStore(agentID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func (svc *service) RegisterAgent(ctx context.Context, a agent.Agent) bool {
	if err := validateRegistration(a); err != nil {
		svc.logger.WarnContext(ctx, "agent registration rejected",
			slog.String("agent_id", a.ID), slog.Any("error", err))

		return false
	}

	if a.Name == "" {
		a.Name = svc.namegen.Generate()
	}
	a.TrustScore = agent.DefaultTrustScore
	a.ByzantineScore = 0
	a.PrivacyBudget = svc.tuning.TotalPrivacyBudget
	if a.LatencyMS == 0 {
		a.LatencyMS = agent.DefaultLatencyMS
	}
	if a.BandwidthMbps == 0 {
		a.BandwidthMbps = agent.DefaultBandwidthMbps
	}
	a.Contributions = 0
	a.PerformanceHistory = nil
	a.CreatedAt = svc.nowFn()

	if err := svc.repos.Agents.Create(ctx, a.ID, a); err != nil {
		svc.logger.WarnContext(ctx, "agent registration rejected",
			slog.String("agent_id", a.ID), slog.Any("error", err))

		return false
	}

	return true
}

func validateRegistration(a agent.Agent) error {
	if a.ID == "" {
		return errors.ErrEmptyKey
	}
	if a.Capacity < 0 || a.Capacity > 1 {
		return errors.ErrCapacityRange
	}
	if len(a.Networks) == 0 {
		return errors.ErrNoNetworks
	}

	return nil
}

func (svc *service) GetAgent(ctx context.Context, agentID string) (agent.Agent, error) {
	data, err := svc.repos.Agents.Get(ctx, agentID)
	if err != nil {
		return agent.Agent{}, err
	}
	a, ok := data.(agent.Agent)
	if !ok {
		return agent.Agent{}, errors.ErrInvalidData
	}
	a.SetAlive()

	return a, nil
}

func (svc *service) ListAgents(ctx context.Context, offset, limit uint64) (agent.AgentPage, error) {
	data, total, err := svc.repos.Agents.List(ctx, offset, limit)
	if err != nil {
		return agent.AgentPage{}, err
	}
	agents := make([]agent.Agent, len(data))
	for i := range data {
		a, ok := data[i].(agent.Agent)
		if !ok {
			return agent.AgentPage{}, errors.ErrInvalidData
		}
		a.SetAlive()
		agents[i] = a
	}

	return agent.AgentPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Agents: agents,
	}, nil
}

func (svc *service) CreateRound(ctx context.Context, spec RoundSpec) (round.LearningRound, error) {
	if spec.ModelID == "" {
		return round.LearningRound{}, errors.ErrEmptyKey
	}

	// Selection scores the whole registry, so list without a page limit.
	page, err := svc.ListAgents(ctx, defOffset, 0)
	if err != nil {
		return round.LearningRound{}, err
	}
	participants, err := svc.selector.Select(spec.Strategy, page.Agents)
	if err != nil {
		return round.LearningRound{}, err
	}

	now := svc.nowFn()
	r := round.LearningRound{
		ID:                 uuid.NewString(),
		ModelID:            spec.ModelID,
		Strategy:           spec.Strategy,
		TargetAccuracy:     spec.TargetAccuracy,
		MaxIterations:      spec.MaxIterations,
		Epsilon:            spec.Epsilon,
		ByzantineTolerance: round.Tolerance(len(participants)),
		StartTime:          now,
		Deadline:           now.Add(svc.tuning.RoundTimeout),
		Phase:              round.Initialization,
		CreatedAt:          now,
	}
	for _, p := range participants {
		r.Participants = append(r.Participants, p.ID)
	}

	if err := svc.repos.Rounds.Create(ctx, r.ID, r); err != nil {
		return round.LearningRound{}, err
	}
	svc.totalRounds.Add(1)

	svc.publishRoundStart(ctx, r)

	if err := r.Advance(round.Training); err != nil {
		return round.LearningRound{}, err
	}
	if err := svc.repos.Rounds.Update(ctx, r.ID, r); err != nil {
		return round.LearningRound{}, err
	}

	svc.logger.InfoContext(ctx, "created learning round",
		slog.String("round_id", r.ID),
		slog.String("strategy", string(r.Strategy)),
		slog.Int("participants", len(r.Participants)),
		slog.Int("tolerance", r.ByzantineTolerance))

	return r, nil
}

func (svc *service) GetRound(ctx context.Context, roundID string) (round.LearningRound, error) {
	data, err := svc.repos.Rounds.Get(ctx, roundID)
	if err != nil {
		return round.LearningRound{}, err
	}
	r, ok := data.(round.LearningRound)
	if !ok {
		return round.LearningRound{}, errors.ErrInvalidData
	}

	return r, nil
}

func (svc *service) ListRounds(ctx context.Context, offset, limit uint64) (round.RoundPage, error) {
	data, total, err := svc.repos.Rounds.List(ctx, offset, limit)
	if err != nil {
		return round.RoundPage{}, err
	}
	rounds := make([]round.LearningRound, len(data))
	for i := range data {
		r, ok := data[i].(round.LearningRound)
		if !ok {
			return round.RoundPage{}, errors.ErrInvalidData
		}
		rounds[i] = r
	}

	return round.RoundPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: rounds,
	}, nil
}

func (svc *service) SubmitUpdate(ctx context.Context, sub Submission) (update.ModelUpdate, error) {
	if sub.AgentID == "" || sub.RoundID == "" {
		return update.ModelUpdate{}, errors.ErrEmptyKey
	}
	if len(sub.Weights) == 0 {
		return update.ModelUpdate{}, errors.ErrInvalidData
	}

	r, err := svc.GetRound(ctx, sub.RoundID)
	if err != nil {
		return update.ModelUpdate{}, err
	}
	now := svc.nowFn()
	if r.Phase != round.Training || now.After(r.Deadline) {
		return update.ModelUpdate{}, errors.ErrRoundClosed
	}
	if !r.IsParticipant(sub.AgentID) {
		return update.ModelUpdate{}, errors.ErrNotParticipant
	}

	unlock := svc.lockAgent(sub.AgentID)
	defer unlock()

	a, err := svc.GetAgent(ctx, sub.AgentID)
	if err != nil {
		return update.ModelUpdate{}, err
	}

	weights := sub.Weights.Clone()
	noise := 0.0
	if r.Strategy == round.DifferentialPrivate {
		remaining, err := privacy.Charge(a.PrivacyBudget, r.Epsilon)
		if err != nil {
			return update.ModelUpdate{}, err
		}
		weights, noise = svc.mech.Perturb(weights, r.Epsilon)
		a.PrivacyBudget = remaining
	}

	// The hash covers the weights as stored, noise included, so proof
	// verification works on what the coordinator actually holds.
	hash := weights.Hash()
	u := update.ModelUpdate{
		ID:              uuid.NewString(),
		AgentID:         sub.AgentID,
		RoundID:         sub.RoundID,
		Weights:         weights,
		WeightsHash:     hash,
		NoiseMagnitude:  noise,
		ValidationScore: sub.ValidationScore,
		Proof: update.Proof{
			AgentID:         sub.AgentID,
			WeightsHash:     hash,
			ValidationScore: sub.ValidationScore,
			Timestamp:       now,
		},
		Signature:     update.Sign(sub.AgentID, hash),
		BandwidthUsed: sub.BandwidthUsed,
		SubmittedAt:   now,
	}

	key := sub.RoundID + "/" + sub.AgentID
	if err := svc.repos.Updates.Create(ctx, key, u); err != nil {
		if stderrors.Is(err, errors.ErrEntityExists) {
			return update.ModelUpdate{}, errors.ErrDuplicateUpdate
		}

		return update.ModelUpdate{}, err
	}

	a.Contributions++
	a.LastContribution = now
	a.PerformanceHistory = append(a.PerformanceHistory, sub.ValidationScore)
	if len(a.PerformanceHistory) > performanceHistoryLimit {
		a.PerformanceHistory = a.PerformanceHistory[1:]
	}
	if err := svc.repos.Agents.Update(ctx, a.ID, a); err != nil {
		return update.ModelUpdate{}, err
	}

	return u, nil
}

func (svc *service) ListUpdates(ctx context.Context, roundID string, offset, limit uint64) (update.UpdatePage, error) {
	data, total, err := svc.repos.Updates.ListPrefix(ctx, roundID+"/", offset, limit)
	if err != nil {
		return update.UpdatePage{}, err
	}
	updates := make([]update.ModelUpdate, len(data))
	for i := range data {
		u, ok := data[i].(update.ModelUpdate)
		if !ok {
			return update.UpdatePage{}, errors.ErrInvalidData
		}
		updates[i] = u
	}

	return update.UpdatePage{
		Offset:  offset,
		Limit:   limit,
		Total:   total,
		Updates: updates,
	}, nil
}

func (svc *service) AggregateRound(ctx context.Context, roundID string) (round.AggregationResult, error) {
	r, err := svc.GetRound(ctx, roundID)
	if err != nil {
		return round.AggregationResult{}, err
	}
	if r.Phase != round.Training {
		return round.AggregationResult{}, errors.ErrInvalidTransition
	}

	started := svc.nowFn()

	page, err := svc.ListUpdates(ctx, roundID, defOffset, 0)
	if err != nil {
		return round.AggregationResult{}, err
	}
	if len(page.Updates) < selector.MinParticipants {
		return round.AggregationResult{}, svc.rollback(ctx, r, errors.ErrInsufficientParticipants)
	}

	agents := make(map[string]agent.Agent, len(r.Participants))
	for _, id := range r.Participants {
		a, err := svc.GetAgent(ctx, id)
		if err != nil {
			return round.AggregationResult{}, err
		}
		agents[id] = a
	}

	det := svc.detector.Detect(detector.Input{
		Round:   r,
		Updates: page.Updates,
		Agents:  agents,
		Now:     started,
	})
	if err := svc.repos.Detections.Create(ctx, roundID, det); err != nil {
		return round.AggregationResult{}, err
	}
	svc.byzantineDetected.Add(uint64(len(det.Suspects)))
	if len(det.Suspects) > 0 {
		svc.logger.InfoContext(ctx, "byzantine agents flagged",
			slog.String("round_id", roundID),
			slog.Any("suspects", det.Suspects),
			slog.Float64("confidence", det.Confidence))
	}

	if len(det.Flagged) > r.ByzantineTolerance {
		return round.AggregationResult{}, svc.rollback(ctx, r, errors.ErrTooManyFaulty)
	}

	excluded := make(map[string]bool, len(det.Suspects))
	for _, id := range det.Suspects {
		excluded[id] = true
	}
	valid := make([]update.ModelUpdate, 0, len(page.Updates))
	for _, u := range page.Updates {
		if !excluded[u.AgentID] {
			valid = append(valid, u)
		}
	}
	if len(valid) < aggregator.MinUpdates {
		return round.AggregationResult{}, svc.rollback(ctx, r, errors.ErrInsufficientParticipants)
	}

	if err := r.Advance(round.Aggregation); err != nil {
		return round.AggregationResult{}, err
	}

	agg, err := svc.aggregatorFor(r.Strategy)
	if err != nil {
		return round.AggregationResult{}, svc.rollback(ctx, r, err)
	}
	weights, err := agg.Aggregate(ctx, valid)
	if err != nil {
		return round.AggregationResult{}, svc.rollback(ctx, r, err)
	}

	if err := r.Advance(round.Validation); err != nil {
		return round.AggregationResult{}, err
	}

	quality := aggregator.Quality(valid)
	result := round.AggregationResult{
		ID:                uuid.NewString(),
		RoundID:           roundID,
		Weights:           weights,
		ExcludedAgents:    det.Suspects,
		Strategy:          r.Strategy,
		QualityScore:      quality,
		PrivacyLoss:       aggregator.PrivacyLoss(valid),
		ConsensusAchieved: quality >= svc.tuning.ConsensusThreshold,
		ComputeTime:       svc.nowFn().Sub(started),
		CreatedAt:         svc.nowFn(),
	}
	for _, u := range valid {
		result.UpdateIDs = append(result.UpdateIDs, u.ID)
	}
	if err := svc.repos.Results.Create(ctx, roundID, result); err != nil {
		return round.AggregationResult{}, err
	}

	if err := svc.adjustTrust(ctx, det, valid); err != nil {
		return round.AggregationResult{}, err
	}

	if err := r.Advance(round.Completion); err != nil {
		return round.AggregationResult{}, err
	}
	if err := svc.repos.Rounds.Update(ctx, r.ID, r); err != nil {
		return round.AggregationResult{}, err
	}
	svc.completedRounds.Add(1)

	svc.publishRoundComplete(ctx, r, result)

	svc.logger.InfoContext(ctx, "aggregated learning round",
		slog.String("round_id", roundID),
		slog.Float64("quality", result.QualityScore),
		slog.Bool("consensus", result.ConsensusAchieved),
		slog.Int("excluded", len(result.ExcludedAgents)))

	return result, nil
}

// rollback moves the round to the failure terminal and persists it; the
// original cause is what the caller sees.
func (svc *service) rollback(ctx context.Context, r round.LearningRound, cause error) error {
	if err := r.Advance(round.Rollback); err != nil {
		return err
	}
	if err := svc.repos.Rounds.Update(ctx, r.ID, r); err != nil {
		return err
	}
	svc.logger.WarnContext(ctx, "learning round rolled back",
		slog.String("round_id", r.ID), slog.Any("error", cause))

	return cause
}

func (svc *service) aggregatorFor(strategy round.Strategy) (aggregator.Aggregator, error) {
	if strategy == round.WASM {
		if svc.tuning.WASMAggregatorPath == "" {
			return nil, errors.ErrInvalidData
		}
		w, err := aggregator.NewWASM(svc.tuning.WASMAggregatorPath)
		if err != nil {
			return nil, err
		}

		return w, nil
	}

	return aggregator.New(strategy, svc.mech)
}

func (svc *service) GetResult(ctx context.Context, roundID string) (round.AggregationResult, error) {
	data, err := svc.repos.Results.Get(ctx, roundID)
	if err != nil {
		return round.AggregationResult{}, err
	}
	res, ok := data.(round.AggregationResult)
	if !ok {
		return round.AggregationResult{}, errors.ErrInvalidData
	}

	return res, nil
}

func (svc *service) GetDetection(ctx context.Context, roundID string) (round.DetectionResult, error) {
	data, err := svc.repos.Detections.Get(ctx, roundID)
	if err != nil {
		return round.DetectionResult{}, err
	}
	det, ok := data.(round.DetectionResult)
	if !ok {
		return round.DetectionResult{}, errors.ErrInvalidData
	}

	return det, nil
}

func (svc *service) Metrics(ctx context.Context) (Metrics, error) {
	page, err := svc.ListAgents(ctx, defOffset, 0)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		RegisteredAgents:  page.Total,
		TotalRounds:       svc.totalRounds.Load(),
		CompletedRounds:   svc.completedRounds.Load(),
		ByzantineDetected: svc.byzantineDetected.Load(),
	}
	if m.TotalRounds > 0 {
		m.SuccessRate = float64(m.CompletedRounds) / float64(m.TotalRounds)
	}

	if len(page.Agents) == 0 {
		return m, nil
	}

	trust, spent, alive := 0.0, 0.0, 0
	for _, a := range page.Agents {
		trust += a.TrustScore
		if svc.tuning.TotalPrivacyBudget > 0 {
			spent += (svc.tuning.TotalPrivacyBudget - a.PrivacyBudget) / svc.tuning.TotalPrivacyBudget
		}
		if a.Alive {
			alive++
		}
	}
	n := float64(len(page.Agents))
	m.AverageTrust = trust / n
	m.PrivacyBudgetUtilization = spent / n
	m.NetworkHealth = float64(alive) / n

	return m, nil
}
