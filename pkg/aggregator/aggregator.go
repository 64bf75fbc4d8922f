// Package aggregator combines surviving model updates into one result under
// a chosen strategy.
package aggregator

import (
	"context"

	"github.com/absmach/colearn/pkg/errors"
	"github.com/absmach/colearn/pkg/privacy"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
)

// MinUpdates is the smallest surviving update set that can be aggregated.
const MinUpdates = 2

// secureNoiseScale is the fixed masking noise added per element by the
// secure aggregation strategy.
const secureNoiseScale = 0.01

type Aggregator interface {
	Aggregate(ctx context.Context, updates []update.ModelUpdate) (tensor.Weights, error)
}

// New returns the aggregator for the given strategy. The mechanism supplies
// masking noise for secure aggregation; differential-private rounds reuse
// federated averaging since their noise was injected at ingestion.
func New(strategy round.Strategy, mech *privacy.Mechanism) (Aggregator, error) {
	switch strategy {
	case round.FedAvg, round.DifferentialPrivate:
		return fedAvg{}, nil
	case round.ByzantineRobust:
		return medianAgg{}, nil
	case round.SecureAggregation:
		return secureAgg{mech: mech}, nil
	default:
		return nil, errors.ErrInvalidData
	}
}

type fedAvg struct{}

// Aggregate computes the weighted mean of the updates, each weighted by its
// validation score normalized over the set.
func (fedAvg) Aggregate(_ context.Context, updates []update.ModelUpdate) (tensor.Weights, error) {
	if len(updates) < MinUpdates {
		return nil, errors.ErrInsufficientParticipants
	}

	total := 0.0
	for _, u := range updates {
		total += u.ValidationScore
	}

	ws := make([]tensor.Weights, len(updates))
	coefs := make([]float64, len(updates))
	for i, u := range updates {
		ws[i] = u.Weights
		if total > 0 {
			coefs[i] = u.ValidationScore / total
		} else {
			coefs[i] = 1 / float64(len(updates))
		}
	}

	return tensor.WeightedSum(ws, coefs)
}

type medianAgg struct{}

// Aggregate takes the element-wise median, which tolerates up to half the
// updates being arbitrary.
func (medianAgg) Aggregate(_ context.Context, updates []update.ModelUpdate) (tensor.Weights, error) {
	if len(updates) < MinUpdates {
		return nil, errors.ErrInsufficientParticipants
	}

	ws := make([]tensor.Weights, len(updates))
	for i, u := range updates {
		ws[i] = u.Weights
	}

	return tensor.Median(ws)
}

type secureAgg struct {
	mech *privacy.Mechanism
}

// Aggregate is federated averaging with independent Gaussian masking noise
// added per element.
func (s secureAgg) Aggregate(ctx context.Context, updates []update.ModelUpdate) (tensor.Weights, error) {
	avg, err := fedAvg{}.Aggregate(ctx, updates)
	if err != nil {
		return nil, err
	}

	return avg.Map(func(v float64) float64 {
		return v + s.mech.Noise(secureNoiseScale)
	}), nil
}

// Quality scores an aggregation: agreement between the surviving updates
// blended with their reported validation quality.
func Quality(updates []update.ModelUpdate) float64 {
	if len(updates) == 0 {
		return 0
	}

	scores := make([]float64, len(updates))
	flat := make([][]float64, len(updates))
	for i, u := range updates {
		scores[i] = u.ValidationScore
		flat[i] = u.Weights.Flatten()
	}

	similarity := 1.0
	if len(updates) > 1 {
		sum, count := 0.0, 0
		for i := range flat {
			for j := i + 1; j < len(flat); j++ {
				sum += tensor.CosineSimilarity(flat[i], flat[j])
				count++
			}
		}
		similarity = sum / float64(count)
	}

	return 0.6*tensor.Mean(scores, 0) + 0.4*similarity
}

// PrivacyLoss totals the noise magnitudes recorded on the updates at
// ingestion.
func PrivacyLoss(updates []update.ModelUpdate) float64 {
	total := 0.0
	for _, u := range updates {
		total += u.NoiseMagnitude
	}

	return total
}
