package detector

import (
	"math"

	"github.com/absmach/colearn/pkg/tensor"
)

// A signal is one independent suspicion check. Each contributes a fixed bonus
// when it fires; the ensemble sums contributions and thresholds centrally.
type signal struct {
	tag   string
	bonus float64
	fire  func(e *env, i int) bool
}

var ensemble = []signal{
	{tag: "validation_outlier", bonus: 0.3, fire: validationOutlier},
	{tag: "weight_similarity", bonus: 0.4, fire: weightSimilarity},
	{tag: "distance_outlier", bonus: 0.3, fire: distanceOutlier},
	{tag: "gradient_norm", bonus: 0.25, fire: gradientNorm},
	{tag: "reputation", bonus: 0.2, fire: reputation},
	{tag: "invalid_proof", bonus: 0.5, fire: invalidProof},
	{tag: "cross_validation", bonus: 0.35, fire: crossValidation},
	{tag: "temporal_inconsistency", bonus: 0.2, fire: temporalInconsistency},
	{tag: "model_divergence", bonus: 0.3, fire: modelDivergence},
}

// env precomputes the per-round statistics the signals share.
type env struct {
	in Input

	flat      [][]float64
	norms     []float64
	meanVec   []float64
	scores    []float64
	avgDists  []float64
	scoreMean float64
	scoreStd  float64
	normMean  float64
	normStd   float64
	distMean  float64
	distStd   float64
}

func newEnv(in Input) *env {
	e := &env{in: in}

	n := len(in.Updates)
	e.flat = make([][]float64, n)
	e.norms = make([]float64, n)
	e.scores = make([]float64, n)
	for i, u := range in.Updates {
		e.flat[i] = u.Weights.Flatten()
		e.norms[i] = tensor.L2Norm(e.flat[i])
		e.scores[i] = u.ValidationScore
	}
	e.scoreMean = mean(e.scores)
	e.scoreStd = stddev(e.scores)
	e.normMean = mean(e.norms)
	e.normStd = stddev(e.norms)

	if n > 0 {
		dim := len(e.flat[0])
		e.meanVec = make([]float64, dim)
		uniform := true
		for _, v := range e.flat {
			if len(v) != dim {
				uniform = false

				break
			}
		}
		if uniform {
			for _, v := range e.flat {
				for j, x := range v {
					e.meanVec[j] += x
				}
			}
			for j := range e.meanVec {
				e.meanVec[j] /= float64(n)
			}
		} else {
			e.meanVec = nil
		}
	}

	e.avgDists = make([]float64, n)
	for i := range in.Updates {
		sum, count := 0.0, 0
		for j := range in.Updates {
			if i == j {
				continue
			}
			d := tensor.EuclideanDistance(e.flat[i], e.flat[j])
			if !math.IsInf(d, 1) {
				sum += d
				count++
			}
		}
		if count > 0 {
			e.avgDists[i] = sum / float64(count)
		}
	}
	e.distMean = mean(e.avgDists)
	e.distStd = stddev(e.avgDists)

	return e
}

// validationOutlier fires when the reported validation score sits more than
// two standard deviations from the round mean.
func validationOutlier(e *env, i int) bool {
	if len(e.scores) < 2 || e.scoreStd == 0 {
		return false
	}

	return math.Abs(e.scores[i]-e.scoreMean) > 2*e.scoreStd
}

// weightSimilarity fires when the update points in a direction unlike its
// peers: mean cosine similarity to all other updates below 0.5.
func weightSimilarity(e *env, i int) bool {
	if len(e.flat) < 2 {
		return false
	}
	sum, count := 0.0, 0
	for j := range e.flat {
		if i == j {
			continue
		}
		sum += tensor.CosineSimilarity(e.flat[i], e.flat[j])
		count++
	}

	return sum/float64(count) < 0.5
}

// distanceOutlier fires when the update's average distance to its peers
// exceeds the peer-distance distribution by two standard deviations.
func distanceOutlier(e *env, i int) bool {
	if len(e.avgDists) < 3 || e.distStd == 0 {
		return false
	}

	return e.avgDists[i] > e.distMean+2*e.distStd
}

// gradientNorm fires on an anomalous L2 norm of the flattened weights.
func gradientNorm(e *env, i int) bool {
	if len(e.norms) < 3 || e.normStd == 0 {
		return false
	}

	return math.Abs((e.norms[i]-e.normMean)/e.normStd) > 2.5
}

// reputation fires when the agent carries a bad historical byzantine score.
func reputation(e *env, i int) bool {
	a, ok := e.in.Agents[e.in.Updates[i].AgentID]
	if !ok {
		return false
	}

	return a.ByzantineScore > 0.5
}

// invalidProof fires when the computation proof fails validation.
func invalidProof(e *env, i int) bool {
	u := e.in.Updates[i]

	return !u.Proof.Valid(u.AgentID, u.WeightsHash, e.in.Now)
}

// crossValidation blends the reported score with the agent's historical
// average and fires when the blend falls below 0.6.
func crossValidation(e *env, i int) bool {
	u := e.in.Updates[i]
	historical := 0.5
	if a, ok := e.in.Agents[u.AgentID]; ok {
		historical = tensor.Mean(a.PerformanceHistory, 0.5)
	}

	return 0.5*u.ValidationScore+0.5*historical < 0.6
}

// temporalInconsistency fires when the agent's recent validation scores are
// erratic: consistency = 1 − coefficient of variation over the last 5 scores.
func temporalInconsistency(e *env, i int) bool {
	a, ok := e.in.Agents[e.in.Updates[i].AgentID]
	if !ok {
		return false
	}
	history := a.PerformanceHistory
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) < 2 {
		return false
	}
	m := mean(history)
	if m == 0 {
		return false
	}
	cv := stddev(history) / m
	if cv > 1 {
		cv = 1
	}

	return 1-cv < 0.4
}

// modelDivergence fires when the update's distance from the ensemble mean,
// normalized by the mean's norm, exceeds 0.5.
func modelDivergence(e *env, i int) bool {
	if len(e.flat) < 2 || e.meanVec == nil {
		return false
	}
	meanNorm := tensor.L2Norm(e.meanVec)
	if meanNorm == 0 {
		return false
	}

	return tensor.EuclideanDistance(e.flat[i], e.meanVec)/meanNorm > 0.5
}

func mean(vals []float64) float64 {
	return tensor.Mean(vals, 0)
}

func stddev(vals []float64) float64 {
	return tensor.StdDev(vals)
}
