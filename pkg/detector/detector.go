// Package detector implements the byzantine detection ensemble. Every model
// update accumulates a suspicion score from independent signals; agents at or
// above an adaptive threshold are flagged, and the flagged set is truncated
// to the round's byzantine tolerance.
package detector

import (
	"sort"
	"time"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/round"
	"github.com/absmach/colearn/update"
	"github.com/google/uuid"
)

// Sensitivity multipliers for the adaptive threshold, per strategy. Robust
// rounds detect aggressively; differential-private rounds tolerate the noise
// they injected themselves.
const (
	sensitivityRobust  = 0.5
	sensitivityPrivate = 1.5
	sensitivityDefault = 1.0
)

// Input carries everything one detection pass needs. Agents must contain an
// entry for every update's owner; Now anchors proof timestamp validation.
type Input struct {
	Round   round.LearningRound
	Updates []update.ModelUpdate
	Agents  map[string]agent.Agent
	Now     time.Time
}

type Detector struct {
	signals []signal
}

func New() *Detector {
	return &Detector{signals: ensemble}
}

func sensitivity(s round.Strategy) float64 {
	switch s {
	case round.ByzantineRobust:
		return sensitivityRobust
	case round.DifferentialPrivate:
		return sensitivityPrivate
	default:
		return sensitivityDefault
	}
}

// Threshold computes the adaptive exclusion threshold for the given suspicion
// scores: mean + k·stddev, capped at (1 − tolerance fraction) of the round.
func Threshold(r round.LearningRound, suspicions []float64) float64 {
	t := mean(suspicions) + sensitivity(r.Strategy)*stddev(suspicions)
	if ceiling := 1 - r.ToleranceFraction(); t > ceiling {
		t = ceiling
	}

	return t
}

// Detect runs the ensemble over the round's updates. It never fails: an
// empty or degenerate input yields an empty suspect list.
func (d *Detector) Detect(in Input) round.DetectionResult {
	env := newEnv(in)

	suspicions := make([]float64, len(in.Updates))
	evidence := make(map[string][]string)
	for i, u := range in.Updates {
		for _, sig := range d.signals {
			if sig.fire(env, i) {
				suspicions[i] += sig.bonus
				evidence[u.AgentID] = append(evidence[u.AgentID], sig.tag)
			}
		}
	}

	threshold := Threshold(in.Round, suspicions)

	type scored struct {
		agentID   string
		suspicion float64
	}
	var flagged []scored
	for i, u := range in.Updates {
		if suspicions[i] > 0 && suspicions[i] >= threshold {
			flagged = append(flagged, scored{agentID: u.AgentID, suspicion: suspicions[i]})
		}
	}

	// Highest suspicion first, ties by agent id order.
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].suspicion != flagged[j].suspicion {
			return flagged[i].suspicion > flagged[j].suspicion
		}

		return flagged[i].agentID < flagged[j].agentID
	})

	suspects := flagged
	if len(suspects) > in.Round.ByzantineTolerance {
		suspects = suspects[:in.Round.ByzantineTolerance]
	}

	result := round.DetectionResult{
		ID:         uuid.NewString(),
		RoundID:    in.Round.ID,
		Evidence:   evidence,
		DetectedAt: in.Now,
	}
	for _, f := range flagged {
		result.Flagged = append(result.Flagged, f.agentID)
	}
	for _, s := range suspects {
		result.Suspects = append(result.Suspects, s.agentID)
		if s.suspicion > result.Confidence {
			result.Confidence = s.suspicion
		}
	}

	return result
}
