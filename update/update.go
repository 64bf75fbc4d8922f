package update

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/absmach/colearn/pkg/tensor"
)

// ProofTolerance is the window within which a proof timestamp is accepted.
const ProofTolerance = time.Hour

// Proof binds an agent's identity, its submitted weight hash and the moment
// of computation. It is an integrity artifact, not a cryptographic commitment.
type Proof struct {
	AgentID         string    `json:"agent_id"`
	WeightsHash     string    `json:"weights_hash"`
	ValidationScore float64   `json:"validation_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// Valid checks the proof against the update it accompanies: all fields
// present, agent and weight hash matching, timestamp within tolerance of now.
func (p Proof) Valid(agentID, weightsHash string, now time.Time) bool {
	if p.AgentID == "" || p.WeightsHash == "" || p.Timestamp.IsZero() {
		return false
	}
	if p.AgentID != agentID || p.WeightsHash != weightsHash {
		return false
	}
	age := now.Sub(p.Timestamp)
	if age < 0 {
		age = -age
	}

	return age <= ProofTolerance
}

// ModelUpdate is one agent's contribution to a round. Immutable once
// submitted; at most one update per (agent, round) pair.
type ModelUpdate struct {
	ID              string         `json:"id"`
	AgentID         string         `json:"agent_id"`
	RoundID         string         `json:"round_id"`
	Weights         tensor.Weights `json:"weights"`
	WeightsHash     string         `json:"weights_hash"`
	NoiseMagnitude  float64        `json:"noise_magnitude"`
	ValidationScore float64        `json:"validation_score"`
	Proof           Proof          `json:"proof"`
	Signature       string         `json:"signature"`
	BandwidthUsed   float64        `json:"bandwidth_used"`
	SubmittedAt     time.Time      `json:"submitted_at"`
}

// Sign produces the placeholder signature over the update identity. A real
// deployment would replace this with an agent-held key.
func Sign(agentID, weightsHash string) string {
	sum := sha256.Sum256([]byte(agentID + ":" + weightsHash))

	return hex.EncodeToString(sum[:])
}

type UpdatePage struct {
	Offset  uint64        `json:"offset"`
	Limit   uint64        `json:"limit"`
	Total   uint64        `json:"total"`
	Updates []ModelUpdate `json:"updates"`
}
