package colearn

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"
)

// Config is the optional TOML tuning file for the coordinator. Everything in
// it has a working default; the file only overrides.
type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Selection   SelectionConfig   `toml:"selection"`
}

type CoordinatorConfig struct {
	ConsensusThreshold float64       `toml:"consensus_threshold"`
	TotalPrivacyBudget float64       `toml:"total_privacy_budget"`
	RoundTimeout       time.Duration `toml:"round_timeout"`
	Sensitivity        float64       `toml:"sensitivity"`
	WASMAggregatorPath string        `toml:"wasm_aggregator_path"`
}

// SelectionConfig overrides the per-strategy participant caps. A zero value
// keeps the built-in cap.
type SelectionConfig struct {
	FedAvgCap              int `toml:"fedavg_cap"`
	SecureAggregationCap   int `toml:"secure_aggregation_cap"`
	ByzantineRobustCap     int `toml:"byzantine_robust_cap"`
	DifferentialPrivateCap int `toml:"differential_private_cap"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
