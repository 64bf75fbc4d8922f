package cli

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/absmach/colearn/coordinator"
	"github.com/absmach/colearn/pkg/tensor"
	"github.com/absmach/colearn/round"
	"github.com/spf13/cobra"
)

var (
	errEmptyAgentID  = errors.New("agent id must not be empty")
	errCapacityRange = errors.New("capacity must be within [0, 1]")

	roundStrategy string
	roundEpsilon  float64
	updateAgentID string
	updateScore   float64
)

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [create|view|list|submit|aggregate|result|detection|updates]",
		Short: "Rounds management",
		Long:  `Create, inspect and aggregate learning rounds.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <model_id>",
		Short: "Create round",
		Long: `Create a learning round for a model.

Examples:
  # Plain federated averaging
  colearn-cli rounds create model-1

  # Byzantine-robust aggregation
  colearn-cli rounds create model-1 --strategy=byzantine_robust

  # Differential privacy with a per-round epsilon
  colearn-cli rounds create model-1 --strategy=differential_private --epsilon=1.0`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := csdk.CreateRound(coordinator.RoundSpec{
				ModelID:  args[0],
				Strategy: round.Strategy(roundStrategy),
				Epsilon:  roundEpsilon,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}
	createCmd.Flags().StringVar(&roundStrategy, "strategy", string(round.FedAvg), "Aggregation strategy")
	createCmd.Flags().Float64Var(&roundEpsilon, "epsilon", 0, "Per-round privacy epsilon")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View round",
		Long:  `View round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := csdk.GetRound(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rounds",
		Long:  `List learning rounds.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := csdk.ListRounds(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	submitCmd := &cobra.Command{
		Use:   "submit <round_id> <weights_file>",
		Short: "Submit update",
		Long: `Submit a model update from a JSON weights file.

Examples:
  colearn-cli rounds submit b1d10738-c5d7-4ff1-8f4d-b9328ce6f040 weights.json --agent=agent-1 --score=0.9`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			var weights tensor.Weights
			if err := json.Unmarshal(data, &weights); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			u, err := csdk.SubmitUpdate(coordinator.Submission{
				AgentID:         updateAgentID,
				RoundID:         args[0],
				Weights:         weights,
				ValidationScore: updateScore,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, u)
		},
	}
	submitCmd.Flags().StringVar(&updateAgentID, "agent", "", "Submitting agent id")
	submitCmd.Flags().Float64Var(&updateScore, "score", 0, "Self-reported validation score")

	updatesCmd := &cobra.Command{
		Use:   "updates <round_id>",
		Short: "List updates",
		Long:  `List the updates submitted to a round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := csdk.ListUpdates(args[0], defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	aggregateCmd := &cobra.Command{
		Use:   "aggregate <round_id>",
		Short: "Aggregate round",
		Long:  `Close the round's submission window and aggregate its updates.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			res, err := csdk.AggregateRound(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	resultCmd := &cobra.Command{
		Use:   "result <round_id>",
		Short: "View result",
		Long:  `View the aggregation result of a completed round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			res, err := csdk.GetResult(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	detectionCmd := &cobra.Command{
		Use:   "detection <round_id>",
		Short: "View detection",
		Long:  `View the byzantine detection verdict of a round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			det, err := csdk.GetDetection(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, det)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(submitCmd)
	cmd.AddCommand(updatesCmd)
	cmd.AddCommand(aggregateCmd)
	cmd.AddCommand(resultCmd)
	cmd.AddCommand(detectionCmd)

	return cmd
}

func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Coordinator stats",
		Long:  `View the coordinator-wide health snapshot.`,
		Run: func(cmd *cobra.Command, _ []string) {
			m, err := csdk.Metrics()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}
}
