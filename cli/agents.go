package cli

import (
	"strconv"

	"github.com/absmach/colearn/agent"
	"github.com/absmach/colearn/pkg/sdk"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10

	agentName     string
	agentRole     string
	agentNetworks []string
	agentCapacity float64
)

var csdk sdk.SDK

func SetSDK(s sdk.SDK) {
	csdk = s
}

func NewAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents [register|view|list|provision]",
		Short: "Agents management",
		Long:  `Register, view and list federation agents.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register agent",
		Long: `Register an agent with the coordinator.

Examples:
  # Register a participant on one network
  colearn-cli agents register agent-1 --networks=net-a --capacity=0.8

  # Register a validator
  colearn-cli agents register agent-2 --role=validator --networks=net-a,net-b`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			role, ok := agent.ParseRole(agentRole)
			if !ok {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			a, err := csdk.RegisterAgent(agent.Agent{
				ID:       args[0],
				Name:     agentName,
				Role:     role,
				Networks: agentNetworks,
				Capacity: agentCapacity,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, a)
		},
	}
	registerCmd.Flags().StringVar(&agentName, "name", "", "Agent name (generated when empty)")
	registerCmd.Flags().StringVar(&agentRole, "role", "participant", "Agent role (coordinator|participant|validator|aggregator|observer)")
	registerCmd.Flags().StringSliceVar(&agentNetworks, "networks", []string{}, "Network affiliations (comma-separated)")
	registerCmd.Flags().Float64Var(&agentCapacity, "capacity", 0.5, "Computational capacity in [0, 1]")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View agent",
		Long:  `View agent.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			a, err := csdk.GetAgent(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, a)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Long:  `List registered agents.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := csdk.ListAgents(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(registerCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(provisionCmd())

	return cmd
}

// provisionCmd walks through agent registration interactively.
func provisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Provision agent",
		Long:  `Register an agent through an interactive form.`,
		Run: func(cmd *cobra.Command, _ []string) {
			var (
				id       string
				name     string
				role     string
				networks []string
				capacity string
			)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Agent ID").
						Value(&id).
						Validate(func(s string) error {
							if s == "" {
								return errEmptyAgentID
							}

							return nil
						}),
					huh.NewInput().
						Title("Name (optional)").
						Value(&name),
					huh.NewSelect[string]().
						Title("Role").
						Options(
							huh.NewOption("Participant", "participant"),
							huh.NewOption("Validator", "validator"),
							huh.NewOption("Observer", "observer"),
						).
						Value(&role),
					huh.NewMultiSelect[string]().
						Title("Networks").
						Options(
							huh.NewOption("net-a", "net-a"),
							huh.NewOption("net-b", "net-b"),
							huh.NewOption("net-c", "net-c"),
						).
						Value(&networks),
					huh.NewInput().
						Title("Capacity [0, 1]").
						Value(&capacity).
						Validate(func(s string) error {
							v, err := strconv.ParseFloat(s, 64)
							if err != nil {
								return err
							}
							if v < 0 || v > 1 {
								return errCapacityRange
							}

							return nil
						}),
				),
			)
			if err := form.Run(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			parsedRole, _ := agent.ParseRole(role)
			parsedCapacity, err := strconv.ParseFloat(capacity, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			a, err := csdk.RegisterAgent(agent.Agent{
				ID:       id,
				Name:     name,
				Role:     parsedRole,
				Networks: networks,
				Capacity: parsedCapacity,
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Successfully registered agent")
			logJSONCmd(*cmd, a)
		},
	}
}
