package main

import (
	"log"

	"github.com/absmach/colearn/cli"
	"github.com/absmach/colearn/pkg/sdk"
	"github.com/spf13/cobra"
)

const (
	defCoordinatorURL  = "http://localhost:7070"
	defTLSVerification = false
)

func main() {
	var coordinatorURL string

	rootCmd := &cobra.Command{
		Use:   "colearn-cli",
		Short: "Colearn CLI",
		Long:  `Colearn CLI is a command line interface for interacting with the collaborative learning coordinator.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			s := sdk.NewSDK(sdk.Config{
				CoordinatorURL:  coordinatorURL,
				TLSVerification: defTLSVerification,
			})
			cli.SetSDK(s)
		},
	}
	rootCmd.PersistentFlags().StringVar(&coordinatorURL, "coordinator-url", defCoordinatorURL, "Coordinator HTTP API URL")

	rootCmd.AddCommand(cli.NewAgentsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
