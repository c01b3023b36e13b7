package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "authapp",
		Short:         "Email and password authentication service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before reading the environment")

	serve := newServeCmd(&envFile)
	root.AddCommand(serve, newMigrateCmd(&envFile))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}
