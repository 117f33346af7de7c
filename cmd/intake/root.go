package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "development"

type rootOptions struct {
	envFile  string
	addr     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "intake",
		Short:         "Funding application intake service",
		Long:          "intake hosts the multi-step funding application wizard over websockets and relays submissions to the processing webhook.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	root.PersistentFlags().StringVar(&opts.addr, "addr", "", "listen address, overrides INTAKE_ADDR")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error; overrides INTAKE_LOG_LEVEL")

	root.AddCommand(
		newServeCmd(opts),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the intake version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "intake", Version)
			return err
		},
	}
}
