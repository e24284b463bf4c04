package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"handteleop/internal/config"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "handteleop",
		Short:         "Hand gesture teleoperation daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}
