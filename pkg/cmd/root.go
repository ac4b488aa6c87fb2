// Package cmd wires the rulesync CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rulesync",
	Short: "Sync AI assistant rules, commands, and skills across tools",
	Long: "rulesync keeps instruction bundles (rules, commands, skills) in sync\n" +
		"across AI coding assistant tools, fetching declared remote sources\n" +
		"from GitHub and pinning them in a lockfile for reproducible runs.",

	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},

	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
