package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dyoshikawa/rulesync-sub010/internal/config"
	"github.com/dyoshikawa/rulesync-sub010/internal/github"
	"github.com/dyoshikawa/rulesync-sub010/internal/sync"
)

var (
	installUpdateSources bool
	installSkipSources   bool
	installConcurrency   int
)

func init() {
	installCmd.Flags().BoolVar(&installUpdateSources, "update-sources", false, "re-resolve every source ref, ignoring the lockfile")
	installCmd.Flags().BoolVar(&installSkipSources, "skip-sources", false, "skip remote source synchronization")
	installCmd.Flags().IntVar(&installConcurrency, "concurrency", 0, "max concurrent API requests per source")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Fetch declared remote sources and update the lockfile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeInstall(cmd)
	},
}

func executeInstall(cmd *cobra.Command) error {
	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return err
	}

	token := github.ResolveToken(viper.GetString("github_token"))
	client := github.NewClient(token)

	var opts []sync.Option
	if installConcurrency > 0 {
		opts = append(opts, sync.WithConcurrency(installConcurrency))
	}
	orch := sync.New(client, afero.NewOsFs(), opts...)

	result, err := orch.ResolveAndFetchSources(cmd.Context(), cfg.Sources, baseDir, sync.Options{
		UpdateSources: installUpdateSources,
		SkipSources:   installSkipSources,
	})
	if err != nil {
		return err
	}

	if result.SourcesProcessed < len(cfg.Sources) && !installSkipSources {
		color.Yellow("Processed %d of %d sources (see warnings above)", result.SourcesProcessed, len(cfg.Sources))
	}
	color.Green("Fetched %d skills from %d sources", result.FetchedSkillCount, result.SourcesProcessed)
	return nil
}
