package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dyoshikawa/rulesync-sub010/internal/github"
	"github.com/dyoshikawa/rulesync-sub010/internal/sync"
)

var (
	fetchRef         string
	fetchPath        string
	fetchOutput      string
	fetchConflict    string
	fetchToken       string
	fetchFeatures    string
	fetchConcurrency int
)

func init() {
	fetchCmd.Flags().StringVar(&fetchRef, "ref", "", "branch, tag, or commit to fetch (overrides the ref in the source)")
	fetchCmd.Flags().StringVar(&fetchPath, "path", "", "subtree path within the repository")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "output directory (default .rulesync)")
	fetchCmd.Flags().StringVar(&fetchConflict, "conflict", string(sync.StrategyOverwrite), "conflict strategy: overwrite or skip")
	fetchCmd.Flags().StringVar(&fetchToken, "token", "", "GitHub token (overrides GITHUB_TOKEN and GH_TOKEN)")
	fetchCmd.Flags().StringVar(&fetchFeatures, "features", "", "comma-separated feature directories to fetch (e.g. rules,commands,skills)")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 0, "max concurrent API requests")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Fetch files from a remote source without touching the lockfile",
	Long: "Fetch resolves a source reference (owner/repo[@ref][:path], a\n" +
		"github:/gitlab: shorthand, or a full URL) and downloads its files\n" +
		"into the output directory.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeFetch(cmd, args[0])
	},
}

func executeFetch(cmd *cobra.Command, rawSource string) error {
	explicit := fetchToken
	if explicit == "" {
		explicit = viper.GetString("github_token")
	}
	token := github.ResolveToken(explicit)
	client := github.NewClient(token)

	var opts []sync.Option
	if fetchConcurrency > 0 {
		opts = append(opts, sync.WithConcurrency(fetchConcurrency))
	}
	orch := sync.New(client, afero.NewOsFs(), opts...)

	var features []string
	if fetchFeatures != "" {
		for _, f := range strings.Split(fetchFeatures, ",") {
			if f = strings.TrimSpace(f); f != "" {
				features = append(features, f)
			}
		}
	}

	summary, err := orch.Fetch(cmd.Context(), rawSource, sync.FetchOptions{
		Ref:      fetchRef,
		Path:     fetchPath,
		Output:   fetchOutput,
		Strategy: sync.Strategy(fetchConflict),
		Features: features,
	})
	if err != nil {
		if github.IsAuth(err) {
			return fmt.Errorf("%w\nhint: set GITHUB_TOKEN or GH_TOKEN, pass --token, or run 'rulesync config set github_token <token>'", err)
		}
		return err
	}

	for _, f := range summary.Files {
		switch f.Status {
		case sync.StatusCreated:
			color.Green("  + %s", f.RelativePath)
		case sync.StatusOverwritten:
			color.Yellow("  ~ %s", f.RelativePath)
		case sync.StatusSkipped:
			color.Cyan("  - %s (skipped)", f.RelativePath)
		}
	}
	fmt.Printf("\nFetched %s@%s: %d created, %d overwritten, %d skipped\n",
		summary.Source, shortSHA(summary.Ref), summary.Created, summary.Overwritten, summary.Skipped)
	return nil
}

// shortSHA abbreviates a commit id for display.
func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
