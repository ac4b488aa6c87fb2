package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dyoshikawa/rulesync-sub010/internal/lockfile"
)

const (
	colSource      = "Source"
	colResolvedRef = "Resolved Ref"
	colSkills      = "Skills"

	noSourcesMsg = "No locked sources."
	sourcesHint  = "Declare sources in rulesync.json and run 'rulesync install'."
)

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect locked remote sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locked sources and their fetched skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeSourcesList()
	},
}

// executeSourcesList renders the lockfile as a table.
func executeSourcesList() error {
	baseDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	lock := lockfile.Read(afero.NewOsFs(), baseDir)
	if len(lock.Sources) == 0 {
		fmt.Println(noSourcesMsg)
		fmt.Println(sourcesHint)
		return nil
	}

	cnf := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(cnf))
	table.Header(colSource, colResolvedRef, colSkills)

	for _, key := range lock.SortedKeys() {
		ls := lock.Sources[key]
		table.Append(key, shortSHA(ls.ResolvedRef), fmt.Sprintf("%d", len(ls.Skills)))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	fmt.Printf("\nTotal: %d sources\n", len(lock.Sources))
	return nil
}
