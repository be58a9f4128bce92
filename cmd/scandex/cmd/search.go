package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scandex-dev/scandex/internal/index"
	"github.com/scandex-dev/scandex/internal/output"
	"github.com/scandex-dev/scandex/internal/session"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed file content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int) error {
	absRoot, err := filepath.Abs(".")
	if err != nil {
		return err
	}
	indexPath := filepath.Join(absRoot, session.DataDirName, "fulltext.bleve")
	if !fileExists(indexPath) {
		return fmt.Errorf("no index found in %s\nRun 'scandex scan' to create one", absRoot)
	}

	ft, err := index.OpenFullText(indexPath)
	if err != nil {
		return err
	}
	defer func() { _ = ft.Close() }()

	hits, err := ft.Search(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		out.Printf("no results for %q", query)
		return nil
	}
	for _, hit := range hits {
		out.Printf("%6.3f  %s", hit.Score, hit.Path)
	}
	return nil
}
