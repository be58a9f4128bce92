package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scandex-dev/scandex/internal/config"
	"github.com/scandex-dev/scandex/internal/output"
	"github.com/scandex-dev/scandex/internal/preflight"
	"github.com/scandex-dev/scandex/internal/session"
)

func newScanCmd() *cobra.Command {
	var watch bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a project tree and update its indexes",
		Long: `Walk the project tree, decide per file which indexes are out of date,
and reindex only the files that changed. With --watch the scan keeps
running and reacts to file changes until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runScan(cmd, root, watch, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and rescan on file changes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the scan summary as JSON")

	return cmd
}

func runScan(cmd *cobra.Command, root string, watch, jsonOutput bool) error {
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	if err := runPreflight(cmd, root); err != nil {
		return err
	}

	s, err := session.Open(root, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	out := output.New(cmd.OutOrStdout())

	if watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out.Printf("watching %s (ctrl-c to stop)", root)
		if err := s.Watch(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	}

	summary, err := s.Scan(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	out.Success("scan complete in %s", summary.Duration.Round(time.Millisecond))
	out.Field("Files", summary.Files)
	out.Field("Directories", summary.Dirs)
	out.Field("Indexed", summary.Indexed)
	out.Field("Up to date", summary.UpToDate)
	return nil
}

func runPreflight(cmd *cobra.Command, root string) error {
	checker := preflight.New()
	results := checker.RunAll(root, filepath.Join(root, session.DataDirName))

	for _, r := range results {
		switch r.Status {
		case preflight.StatusWarn:
			slog.Warn("preflight check degraded",
				slog.String("check", r.Name), slog.String("message", r.Message))
		case preflight.StatusFail:
			output.New(cmd.ErrOrStderr()).Error("%s: %s", r.Name, r.Message)
		}
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("preflight checks failed")
	}
	return nil
}
