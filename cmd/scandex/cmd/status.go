package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scandex-dev/scandex/internal/output"
	"github.com/scandex-dev/scandex/internal/session"
	"github.com/scandex-dev/scandex/internal/store"
)

// statusInfo is the status command's output shape.
type statusInfo struct {
	Root         string             `json:"root"`
	TotalFiles   int64              `json:"total_files"`
	FullyIndexed int64              `json:"fully_indexed"`
	LastScan     string             `json:"last_scan,omitempty"`
	StoreSize    int64              `json:"store_size"`
	FullTextSize int64              `json:"fulltext_size"`
	History      []store.ScanRecord `json:"history,omitempty"`
}

// historyDepth is how many recent scans status shows.
const historyDepth = 5

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show index state for a project",
		Long: `Display the tracked file counts, the last scan time, and the on-disk
size of the index storage. Reads the store directly, so it works while
a scan session is running.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runStatus(cmd, root, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, root string, jsonOutput bool) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	dataDir := filepath.Join(absRoot, session.DataDirName)

	storePath := filepath.Join(dataDir, "scandex.db")
	if !fileExists(storePath) {
		return fmt.Errorf("no index found in %s\nRun 'scandex scan' to create one", absRoot)
	}

	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	total, fullyIndexed, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	lastScan, err := st.GetState(ctx, store.StateKeyLastScan)
	if err != nil {
		return err
	}
	history, err := st.RecentScans(ctx, historyDepth)
	if err != nil {
		return err
	}

	info := statusInfo{
		Root:         absRoot,
		TotalFiles:   total,
		FullyIndexed: fullyIndexed,
		LastScan:     lastScan,
		StoreSize:    fileSize(storePath),
		FullTextSize: dirSize(filepath.Join(dataDir, "fulltext.bleve")),
		History:      history,
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out := output.New(cmd.OutOrStdout())
	out.Printf("index status for %s", info.Root)
	out.Field("Tracked", info.TotalFiles)
	out.Field("Fully indexed", info.FullyIndexed)
	if info.LastScan != "" {
		out.Field("Last scan", info.LastScan)
	}
	out.Field("Store size", output.FormatBytes(info.StoreSize))
	out.Field("Full-text size", output.FormatBytes(info.FullTextSize))

	if len(info.History) > 0 {
		out.Newline()
		out.Printf("recent scans")
		for _, rec := range info.History {
			out.Printf("  %s  %d files, %d indexed, %s",
				rec.StartedAt.Format("2006-01-02 15:04:05"),
				rec.Files, rec.Indexed, rec.Duration)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// dirSize returns the total size of all files under path.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
