package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-index/core/config"
	"media-index/core/lock"
	"media-index/core/logger"
	"media-index/core/media"
	"media-index/core/progress"
	"media-index/feature/mediaindex"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the build command
	buildRef         string
	buildFull        bool
	buildIncremental bool
	buildUser        string
	buildJSON        bool
)

// buildCmd builds the media index of one site.
var buildCmd = &cobra.Command{
	Use:   "build <org> <repo>",
	Short: "Build the media index of a site",
	Long: `Build the media index of a site from its audit and media logs.

The build is incremental when the stored index and its watermark agree,
otherwise the logs are replayed from the beginning.

Examples:
  # Pick the mode automatically
  build adobe website

  # Force a full rebuild of a branch
  build adobe website --ref stage --full

  # Fail instead of falling back to a full build
  build adobe website --incremental --json`,
	Args: cobra.ExactArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildRef, "ref", media.DefaultRef, "Branch to index")
	buildCmd.Flags().BoolVar(&buildFull, "full", false, "Skip the eligibility check and rebuild from the full logs")
	buildCmd.Flags().BoolVar(&buildIncremental, "incremental", false, "Require an incremental build")
	buildCmd.Flags().StringVar(&buildUser, "user", "cli", "Recorded as lastRefreshBy")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "Save the built entries to a JSON file")
	buildCmd.MarkFlagsMutuallyExclusive("full", "incremental")

	RootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logg.Sync()

	comp, err := wire(cfg, logg)
	if err != nil {
		return err
	}
	defer comp.indexer.Close()

	org, repo := args[0], args[1]
	onProgress := func(e progress.Event) {
		logg.Info("Build progress",
			zap.String("stage", string(e.Stage)),
			zap.Int("percent", e.Percent),
			zap.String("message", e.Message))
	}

	res, err := comp.indexer.BuildIndex(ctx, "", org, repo, buildRef, onProgress, nil, mediaindex.BuildOptions{
		ForceFull:          buildFull,
		RequireIncremental: buildIncremental,
		RefreshedBy:        buildUser,
	})
	if errors.Is(err, lock.ErrInProgress) {
		logg.Warn("Build skipped, retry later", zap.String("site", org+"/"+repo), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if buildJSON {
		filename := fmt.Sprintf("media_index_%s_%s_%d.json", org, repo, time.Now().Unix())
		data, err := json.MarshalIndent(res.Entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to save JSON file: %w", err)
		}
		logg.Info("Index entries saved", zap.String("file", filename), zap.Int("entries", len(res.Entries)))
	}

	fmt.Println("\n=== Media Index Build ===")
	fmt.Printf("Site: %s (%s)\n", res.Site.ID, res.Site.Ref)
	fmt.Printf("Mode: %s\n", res.Mode)
	if res.Reason != "" {
		fmt.Printf("Reason: %s\n", res.Reason)
	}
	fmt.Printf("Entries: %d\n", len(res.Entries))
	fmt.Printf("Changed: %t\n", res.HasChanges)
	fmt.Printf("Execution Time: %s\n", res.Duration.String())
	return nil
}
