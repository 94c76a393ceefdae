package cmd

import (
	"context"
	"fmt"
	"os"

	"media-index/core/config"
	"media-index/core/logger"
	"media-index/core/media"
	"media-index/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the persisted index",
	Long:  `Checks the index bucket, the SQL schema and the invariants of every stored site index.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		svc, logg := integritySetup()
		runStorageCheck(cmd.Context(), svc, logg, false, true)
		runSchemaCheck(svc, logg)
	},
}

// storageCmd represents the integrity storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the index bucket",
	Run: func(cmd *cobra.Command, args []string) {
		svc, logg := integritySetup()
		runStorageCheck(cmd.Context(), svc, logg, fixFlag, false)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the SQL index schema",
	Run: func(cmd *cobra.Command, args []string) {
		svc, logg := integritySetup()
		runSchemaCheck(svc, logg)
	},
}

// indexCmd represents the integrity index command
var indexCmd = &cobra.Command{
	Use:   "index <org> <repo>",
	Short: "Check the invariants of one site index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		svc, logg := integritySetup()
		runIndexCheck(cmd.Context(), svc, logg, args[0], args[1])
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(storageCmd, schemaCmd, indexCmd)

	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket when missing")
}

func integritySetup() (*integrity.Service, *zap.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	comp, err := wire(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to initialize index", zap.Error(err))
	}
	return comp.integrityService(cfg, logg), logg
}

func runStorageCheck(ctx context.Context, svc *integrity.Service, logg *zap.Logger, fix, withIndexes bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	logg.Info("Checking index storage...")
	report, err := svc.CheckStorage(ctx)
	if err != nil {
		logg.Error("Storage check failed", zap.Error(err))
		return
	}

	if !report.Exists {
		logg.Warn("Index bucket missing", zap.String("bucket", report.Bucket))
		if fix {
			logg.Info("Creating index bucket...")
			if err := svc.FixStorage(ctx); err != nil {
				logg.Fatal("Failed to create bucket", zap.Error(err))
			}
			logg.Info("Bucket created successfully.")
		} else {
			logg.Info("Run with --fix to create the bucket.")
		}
		return
	}

	logg.Info("Index bucket is present.", zap.Int("sites", len(report.Sites)))
	if !withIndexes {
		return
	}
	for _, id := range report.Sites {
		org, repo, ok := media.ParseSiteID(id)
		if !ok {
			logg.Warn("Skipping unrecognized site path", zap.String("site", id))
			continue
		}
		runIndexCheck(ctx, svc, logg, org, repo)
	}
}

func runSchemaCheck(svc *integrity.Service, logg *zap.Logger) {
	logg.Info("Checking index schema...")
	report, err := svc.CheckSchema()
	if err != nil {
		logg.Info("Schema check skipped", zap.String("reason", err.Error()))
		return
	}

	if report.Matched {
		logg.Info("Index schema matches expected definition.", zap.String("driver", report.Driver))
		return
	}
	logg.Warn("Index schema mismatches found", zap.String("driver", report.Driver))
	for table, tblReport := range report.Tables {
		if tblReport.Status == "missing" {
			logg.Warn("Missing Table", zap.String("table", table))
		}
		if len(tblReport.MissingColumns) > 0 {
			logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
		}
	}
	for _, e := range report.Errors {
		logg.Error("Inspection Error", zap.String("error", e))
	}
}

func runIndexCheck(ctx context.Context, svc *integrity.Service, logg *zap.Logger, org, repo string) {
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := svc.CheckIndex(ctx, org, repo)
	if err != nil {
		logg.Error("Index check failed", zap.String("site", org+"/"+repo), zap.Error(err))
		return
	}
	if report.Valid {
		logg.Info("Index is consistent.", zap.String("site", report.Site), zap.Int("entries", report.Entries))
		return
	}
	logg.Warn("Index is inconsistent",
		zap.String("site", report.Site),
		zap.Strings("duplicate_keys", report.DuplicateKeys),
		zap.Strings("orphan_violations", report.OrphanViolations),
		zap.Strings("usage_mismatches", report.UsageMismatches),
		zap.Strings("meta_mismatches", report.MetaMismatches))
}
