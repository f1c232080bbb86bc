package main

import (
	"context"
	"log/slog"

	"github.com/alekLukanen/errs"
	"github.com/spf13/cobra"

	"github.com/alekLukanen/ecdsETL/config"
	"github.com/alekLukanen/ecdsETL/pipeline"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{}
	ccmd := &cobra.Command{
		Use:   "ecdsetl",
		Short: "A&E ECDS open data ETL",
		Long: `
Downloads the NHS A&E ECDS open data csv into the raw container and cleans it
into a year partitioned parquet table in the cleaned container.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	ccmd.PersistentFlags().StringVarP(&options.configPath, "config", "c", "", "path to the yaml config file")

	ccmd.AddCommand(
		newStageCommand(options, "ingest", "Fetch the source dataset into the raw container", ingest),
		newStageCommand(options, "clean", "Clean the raw dataset into the partitioned parquet table", clean),
		newStageCommand(options, "run", "Ingest then clean", run),
		newStageCommand(options, "verify", "Check the cleaned table against its manifest", verify),
	)
	return ccmd
}

type stageFunc func(context.Context, *slog.Logger, *pipeline.Pipeline) error

func newStageCommand(options *rootOptions, use, short string, fn stageFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runStage(c.Context(), options, use, fn)
		},
	}
}

func runStage(ctx context.Context, options *rootOptions, name string, fn stageFunc) error {
	cfg, err := config.LoadConfig(options.configPath)
	if err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger().With(slog.String("command", name))

	etl, err := pipeline.NewPipeline(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to start pipeline", slog.String("error", errs.ErrorWithStack(err)))
		return err
	}
	defer etl.Close()

	if err := fn(ctx, logger, etl); err != nil {
		logger.Error("command failed", slog.String("error", errs.ErrorWithStack(err)))
		return err
	}
	return nil
}

func ingest(ctx context.Context, logger *slog.Logger, etl *pipeline.Pipeline) error {
	_, err := etl.Ingest(ctx)
	return err
}

func clean(ctx context.Context, logger *slog.Logger, etl *pipeline.Pipeline) error {
	_, err := etl.Clean(ctx)
	return err
}

func run(ctx context.Context, logger *slog.Logger, etl *pipeline.Pipeline) error {
	results, err := etl.Run(ctx)
	for _, result := range results {
		logger.Info(
			"stage result",
			slog.String("stage", result.Stage),
			slog.String("status", result.Status),
			slog.Duration("duration", result.Duration()),
		)
	}
	return err
}

func verify(ctx context.Context, logger *slog.Logger, etl *pipeline.Pipeline) error {
	result, err := etl.Verify(ctx)
	if err != nil {
		return err
	}
	logger.Info("cleaned table is consistent", slog.Any("partitions", result.PartitionRows))
	return nil
}
