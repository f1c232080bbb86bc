package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/google/uuid"

	"github.com/alekLukanen/ecdsETL/config"
	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/ecdsETL/fetch"
	"github.com/alekLukanen/ecdsETL/metrics"
	"github.com/alekLukanen/ecdsETL/operations"
	"github.com/alekLukanen/ecdsETL/secrets"
	"github.com/alekLukanen/ecdsETL/storage"
)

// Components are the external systems a pipeline talks to.
type Components struct {
	ObjectStorage storage.IObjectStorage
	Fetcher       operations.IFetcher

	// optional, enables the run lock and the run result log
	KeyStorage storage.IKeyStorage
}

type Pipeline struct {
	logger        *slog.Logger
	allocator     *memory.GoAllocator
	objectStorage storage.IObjectStorage
	tableStorage  storage.ITableStorage
	keyStorage    storage.IKeyStorage
	runMetrics    *metrics.RunMetrics

	ingester *operations.Ingester
	cleaner  *operations.Cleaner
	verifier *operations.Verifier

	rawDestination     string
	cleanedDestination string

	closers []func()
}

/*
* Builds a pipeline from the config. The secrets are read first so a missing
* secret stops the process before any storage or network is touched.
 */
func NewPipeline(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
) (*Pipeline, error) {
	secretStore, closeSecretStore, err := NewSecretStore(logger, cfg.Secrets)
	if err != nil {
		return nil, err
	}
	defer closeSecretStore()

	pipelineSecrets, err := secrets.LoadPipelineSecrets(ctx, logger, secretStore)
	if err != nil {
		return nil, err
	}

	objectStorage, err := NewObjectStorage(ctx, logger, cfg.ObjectStorage, pipelineSecrets)
	if err != nil {
		return nil, err
	}

	components := Components{
		ObjectStorage: objectStorage,
		Fetcher: fetch.NewHTTPFetcher(logger, fetch.HTTPFetcherOptions{
			Timeout:  cfg.Source.Timeout,
			RetryMax: cfg.Source.RetryMax,
		}),
	}

	var closers []func()
	if cfg.Redis.Enabled() {
		keyStorage, err := storage.NewKeyStorage(ctx, logger, storage.KeyStorageOptions{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			KeyPrefix: cfg.Redis.KeyPrefix,
			LockTTL:   cfg.Redis.LockTTL,
			ResultTTL: cfg.Redis.ResultTTL,
		})
		if err != nil {
			return nil, errs.Wrap(err)
		}
		components.KeyStorage = keyStorage
		closers = append(closers, func() {
			if err := keyStorage.Close(); err != nil {
				logger.Warn("failed closing key storage", slog.String("error", errs.ErrorWithStack(err)))
			}
		})
	}

	pipeline, err := NewPipelineWithComponents(ctx, logger, cfg, pipelineSecrets, components)
	if err != nil {
		for _, closer := range closers {
			closer()
		}
		return nil, err
	}
	pipeline.closers = closers
	return pipeline, nil
}

func NewPipelineWithComponents(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	pipelineSecrets secrets.PipelineSecrets,
	components Components,
) (*Pipeline, error) {
	allocator := memory.NewGoAllocator()

	tableStorage, err := storage.NewTableStorage(
		ctx, logger, allocator, components.ObjectStorage, storage.TableStorageOptions{
			Compression: cfg.Cleaned.Compression,
		},
	)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	rawBucket := pipelineSecrets.RawDataContainer
	cleanedBucket := pipelineSecrets.CleanedDataContainer

	ingester := operations.NewIngester(
		logger,
		components.Fetcher,
		components.ObjectStorage,
		operations.IngesterOptions{
			SourceURL: cfg.Source.URL,
			Bucket:    rawBucket,
			Key:       cfg.Raw.Key,
		},
	)
	cleaner := operations.NewCleaner(
		logger,
		allocator,
		components.ObjectStorage,
		tableStorage,
		operations.CleanerOptions{
			RawBucket:      rawBucket,
			RawKey:         cfg.Raw.Key,
			CleanedBucket:  cleanedBucket,
			CleanedPrefix:  cfg.Cleaned.Prefix,
			RejectedPrefix: cfg.Cleaned.RejectedPrefix,
			ChunkRows:      cfg.Processing.ChunkRows,
			Workers:        cfg.Processing.Workers,
			MaxObjectRows:  cfg.Cleaned.MaxObjectRows,
		},
	)
	verifier := operations.NewVerifier(
		logger,
		allocator,
		components.ObjectStorage,
		tableStorage,
		operations.VerifierOptions{
			CleanedBucket:  cleanedBucket,
			CleanedPrefix:  cfg.Cleaned.Prefix,
			RejectedPrefix: cfg.Cleaned.RejectedPrefix,
		},
	)

	pipeline := &Pipeline{
		logger:        logger,
		allocator:     allocator,
		objectStorage: components.ObjectStorage,
		tableStorage:  tableStorage,
		keyStorage:    components.KeyStorage,
		runMetrics: metrics.NewRunMetrics(logger, metrics.PusherOptions{
			PushgatewayURL: cfg.Metrics.PushgatewayURL,
			Job:            cfg.Metrics.Job,
		}),
		ingester:           ingester,
		cleaner:            cleaner,
		verifier:           verifier,
		rawDestination:     fmt.Sprintf("%s/%s", rawBucket, cfg.Raw.Key),
		cleanedDestination: fmt.Sprintf("%s/%s", cleanedBucket, strings.Trim(cfg.Cleaned.Prefix, "/")),
	}
	return pipeline, nil
}

func (obj *Pipeline) Close() {
	for _, closer := range obj.closers {
		closer()
	}
	obj.closers = nil
}

func (obj *Pipeline) Metrics() *metrics.RunMetrics {
	return obj.runMetrics
}

func (obj *Pipeline) Ingest(ctx context.Context) (elements.RunResult, error) {
	return obj.runStage(ctx, elements.StageIngest, obj.rawDestination, func(result *elements.RunResult) error {
		ingestResult, err := obj.ingester.Ingest(ctx)
		if err != nil {
			return err
		}
		result.BytesFetched = ingestResult.BytesFetched
		result.Checksum = ingestResult.Checksum
		return nil
	})
}

func (obj *Pipeline) Clean(ctx context.Context) (elements.RunResult, error) {
	return obj.runStage(ctx, elements.StageClean, obj.cleanedDestination, func(result *elements.RunResult) error {
		cleanResult, err := obj.cleaner.Clean(ctx)
		if err != nil {
			return err
		}
		result.RowsRead = cleanResult.Stats.RowsRead
		result.RowsWritten = cleanResult.Stats.RowsWritten
		result.RowsDropped = cleanResult.Stats.RowsDropped
		result.MeasureNulls = cleanResult.Stats.MeasureNulls
		result.Partitions = cleanResult.Manifest.PartitionRows()
		return nil
	})
}

// Run ingests then cleans. The clean stage is skipped when ingestion fails.
func (obj *Pipeline) Run(ctx context.Context) ([]elements.RunResult, error) {
	results := make([]elements.RunResult, 0, 2)

	ingestResult, err := obj.Ingest(ctx)
	results = append(results, ingestResult)
	if err != nil {
		return results, err
	}

	cleanResult, err := obj.Clean(ctx)
	results = append(results, cleanResult)
	if err != nil {
		return results, err
	}
	return results, nil
}

func (obj *Pipeline) Verify(ctx context.Context) (operations.VerifyResult, error) {
	return obj.verifier.Verify(ctx)
}

/*
* Runs one stage under the destination's run lock (when key storage is
* configured) and reports its result to the metrics and the run result log.
* A failed report is logged and never fails the stage.
 */
func (obj *Pipeline) runStage(
	ctx context.Context,
	stage string,
	destination string,
	stageFunc func(*elements.RunResult) error,
) (elements.RunResult, error) {

	result := elements.RunResult{
		RunId:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
	logger := obj.logger.With(slog.String("stage", stage), slog.String("runId", result.RunId))

	if obj.keyStorage != nil {
		lock, err := obj.keyStorage.AcquireRunLock(ctx, destination)
		if err != nil {
			return result, err
		}
		defer func() {
			// the stage context may already be cancelled
			ok, err := obj.keyStorage.ReleaseRunLock(context.WithoutCancel(ctx), lock)
			if err != nil || !ok {
				logger.Warn("failed releasing run lock", slog.String("lock", lock.Name()), slog.Any("error", err))
			}
		}()
	}

	logger.Info("stage started", slog.String("destination", destination))

	stageErr := stageFunc(&result)
	result.FinishedAt = time.Now().UTC()
	if stageErr != nil {
		result.Status = elements.RunStatusFailed
		result.Error = stageErr.Error()
		stageErr = errs.NewStackError(fmt.Errorf("%w| %s: %w", ErrStageFailed, stage, stageErr))
	} else {
		result.Status = elements.RunStatusSucceeded
	}

	obj.report(context.WithoutCancel(ctx), logger, result)

	if stageErr != nil {
		return result, stageErr
	}
	logger.Info("stage finished", slog.Duration("duration", result.Duration()))
	return result, nil
}

func (obj *Pipeline) report(ctx context.Context, logger *slog.Logger, result elements.RunResult) {
	obj.runMetrics.Observe(result)
	if err := obj.runMetrics.Push(ctx); err != nil {
		logger.Warn("failed pushing run metrics", slog.String("error", errs.ErrorWithStack(err)))
	}

	if obj.keyStorage != nil {
		if err := obj.keyStorage.PublishRunResult(ctx, result); err != nil {
			logger.Warn("failed publishing run result", slog.String("error", errs.ErrorWithStack(err)))
		}
	}
}
