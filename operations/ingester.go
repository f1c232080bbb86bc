package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alekLukanen/errs"
	"github.com/zeebo/xxh3"

	"github.com/alekLukanen/ecdsETL/storage"
)

type IngesterOptions struct {
	SourceURL string
	Bucket    string
	Key       string
}

type IngestResult struct {
	BytesFetched int64
	Checksum     string
}

// Ingester copies the source dataset unmodified into the raw bucket.
type Ingester struct {
	logger        *slog.Logger
	fetcher       IFetcher
	objectStorage storage.IObjectStorage

	options IngesterOptions
}

func NewIngester(
	logger *slog.Logger,
	fetcher IFetcher,
	objectStorage storage.IObjectStorage,
	options IngesterOptions,
) *Ingester {
	return &Ingester{
		logger:        logger,
		fetcher:       fetcher,
		objectStorage: objectStorage,
		options:       options,
	}
}

func (obj *Ingester) Ingest(ctx context.Context) (IngestResult, error) {
	obj.logger.Info(
		"fetching source dataset",
		slog.String("url", obj.options.SourceURL),
	)

	data, err := obj.fetcher.Fetch(ctx, obj.options.SourceURL)
	if err != nil {
		return IngestResult{}, errs.Wrap(err, fmt.Errorf("failed fetching %s", obj.options.SourceURL))
	}
	if len(data) == 0 {
		return IngestResult{}, errs.NewStackError(fmt.Errorf("%w| url: %s", ErrEmptySource, obj.options.SourceURL))
	}

	result := IngestResult{
		BytesFetched: int64(len(data)),
		Checksum:     fmt.Sprintf("%016x", xxh3.Hash(data)),
	}

	// the upload replaces any earlier copy of the object
	err = obj.objectStorage.Upload(ctx, obj.options.Bucket, obj.options.Key, data)
	if err != nil {
		return IngestResult{}, errs.Wrap(err, fmt.Errorf("failed uploading %s/%s", obj.options.Bucket, obj.options.Key))
	}

	obj.logger.Info(
		"ingested source dataset",
		slog.String("bucket", obj.options.Bucket),
		slog.String("key", obj.options.Key),
		slog.Int64("numBytes", result.BytesFetched),
		slog.String("checksum", result.Checksum),
	)
	return result, nil
}
