package operations

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"golang.org/x/sync/errgroup"

	arrowops "github.com/alekLukanen/ecdsETL/arrowOps"
	"github.com/alekLukanen/ecdsETL/cleaning"
	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/ecdsETL/storage"
)

const RejectedObjectName = "rejected.avro"

type CleanerOptions struct {
	RawBucket string
	RawKey    string

	CleanedBucket  string
	CleanedPrefix  string
	RejectedPrefix string

	ChunkRows     int
	Workers       int
	MaxObjectRows int
}

type CleanResult struct {
	Stats       cleaning.BatchStats
	Manifest    *storage.TableManifest
	RejectedKey string
}

type Cleaner struct {
	logger        *slog.Logger
	mem           *memory.GoAllocator
	objectStorage storage.IObjectStorage
	tableStorage  storage.ITableStorage

	options CleanerOptions
}

func NewCleaner(
	logger *slog.Logger,
	mem *memory.GoAllocator,
	objectStorage storage.IObjectStorage,
	tableStorage storage.ITableStorage,
	options CleanerOptions,
) *Cleaner {
	if options.ChunkRows < 1 {
		options.ChunkRows = 65_536
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.MaxObjectRows < 1 {
		options.MaxObjectRows = 1_000_000
	}
	return &Cleaner{
		logger:        logger,
		mem:           mem,
		objectStorage: objectStorage,
		tableStorage:  tableStorage,
		options:       options,
	}
}

/*
* Reads the raw csv object, cleans every row and replaces the cleaned table
* with the surviving rows partitioned by year. The raw object is only read.
 */
func (obj *Cleaner) Clean(ctx context.Context) (CleanResult, error) {
	data, err := obj.objectStorage.Download(ctx, obj.options.RawBucket, obj.options.RawKey)
	if err != nil {
		return CleanResult{}, errs.Wrap(
			err, fmt.Errorf("failed downloading raw object %s/%s", obj.options.RawBucket, obj.options.RawKey),
		)
	}

	header, rawRecords, err := arrowops.ReadCSV(obj.mem, data, obj.options.ChunkRows)
	if err != nil {
		return CleanResult{}, err
	}
	defer func() {
		for _, record := range rawRecords {
			record.Release()
		}
	}()

	layout, err := elements.NewRecordLayout(header)
	if err != nil {
		return CleanResult{}, err
	}

	batches, err := obj.cleanBatches(ctx, layout, rawRecords)
	if err != nil {
		return CleanResult{}, err
	}
	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	result := CleanResult{}
	cleanedRecords := make([]arrow.Record, 0, len(batches))
	rejectedRecords := make([]arrow.Record, 0, len(batches))
	for _, batch := range batches {
		result.Stats.Merge(batch.Stats)
		cleanedRecords = append(cleanedRecords, batch.Cleaned)
		if batch.Rejected != nil {
			rejectedRecords = append(rejectedRecords, batch.Rejected)
		}
	}

	// rejected rows are encoded before the destination is replaced so an
	// encoding failure leaves the previous output in place
	var rejectedData []byte
	if obj.options.RejectedPrefix != "" {
		rejectedData, err = obj.encodeRejected(layout, rejectedRecords)
		if err != nil {
			return CleanResult{}, err
		}
	}

	table := CleanedTable(obj.options.MaxObjectRows)
	partitions, err := obj.partitionCleaned(table, cleanedRecords)
	if err != nil {
		return CleanResult{}, err
	}
	defer func() {
		for _, partition := range partitions {
			partition.Record.Release()
		}
	}()

	manifest, err := obj.tableStorage.WriteTable(ctx, obj.options.CleanedBucket, obj.options.CleanedPrefix, table, partitions)
	if err != nil {
		return CleanResult{}, errs.Wrap(err, fmt.Errorf("failed writing the cleaned table"))
	}
	result.Manifest = manifest

	if obj.options.RejectedPrefix != "" {
		rejectedKey, err := obj.uploadRejected(ctx, rejectedData)
		if err != nil {
			return CleanResult{}, err
		}
		result.RejectedKey = rejectedKey
	}

	obj.logCleanResult(result)
	return result, nil
}

// cleanBatches cleans the raw batches on a bounded group of workers and keeps their input order.
func (obj *Cleaner) cleanBatches(
	ctx context.Context,
	layout elements.RecordLayout,
	rawRecords []arrow.Record,
) ([]cleaning.BatchResult, error) {

	collectRejected := obj.options.RejectedPrefix != ""
	batches := make([]cleaning.BatchResult, len(rawRecords))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(obj.options.Workers)
	for idx, record := range rawRecords {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			batch, err := cleaning.CleanBatch(obj.mem, layout, record, collectRejected)
			if err != nil {
				return errs.Wrap(err, fmt.Errorf("failed cleaning batch %d", idx))
			}
			batches[idx] = batch
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		for _, batch := range batches {
			batch.Release()
		}
		return nil, err
	}

	return batches, nil
}

func (obj *Cleaner) partitionCleaned(
	table *elements.Table,
	cleanedRecords []arrow.Record,
) ([]elements.PartitionedRecord, error) {

	if len(cleanedRecords) == 0 {
		return []elements.PartitionedRecord{}, nil
	}

	cleaned, err := arrowops.ConcatenateRecords(obj.mem, cleanedRecords...)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed combining cleaned batches"))
	}
	defer cleaned.Release()

	if err := table.ValidateSchema(cleaned.Schema()); err != nil {
		return nil, errs.Wrap(err)
	}

	return SplitRecordByPartition(obj.mem, table, cleaned)
}

// encodeRejected encodes the dropped rows as an avro file, empty when no row was dropped.
func (obj *Cleaner) encodeRejected(layout elements.RecordLayout, rejectedRecords []arrow.Record) ([]byte, error) {
	schema := cleaning.RawSchema(layout.Columns)
	codec, err := ArrowToAvroSchema(schema)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed building the rejected rows schema"))
	}

	buf := &bytes.Buffer{}
	if _, err := WriteAvroOCFWithCodec(buf, codec, schema, rejectedRecords...); err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed encoding rejected rows"))
	}
	return buf.Bytes(), nil
}

// uploadRejected replaces the rejects object.
func (obj *Cleaner) uploadRejected(ctx context.Context, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s", strings.Trim(obj.options.RejectedPrefix, "/"), RejectedObjectName)
	if err := obj.objectStorage.Upload(ctx, obj.options.CleanedBucket, key, data); err != nil {
		return "", errs.Wrap(err, fmt.Errorf("failed uploading rejected rows"))
	}
	obj.logger.Info("wrote rejected rows", slog.String("key", key), slog.Int("numBytes", len(data)))
	return key, nil
}

func (obj *Cleaner) logCleanResult(result CleanResult) {
	obj.logger.Info(
		"cleaned dataset",
		slog.Int64("rowsRead", result.Stats.RowsRead),
		slog.Int64("rowsWritten", result.Stats.RowsWritten),
		slog.Int64("rowsDropped", result.Stats.RowsDropped),
		slog.Int64("measureNulls", result.Stats.MeasureNulls),
		slog.Any("partitions", result.Manifest.PartitionRows()),
	)
	if result.Stats.RowsDropped > 0 {
		obj.logger.Warn(
			"dropped rows with an unparseable reporting period",
			slog.Int64("rowsDropped", result.Stats.RowsDropped),
			slog.Any("rejectedPeriods", result.Stats.RejectedPeriods),
		)
	}
}
