package operations

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/ecdsETL/storage"
)

type VerifierOptions struct {
	CleanedBucket  string
	CleanedPrefix  string
	RejectedPrefix string
}

type VerifyResult struct {
	Manifest      *storage.TableManifest
	PartitionRows map[string]int64
	RejectedRows  int64
}

// Verifier reads the cleaned table back and checks it against its manifest.
type Verifier struct {
	logger        *slog.Logger
	mem           *memory.GoAllocator
	objectStorage storage.IObjectStorage
	tableStorage  storage.ITableStorage

	options VerifierOptions
}

func NewVerifier(
	logger *slog.Logger,
	mem *memory.GoAllocator,
	objectStorage storage.IObjectStorage,
	tableStorage storage.ITableStorage,
	options VerifierOptions,
) *Verifier {
	return &Verifier{
		logger:        logger,
		mem:           mem,
		objectStorage: objectStorage,
		tableStorage:  tableStorage,
		options:       options,
	}
}

/*
* Every row must sit in the partition of its own year, the year must match
* the reporting period and the row counts must match the manifest.
 */
func (obj *Verifier) Verify(ctx context.Context) (VerifyResult, error) {
	manifest, records, err := obj.tableStorage.ReadTable(ctx, obj.options.CleanedBucket, obj.options.CleanedPrefix)
	if err != nil {
		return VerifyResult{}, err
	}
	defer func() {
		for _, record := range records {
			record.Record.Release()
		}
	}()

	result := VerifyResult{
		Manifest:      manifest,
		PartitionRows: make(map[string]int64),
	}
	for _, record := range records {
		if err := VerifyPartitionRecord(record); err != nil {
			return result, err
		}
		result.PartitionRows[record.Partition.Key] += record.Record.NumRows()
	}

	for key, numRows := range manifest.PartitionRows() {
		if result.PartitionRows[key] != numRows {
			return result, errs.NewStackError(
				fmt.Errorf(
					"%w| partition %s has %d rows, manifest lists %d",
					ErrRowCountMismatch,
					key,
					result.PartitionRows[key],
					numRows,
				))
		}
	}

	if obj.options.RejectedPrefix != "" {
		rejectedRows, err := obj.countRejected(ctx)
		if err != nil {
			return result, err
		}
		result.RejectedRows = rejectedRows
	}

	obj.logger.Info(
		"verified cleaned table",
		slog.String("manifestId", manifest.Id),
		slog.Int64("numRows", manifest.NumRows),
		slog.Any("partitions", result.PartitionRows),
		slog.Int64("rejectedRows", result.RejectedRows),
	)
	return result, nil
}

func VerifyPartitionRecord(record elements.PartitionedRecord) error {
	partitionYear, err := record.Partition.Value(elements.ColumnYear)
	if err != nil {
		return err
	}

	years, err := int32Column(record.Record, elements.ColumnYear)
	if err != nil {
		return err
	}
	periods, err := date32Column(record.Record, elements.ColumnReportingPeriod)
	if err != nil {
		return err
	}

	for idx := 0; idx < years.Len(); idx++ {
		if years.IsNull(idx) || periods.IsNull(idx) {
			return errs.NewStackError(
				fmt.Errorf("%w| partition %s row %d has a null year or reporting period", ErrPartitionMismatch, record.Partition.Key, idx),
			)
		}
		year := years.Value(idx)
		if strconv.Itoa(int(year)) != partitionYear {
			return errs.NewStackError(
				fmt.Errorf("%w| row %d with year %d is in partition %s", ErrPartitionMismatch, idx, year, record.Partition.Key),
			)
		}
		if periodYear := periods.Value(idx).ToTime().Year(); periodYear != int(year) {
			return errs.NewStackError(
				fmt.Errorf(
					"%w| row %d has year %d but reporting period year %d",
					ErrPartitionMismatch,
					idx,
					year,
					periodYear,
				))
		}
	}
	return nil
}

func (obj *Verifier) countRejected(ctx context.Context) (int64, error) {
	key := fmt.Sprintf("%s/%s", strings.Trim(obj.options.RejectedPrefix, "/"), RejectedObjectName)
	data, err := obj.objectStorage.Download(ctx, obj.options.CleanedBucket, key)
	if storage.IsNotFound(err) {
		obj.logger.Warn("no rejected rows object found", slog.String("key", key))
		return 0, nil
	} else if err != nil {
		return 0, errs.Wrap(err)
	}

	rejected, err := ReadAvroOCF(obj.mem, bytes.NewReader(data))
	if err != nil {
		return 0, errs.Wrap(err, fmt.Errorf("failed reading rejected rows %s", key))
	}
	defer rejected.Release()
	return rejected.NumRows(), nil
}

func int32Column(record arrow.Record, name string) (*array.Int32, error) {
	idxs := record.Schema().FieldIndices(name)
	if len(idxs) != 1 {
		return nil, errs.NewStackError(fmt.Errorf("%w| %s", ErrColumnNotFound, name))
	}
	col, ok := record.Column(idxs[0]).(*array.Int32)
	if !ok {
		return nil, errs.NewStackError(fmt.Errorf("%w| %s has type %s", elements.ErrColumnTypeMismatch, name, record.Column(idxs[0]).DataType()))
	}
	return col, nil
}

func date32Column(record arrow.Record, name string) (*array.Date32, error) {
	idxs := record.Schema().FieldIndices(name)
	if len(idxs) != 1 {
		return nil, errs.NewStackError(fmt.Errorf("%w| %s", ErrColumnNotFound, name))
	}
	col, ok := record.Column(idxs[0]).(*array.Date32)
	if !ok {
		return nil, errs.NewStackError(fmt.Errorf("%w| %s has type %s", elements.ErrColumnTypeMismatch, name, record.Column(idxs[0]).DataType()))
	}
	return col, nil
}
