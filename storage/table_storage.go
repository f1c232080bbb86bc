package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/google/uuid"

	arrowops "github.com/alekLukanen/ecdsETL/arrowOps"
	"github.com/alekLukanen/ecdsETL/elements"
)

type ITableStorage interface {
	WriteTable(context.Context, string, string, *elements.Table, []elements.PartitionedRecord) (*TableManifest, error)
	ReadTable(context.Context, string, string) (*TableManifest, []elements.PartitionedRecord, error)
	ReadManifest(context.Context, string, string) (*TableManifest, error)
}

type TableStorageOptions struct {
	Compression string
}

/*
* TableStorage writes partitioned tables as parquet objects under a key
* prefix:
*
*	<prefix>/year=2023/part-00000.parquet
*	<prefix>/_manifest.json
 */
type TableStorage struct {
	logger *slog.Logger
	mem    *memory.GoAllocator

	IObjectStorage

	compressionName string
	compression     compress.Compression
}

func NewTableStorage(
	ctx context.Context,
	logger *slog.Logger,
	mem *memory.GoAllocator,
	objectStorage IObjectStorage,
	options TableStorageOptions,
) (*TableStorage, error) {
	compressionName := strings.ToLower(strings.TrimSpace(options.Compression))
	if compressionName == "" {
		compressionName = "snappy"
	}
	codec, err := arrowops.ParseCompression(compressionName)
	if err != nil {
		return nil, err
	}
	return &TableStorage{
		logger:          logger,
		mem:             mem,
		IObjectStorage:  objectStorage,
		compressionName: compressionName,
		compression:     codec,
	}, nil
}

func tablePrefix(prefix string) (string, error) {
	cleaned := strings.Trim(prefix, "/")
	if cleaned == "" {
		return "", errs.NewStackError(fmt.Errorf("%w| table prefix must not be empty", ErrInvalidPrefix))
	}
	return cleaned, nil
}

/*
* Replaces everything stored under the prefix with the partitioned records.
* Existing objects are removed first, then each partition is written as one
* or more parquet objects of at most MaxObjectRows rows, and the manifest
* is uploaded last. An empty set of partitions still produces a manifest so
* that readers see an empty table rather than a stale one.
 */
func (obj *TableStorage) WriteTable(
	ctx context.Context,
	bucket string,
	prefix string,
	table *elements.Table,
	partitions []elements.PartitionedRecord,
) (*TableManifest, error) {

	prefix, err := tablePrefix(prefix)
	if err != nil {
		return nil, err
	}
	if err := table.IsValid(); err != nil {
		return nil, errs.Wrap(err)
	}

	existingKeys, err := obj.ListObjects(ctx, bucket, prefix+"/")
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed listing objects under %s", prefix))
	}
	// the manifest goes first so it never refers to deleted objects
	manifestKey := fmt.Sprintf("%s/%s", prefix, ManifestFileName)
	for _, key := range existingKeys {
		if key != manifestKey {
			continue
		}
		if err := obj.Delete(ctx, bucket, key); err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("failed deleting manifest %s", key))
		}
	}
	for _, key := range existingKeys {
		if key == manifestKey {
			continue
		}
		if err := obj.Delete(ctx, bucket, key); err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("failed deleting object %s", key))
		}
	}
	obj.logger.Info(
		"cleared table prefix",
		slog.String("bucket", bucket),
		slog.String("prefix", prefix),
		slog.Int("deletedObjects", len(existingKeys)),
	)

	builder := NewTableManifestBuilder(uuid.NewString(), table.TableName(), obj.compressionName, time.Now().UTC())
	maxObjectRows := int64(table.Options().MaxObjectRows)
	for _, partition := range partitions {
		record := partition.Record
		for offset := int64(0); offset < record.NumRows(); offset += maxObjectRows {
			end := min(offset+maxObjectRows, record.NumRows())
			slice := record.NewSlice(offset, end)
			data, err := arrowops.WriteRecordsToParquetBytes(ctx, record.Schema(), obj.compression, slice)
			slice.Release()
			if err != nil {
				return nil, errs.Wrap(err, fmt.Errorf("failed encoding partition %s", partition.Partition.Key))
			}

			objectKey := builder.AddObject(partition.Partition.Key, end-offset, len(data))
			if err := obj.Upload(ctx, bucket, fmt.Sprintf("%s/%s", prefix, objectKey), data); err != nil {
				return nil, errs.Wrap(err, fmt.Errorf("failed uploading partition %s", partition.Partition.Key))
			}
		}
	}

	manifest := builder.Manifest()
	if err := manifest.Validate(); err != nil {
		return nil, errs.Wrap(err)
	}
	manifestData, err := manifest.ToBytes()
	if err != nil {
		return nil, errs.Wrap(err)
	}
	if err := obj.Upload(ctx, bucket, manifestKey, manifestData); err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed uploading manifest"))
	}

	return manifest, nil
}

func (obj *TableStorage) ReadManifest(ctx context.Context, bucket, prefix string) (*TableManifest, error) {
	prefix, err := tablePrefix(prefix)
	if err != nil {
		return nil, err
	}

	manifestData, err := obj.Download(ctx, bucket, fmt.Sprintf("%s/%s", prefix, ManifestFileName))
	if err != nil {
		if IsNotFound(err) {
			return nil, errs.NewStackError(fmt.Errorf("%w| bucket: %s, prefix: %s", ErrManifestNotFound, bucket, prefix))
		}
		return nil, errs.Wrap(err)
	}
	manifest, err := NewManifestFromBytes(manifestData)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return manifest, nil
}

// ReadTable returns one record per stored object, tagged with its partition.
func (obj *TableStorage) ReadTable(
	ctx context.Context,
	bucket string,
	prefix string,
) (*TableManifest, []elements.PartitionedRecord, error) {

	manifest, err := obj.ReadManifest(ctx, bucket, prefix)
	if err != nil {
		return nil, nil, err
	}
	prefix, _ = tablePrefix(prefix)

	records := make([]elements.PartitionedRecord, 0)
	release := func() {
		for _, record := range records {
			record.Record.Release()
		}
	}
	for _, partition := range manifest.Partitions {
		for _, object := range partition.Objects {
			data, err := obj.Download(ctx, bucket, fmt.Sprintf("%s/%s", prefix, object.Key))
			if err != nil {
				release()
				return nil, nil, errs.Wrap(err, fmt.Errorf("failed downloading object %s", object.Key))
			}
			objectRecords, err := arrowops.ReadParquetBytes(ctx, obj.mem, data)
			if err != nil {
				release()
				return nil, nil, errs.Wrap(err, fmt.Errorf("failed reading object %s", object.Key))
			}

			record, err := concatObjectRecords(obj.mem, objectRecords)
			if err != nil {
				release()
				return nil, nil, errs.Wrap(err, fmt.Errorf("failed reading object %s", object.Key))
			}
			records = append(records, elements.PartitionedRecord{
				Partition: elements.Partition{TableName: manifest.TableName, Key: partition.Key},
				Record:    record,
			})
		}
	}

	return manifest, records, nil
}

func concatObjectRecords(mem *memory.GoAllocator, records []arrow.Record) (arrow.Record, error) {
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()
	if len(records) == 1 {
		records[0].Retain()
		return records[0], nil
	}
	return arrowops.ConcatenateRecords(mem, records...)
}
