package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/ecdsETL/partitionFuncs"
)

func testLogger() *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(
			os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug},
		),
	)
}

func yearTable(maxObjectRows int) *elements.Table {
	return elements.NewTable("cleaned").
		AddColumns(elements.NewColumn(elements.ColumnYear, arrow.PrimitiveTypes.Int32)).
		AddColumnPartitions(elements.NewColumnPartition(elements.ColumnYear, partitionFuncs.NewYearPartitionOptions())).
		SetOptions(elements.TableOptions{MaxObjectRows: maxObjectRows})
}

func yearRecord(mem *memory.GoAllocator, orgs []string, year int32) arrow.Record {
	bldr := array.NewRecordBuilder(mem, arrow.NewSchema([]arrow.Field{
		{Name: "ORG_CODE", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: elements.ColumnYear, Type: arrow.PrimitiveTypes.Int32},
	}, nil))
	defer bldr.Release()
	for _, org := range orgs {
		bldr.Field(0).(*array.StringBuilder).Append(org)
		bldr.Field(1).(*array.Int32Builder).Append(year)
	}
	return bldr.NewRecord()
}

func TestTableStorageWriteAndReadTable(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	objectStorage := NewMemoryObjectStorage()

	// a stale object from an earlier run must not survive the write
	assert.Nil(t, objectStorage.Upload(ctx, "cleaned", "ecds/year=2019/part-00000.parquet", []byte("stale")))
	assert.Nil(t, objectStorage.Upload(ctx, "cleaned", "other/keep.txt", []byte("keep")))

	tableStorage, err := NewTableStorage(ctx, testLogger(), mem, objectStorage, TableStorageOptions{Compression: "zstd"})
	if !assert.Nil(t, err) {
		return
	}

	rec2023 := yearRecord(mem, []string{"a", "b", "c"}, 2023)
	defer rec2023.Release()
	rec2024 := yearRecord(mem, []string{"d"}, 2024)
	defer rec2024.Release()

	manifest, err := tableStorage.WriteTable(ctx, "cleaned", "ecds/", yearTable(2), []elements.PartitionedRecord{
		{Partition: elements.Partition{TableName: "cleaned", Key: "year=2023"}, Record: rec2023},
		{Partition: elements.Partition{TableName: "cleaned", Key: "year=2024"}, Record: rec2024},
	})
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, int64(4), manifest.NumRows)
	assert.Equal(t, "zstd", manifest.Compression)
	assert.Equal(t, map[string]int64{"year=2023": 3, "year=2024": 1}, manifest.PartitionRows())

	keys, err := objectStorage.ListObjects(ctx, "cleaned", "")
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, []string{
		"ecds/_manifest.json",
		"ecds/year=2023/part-00000.parquet",
		"ecds/year=2023/part-00001.parquet",
		"ecds/year=2024/part-00000.parquet",
		"other/keep.txt",
	}, keys)

	readManifest, records, err := tableStorage.ReadTable(ctx, "cleaned", "ecds")
	if !assert.Nil(t, err) {
		return
	}
	defer func() {
		for _, record := range records {
			record.Record.Release()
		}
	}()
	assert.Equal(t, manifest.Id, readManifest.Id)
	if !assert.Len(t, records, 3) {
		return
	}
	assert.Equal(t, "year=2023", records[0].Partition.Key)
	assert.Equal(t, int64(2), records[0].Record.NumRows())
	assert.Equal(t, int64(1), records[1].Record.NumRows())
	assert.Equal(t, "year=2024", records[2].Partition.Key)
	assert.Equal(t, "d", records[2].Record.Column(0).(*array.String).Value(0))
}

func TestTableStorageWriteEmptyTable(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	objectStorage := NewMemoryObjectStorage()
	assert.Nil(t, objectStorage.Upload(ctx, "cleaned", "ecds/year=2019/part-00000.parquet", []byte("stale")))

	tableStorage, err := NewTableStorage(ctx, testLogger(), mem, objectStorage, TableStorageOptions{})
	if !assert.Nil(t, err) {
		return
	}
	manifest, err := tableStorage.WriteTable(ctx, "cleaned", "ecds", yearTable(10), nil)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, int64(0), manifest.NumRows)
	assert.Equal(t, "snappy", manifest.Compression)

	keys, err := objectStorage.ListObjects(ctx, "cleaned", "ecds/")
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, []string{"ecds/_manifest.json"}, keys)

	_, records, err := tableStorage.ReadTable(ctx, "cleaned", "ecds")
	assert.Nil(t, err)
	assert.Len(t, records, 0)
}

func TestTableStorageErrors(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	_, err := NewTableStorage(ctx, testLogger(), mem, NewMemoryObjectStorage(), TableStorageOptions{Compression: "lz4x"})
	assert.NotNil(t, err)

	tableStorage, err := NewTableStorage(ctx, testLogger(), mem, NewMemoryObjectStorage(), TableStorageOptions{})
	if !assert.Nil(t, err) {
		return
	}

	_, err = tableStorage.WriteTable(ctx, "cleaned", "/", yearTable(10), nil)
	assert.ErrorIs(t, err, ErrInvalidPrefix)

	_, err = tableStorage.ReadManifest(ctx, "cleaned", "missing")
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestTableStorageWriteListFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	listErr := errors.New("access denied")
	objectStorage := new(MockObjectStorage)
	objectStorage.On("ListObjects", ctx, "cleaned", "ecds/").Return([]string{}, listErr)

	tableStorage, err := NewTableStorage(ctx, testLogger(), mem, objectStorage, TableStorageOptions{})
	if !assert.Nil(t, err) {
		return
	}
	_, err = tableStorage.WriteTable(ctx, "cleaned", "ecds", yearTable(10), nil)
	assert.ErrorIs(t, err, listErr)
	objectStorage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
