package operations

import (
	"fmt"
	"slices"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	arrowops "github.com/alekLukanen/ecdsETL/arrowOps"
	"github.com/alekLukanen/ecdsETL/elements"
)

/*
* Returns an arry of partition arrays for each partitioned column. They are in the order
* in which the columns were passed in.
 */
func PartitionColumns(allocator *memory.GoAllocator, tuples arrow.Record, columns []elements.ColumnPartition) ([]arrow.Array, error) {
	partitionedColumns := make([]arrow.Array, 0, len(columns))
	for _, column := range columns {
		partitionFunc := column.Options().PartitionFunc()
		partitionedColumn, err := partitionFunc(allocator, tuples, column.Name(), column.Options())
		if err != nil {
			for _, partArr := range partitionedColumns {
				partArr.Release()
			}
			return nil, errs.Wrap(err, fmt.Errorf("failed partitioning column %s", column.Name()))
		}
		partitionedColumns = append(partitionedColumns, partitionedColumn)
	}

	return partitionedColumns, nil
}

// PartitionKeys returns the partition key of every row, e.g. "year=2023".
func PartitionKeys(allocator *memory.GoAllocator, tuples arrow.Record, columns []elements.ColumnPartition) (*array.String, error) {
	if len(columns) == 0 {
		return nil, errs.NewStackError(ErrPartitionColumnsEmpty)
	}

	partitionedColumns, err := PartitionColumns(allocator, tuples, columns)
	if err != nil {
		return nil, err
	}
	// release the partition arrays
	defer func() {
		for _, partArr := range partitionedColumns {
			partArr.Release()
		}
	}()

	columnNames := make([]string, len(columns))
	for idx, column := range columns {
		columnNames[idx] = column.Name()
	}

	keys := make([]string, tuples.NumRows())
	values := make([]string, len(columns))
	for idx := int64(0); idx < tuples.NumRows(); idx++ {
		for colIdx, colParts := range partitionedColumns {
			values[colIdx] = colParts.ValueStr(int(idx))
		}
		keys[idx] = elements.FormatPartitionKey(columnNames, values)
	}

	arrBuilder := array.NewStringBuilder(allocator)
	defer arrBuilder.Release()
	arrBuilder.AppendValues(keys, nil)

	return arrBuilder.NewStringArray(), nil
}

/*
* Splits the record into one record per partition of the table. The result
* is sorted by partition key and rows keep their relative order within a
* partition.
 */
func SplitRecordByPartition(
	allocator *memory.GoAllocator,
	table *elements.Table,
	record arrow.Record,
) ([]elements.PartitionedRecord, error) {

	keys, err := PartitionKeys(allocator, record, table.ColumnPartitions())
	if err != nil {
		return nil, err
	}
	defer keys.Release()

	rowsByKey := make(map[string][]uint32)
	for idx := 0; idx < keys.Len(); idx++ {
		key := keys.Value(idx)
		rowsByKey[key] = append(rowsByKey[key], uint32(idx))
	}

	sortedKeys := make([]string, 0, len(rowsByKey))
	for key := range rowsByKey {
		sortedKeys = append(sortedKeys, key)
	}
	slices.Sort(sortedKeys)

	partitions := make([]elements.PartitionedRecord, 0, len(sortedKeys))
	for _, key := range sortedKeys {
		idxBuilder := array.NewUint32Builder(allocator)
		idxBuilder.AppendValues(rowsByKey[key], nil)
		indices := idxBuilder.NewUint32Array()
		idxBuilder.Release()

		partRecord, err := arrowops.TakeRecord(allocator, record, indices)
		indices.Release()
		if err != nil {
			for _, partition := range partitions {
				partition.Record.Release()
			}
			return nil, errs.Wrap(err, fmt.Errorf("failed taking rows of partition %s", key))
		}
		partitions = append(partitions, elements.PartitionedRecord{
			Partition: elements.Partition{TableName: table.TableName(), Key: key},
			Record:    partRecord,
		})
	}

	return partitions, nil
}
