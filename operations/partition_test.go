package operations

import (
	"errors"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"

	"github.com/alekLukanen/ecdsETL/elements"
)

func cleanedRecord(mem *memory.GoAllocator, orgs []string, years []int32) arrow.Record {
	bldr := array.NewRecordBuilder(mem, arrow.NewSchema([]arrow.Field{
		{Name: "ORG_CODE", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: elements.ColumnYear, Type: arrow.PrimitiveTypes.Int32},
	}, nil))
	defer bldr.Release()
	bldr.Field(0).(*array.StringBuilder).AppendValues(orgs, nil)
	bldr.Field(1).(*array.Int32Builder).AppendValues(years, nil)
	return bldr.NewRecord()
}

func TestPartitionKeys(t *testing.T) {
	mem := memory.NewGoAllocator()
	record := cleanedRecord(mem, []string{"a", "b", "c"}, []int32{2023, 2024, 2023})
	defer record.Release()

	keys, err := PartitionKeys(mem, record, CleanedTable(10).ColumnPartitions())
	if !assert.Nil(t, err) {
		return
	}
	defer keys.Release()

	received := make([]string, keys.Len())
	for idx := range received {
		received[idx] = keys.Value(idx)
	}
	assert.Equal(t, []string{"year=2023", "year=2024", "year=2023"}, received)

	_, err = PartitionKeys(mem, record, nil)
	assert.ErrorIs(t, err, ErrPartitionColumnsEmpty)
}

func TestSplitRecordByPartition(t *testing.T) {

	testCases := []struct {
		caseName string
		orgs     []string
		years    []int32
		expKeys  []string
		expOrgs  [][]string
	}{
		{
			caseName: "two-years-interleaved",
			orgs:     []string{"a", "b", "c", "d"},
			years:    []int32{2024, 2023, 2024, 2023},
			expKeys:  []string{"year=2023", "year=2024"},
			expOrgs:  [][]string{{"b", "d"}, {"a", "c"}},
		},
		{
			caseName: "single-year",
			orgs:     []string{"a", "b"},
			years:    []int32{2023, 2023},
			expKeys:  []string{"year=2023"},
			expOrgs:  [][]string{{"a", "b"}},
		},
		{
			caseName: "empty-record",
			orgs:     []string{},
			years:    []int32{},
			expKeys:  []string{},
			expOrgs:  [][]string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			mem := memory.NewGoAllocator()
			record := cleanedRecord(mem, tc.orgs, tc.years)
			defer record.Release()

			partitions, err := SplitRecordByPartition(mem, CleanedTable(10), record)
			if !assert.Nil(t, err) {
				return
			}
			defer func() {
				for _, partition := range partitions {
					partition.Record.Release()
				}
			}()

			if !assert.Len(t, partitions, len(tc.expKeys)) {
				return
			}
			for idx, partition := range partitions {
				assert.Equal(t, tc.expKeys[idx], partition.Partition.Key)
				assert.Equal(t, CleanedTableName, partition.Partition.TableName)

				orgs := partition.Record.Column(0).(*array.String)
				received := make([]string, orgs.Len())
				for i := range received {
					received[i] = orgs.Value(i)
				}
				assert.Equal(t, tc.expOrgs[idx], received)

				// every row lands in the partition of its own year
				year, err := partition.Partition.Value(elements.ColumnYear)
				if !assert.Nil(t, err) {
					return
				}
				years := partition.Record.Column(1).(*array.Int32)
				for i := 0; i < years.Len(); i++ {
					assert.Equal(t, year, years.ValueStr(i))
				}
			}
		})
	}
}

func TestSplitRecordByPartitionMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	bldr := array.NewRecordBuilder(mem, arrow.NewSchema([]arrow.Field{
		{Name: "ORG_CODE", Type: arrow.BinaryTypes.String},
	}, nil))
	defer bldr.Release()
	bldr.Field(0).(*array.StringBuilder).Append("a")
	record := bldr.NewRecord()
	defer record.Release()

	_, err := SplitRecordByPartition(mem, CleanedTable(10), record)
	if err == nil || errors.Is(err, ErrPartitionColumnsEmpty) {
		t.Errorf("expected a partition column error but received '%s'", err)
	}
}
