package arrowops

import (
	"errors"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func periodSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "ORG_CODE", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "MEASURE_VALUE", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
			{Name: "year", Type: arrow.PrimitiveTypes.Int32},
		}, nil)
}

func buildPeriodRecord(mem *memory.GoAllocator, orgs []string, measures []int32, measureValid []bool, years []int32) arrow.Record {
	bldr := array.NewRecordBuilder(mem, periodSchema())
	defer bldr.Release()
	bldr.Field(0).(*array.StringBuilder).AppendValues(orgs, nil)
	bldr.Field(1).(*array.Int32Builder).AppendValues(measures, measureValid)
	bldr.Field(2).(*array.Int32Builder).AppendValues(years, nil)
	return bldr.NewRecord()
}

func TestConcatenateRecords(t *testing.T) {

	mem := memory.NewGoAllocator()

	testCases := []struct {
		caseName       string
		records        []arrow.Record
		expectedRecord arrow.Record
		expectedErr    error
	}{
		{
			caseName:       "single-record",
			records:        []arrow.Record{buildPeriodRecord(mem, []string{"a"}, []int32{1}, nil, []int32{2023})},
			expectedRecord: buildPeriodRecord(mem, []string{"a"}, []int32{1}, nil, []int32{2023}),
		},
		{
			caseName: "two-records-with-nulls",
			records: []arrow.Record{
				buildPeriodRecord(mem, []string{"a", "b"}, []int32{1, 0}, []bool{true, false}, []int32{2023, 2023}),
				buildPeriodRecord(mem, []string{"c"}, []int32{3}, nil, []int32{2024}),
			},
			expectedRecord: buildPeriodRecord(
				mem, []string{"a", "b", "c"}, []int32{1, 0, 3}, []bool{true, false, true}, []int32{2023, 2023, 2024},
			),
		},
		{
			caseName: "schemas-differ",
			records: []arrow.Record{
				buildPeriodRecord(mem, []string{"a"}, []int32{1}, nil, []int32{2023}),
				func() arrow.Record {
					bldr := array.NewRecordBuilder(mem, arrow.NewSchema(
						[]arrow.Field{{Name: "year", Type: arrow.PrimitiveTypes.Int32}}, nil))
					defer bldr.Release()
					bldr.Field(0).(*array.Int32Builder).Append(2023)
					return bldr.NewRecord()
				}(),
			},
			expectedErr: ErrSchemasNotEqual,
		},
		{
			caseName:    "no-records",
			expectedErr: ErrNoDataLeft,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {

			result, err := ConcatenateRecords(mem, tc.records...)
			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("expected error '%s' but received '%s'", tc.expectedErr, err)
			}
			if tc.expectedErr != nil {
				return
			}
			defer result.Release()
			defer tc.expectedRecord.Release()
			if !array.RecordEqual(tc.expectedRecord, result) {
				t.Log(result)
				t.Error("result record does not match the expected record")
			}

		})
	}

}
