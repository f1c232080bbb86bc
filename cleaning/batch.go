package cleaning

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/ecdsETL/elements"
)

const maxRejectedPeriodSamples = 20

type BatchStats struct {
	RowsRead     int64
	RowsWritten  int64
	RowsDropped  int64
	MeasureNulls int64

	// distinct unparseable reporting periods and how often they were seen,
	// capped at maxRejectedPeriodSamples distinct values
	RejectedPeriods map[string]int64
}

func (obj *BatchStats) Merge(other BatchStats) {
	obj.RowsRead += other.RowsRead
	obj.RowsWritten += other.RowsWritten
	obj.RowsDropped += other.RowsDropped
	obj.MeasureNulls += other.MeasureNulls
	for value, count := range other.RejectedPeriods {
		obj.addRejectedPeriod(value, count)
	}
}

func (obj *BatchStats) addRejectedPeriod(value string, count int64) {
	if obj.RejectedPeriods == nil {
		obj.RejectedPeriods = make(map[string]int64)
	}
	if _, ok := obj.RejectedPeriods[value]; !ok && len(obj.RejectedPeriods) >= maxRejectedPeriodSamples {
		return
	}
	obj.RejectedPeriods[value] += count
}

type BatchResult struct {
	Cleaned  arrow.Record
	Rejected arrow.Record
	Stats    BatchStats
}

func (obj *BatchResult) Release() {
	if obj.Cleaned != nil {
		obj.Cleaned.Release()
	}
	if obj.Rejected != nil {
		obj.Rejected.Release()
	}
}

// RawSchema is the all-string schema of a source header.
func RawSchema(columns []string) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

/*
* The cleaned schema keeps the source column order. The measure becomes a
* nullable int32 and the reporting period a date32. The derived year takes
* the place of a source year column or is appended as the last column.
 */
func CleanedSchema(layout elements.RecordLayout) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(layout.Columns)+1)
	for idx, name := range layout.Columns {
		switch idx {
		case layout.MeasureIdx:
			fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int32, Nullable: true})
		case layout.ReportingIdx:
			fields = append(fields, arrow.Field{Name: name, Type: arrow.FixedWidthTypes.Date32})
		case layout.YearIdx:
			fields = append(fields, arrow.Field{Name: elements.ColumnYear, Type: arrow.PrimitiveTypes.Int32})
		default:
			fields = append(fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true})
		}
	}
	if !layout.HasYearColumn() {
		fields = append(fields, arrow.Field{Name: elements.ColumnYear, Type: arrow.PrimitiveTypes.Int32})
	}
	return arrow.NewSchema(fields, nil)
}

/*
* Cleans every row of a raw all-string record batch. Rows with an
* unparseable reporting period are left out of the cleaned record and,
* when collectRejected is set, copied (trimmed) into the rejected record.
 */
func CleanBatch(
	mem *memory.GoAllocator,
	layout elements.RecordLayout,
	record arrow.Record,
	collectRejected bool,
) (BatchResult, error) {

	if int(record.NumCols()) != len(layout.Columns) {
		return BatchResult{}, errs.NewStackError(
			fmt.Errorf(
				"%w| record has %d columns while the header has %d",
				ErrColumnCountMismatch,
				record.NumCols(),
				len(layout.Columns),
			))
	}

	columns := make([]*array.String, record.NumCols())
	for i, col := range record.Columns() {
		strCol, ok := col.(*array.String)
		if !ok {
			return BatchResult{}, errs.NewStackError(
				fmt.Errorf("%w| column %s has type %s", ErrUnexpectedColumnType, record.ColumnName(i), col.DataType()),
			)
		}
		columns[i] = strCol
	}

	cleanedBldr := array.NewRecordBuilder(mem, CleanedSchema(layout))
	defer cleanedBldr.Release()

	var rejectedBldr *array.RecordBuilder
	if collectRejected {
		rejectedBldr = array.NewRecordBuilder(mem, RawSchema(layout.Columns))
		defer rejectedBldr.Release()
	}

	stats := BatchStats{}
	values := make([]string, len(columns))
	for row := 0; row < int(record.NumRows()); row++ {
		for i, col := range columns {
			if col.IsNull(row) {
				values[i] = ""
			} else {
				values[i] = col.Value(row)
			}
		}
		stats.RowsRead++

		cleaned, ok := CleanRecord(layout, values)
		if !ok {
			stats.RowsDropped++
			stats.addRejectedPeriod(TrimField(values[layout.ReportingIdx]), 1)
			if rejectedBldr != nil {
				for i, value := range values {
					rejectedBldr.Field(i).(*array.StringBuilder).Append(TrimField(value))
				}
			}
			continue
		}

		if !cleaned.MeasureValueValid {
			stats.MeasureNulls++
		}
		appendCleanedRecord(cleanedBldr, layout, cleaned)
		stats.RowsWritten++
	}

	result := BatchResult{
		Cleaned: cleanedBldr.NewRecord(),
		Stats:   stats,
	}
	if rejectedBldr != nil {
		result.Rejected = rejectedBldr.NewRecord()
	}
	return result, nil
}

func appendCleanedRecord(bldr *array.RecordBuilder, layout elements.RecordLayout, record elements.Record) {
	var dim int
	for idx := range layout.Columns {
		switch idx {
		case layout.MeasureIdx:
			measureBldr := bldr.Field(idx).(*array.Int32Builder)
			if record.MeasureValueValid {
				measureBldr.Append(record.MeasureValue)
			} else {
				measureBldr.AppendNull()
			}
		case layout.ReportingIdx:
			bldr.Field(idx).(*array.Date32Builder).Append(arrow.Date32FromTime(record.ReportingPeriod))
		case layout.YearIdx:
			bldr.Field(idx).(*array.Int32Builder).Append(record.Year)
		default:
			bldr.Field(idx).(*array.StringBuilder).Append(record.Dimensions[dim])
			dim++
		}
	}
	if !layout.HasYearColumn() {
		bldr.Field(len(layout.Columns)).(*array.Int32Builder).Append(record.Year)
	}
}
