package elements

import (
	"fmt"
	"time"

	"github.com/alekLukanen/errs"
)

const (
	ColumnMeasureValue    = "MEASURE_VALUE"
	ColumnReportingPeriod = "REPORTING_PERIOD"
	ColumnYear            = "year"
)

/*
* Record is one cleaned row of the dataset. Dimensions hold the trimmed
* values of every column other than the measure and the reporting period,
* in source column order.
 */
type Record struct {
	Dimensions []string

	MeasureValue      int32
	MeasureValueValid bool

	ReportingPeriod time.Time
	Year            int32
}

/*
* RecordLayout maps the columns of a raw header onto a Record. A source
* column named year is not a dimension: the derived year replaces it in
* place, otherwise the derived year is appended after the last column.
 */
type RecordLayout struct {
	Columns       []string
	DimensionIdxs []int
	MeasureIdx    int
	ReportingIdx  int
	YearIdx       int
}

func NewRecordLayout(columns []string) (RecordLayout, error) {
	layout := RecordLayout{
		Columns:       columns,
		DimensionIdxs: make([]int, 0, len(columns)),
		MeasureIdx:    -1,
		ReportingIdx:  -1,
		YearIdx:       -1,
	}
	for idx, name := range columns {
		switch name {
		case ColumnMeasureValue:
			layout.MeasureIdx = idx
		case ColumnReportingPeriod:
			layout.ReportingIdx = idx
		case ColumnYear:
			layout.YearIdx = idx
		default:
			layout.DimensionIdxs = append(layout.DimensionIdxs, idx)
		}
	}

	if layout.MeasureIdx < 0 {
		return RecordLayout{}, errs.NewStackError(fmt.Errorf("%w| column: %s", ErrColumnNotFound, ColumnMeasureValue))
	}
	if layout.ReportingIdx < 0 {
		return RecordLayout{}, errs.NewStackError(fmt.Errorf("%w| column: %s", ErrColumnNotFound, ColumnReportingPeriod))
	}
	return layout, nil
}

// HasYearColumn is true when the source header already carries a year column.
func (obj RecordLayout) HasYearColumn() bool {
	return obj.YearIdx >= 0
}

func (obj RecordLayout) DimensionNames() []string {
	names := make([]string, len(obj.DimensionIdxs))
	for i, idx := range obj.DimensionIdxs {
		names[i] = obj.Columns[idx]
	}
	return names
}
