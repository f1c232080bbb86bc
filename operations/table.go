package operations

import (
	"github.com/apache/arrow/go/v17/arrow"

	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/ecdsETL/partitionFuncs"
)

const CleanedTableName = "ae_ecds_cleaned"

/*
* The cleaned table declares only the columns the cleaning rules type. The
* dimension columns come from the source header and are carried through as
* strings.
 */
func CleanedTable(maxObjectRows int) *elements.Table {
	return elements.NewTable(CleanedTableName).
		AddColumns(
			elements.NewColumn(elements.ColumnMeasureValue, arrow.PrimitiveTypes.Int32),
			elements.NewColumn(elements.ColumnReportingPeriod, arrow.FixedWidthTypes.Date32),
			elements.NewColumn(elements.ColumnYear, arrow.PrimitiveTypes.Int32),
		).
		AddColumnPartitions(
			elements.NewColumnPartition(
				elements.ColumnYear,
				partitionFuncs.NewYearPartitionOptions(),
			),
		).
		SetOptions(elements.TableOptions{MaxObjectRows: maxObjectRows})
}
