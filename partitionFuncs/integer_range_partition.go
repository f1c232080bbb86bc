package partitionFuncs

import (
	"fmt"

	"github.com/alekLukanen/ecdsETL/elements"
	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

type IntegerRangePartitionOptions struct {
	Width int64
}

func NewIntegerRangePartitionOptions(width int64) *IntegerRangePartitionOptions {
	return &IntegerRangePartitionOptions{
		Width: width,
	}
}

// NewYearPartitionOptions gives every distinct year its own partition.
func NewYearPartitionOptions() *IntegerRangePartitionOptions {
	return NewIntegerRangePartitionOptions(1)
}

func (obj *IntegerRangePartitionOptions) PartitionType() string {
	return "integer_range"
}

func (obj *IntegerRangePartitionOptions) PartitionFunc() elements.PartitionFunc {
	return IntegerRangePartition
}

func (obj *IntegerRangePartitionOptions) Validate() error {
	if obj.Width < 1 {
		return errs.NewStackError(
			fmt.Errorf("%w: width of %d must be at least 1", ErrValidation, obj.Width),
		)
	}
	return nil
}

/*
* Partition the rows by an integer range. The returned int64 array holds the
* first value of the range each row falls into, so with a width of 1 the
* partition value is the column value itself.
 */
func IntegerRangePartition(allocator *memory.GoAllocator, record arrow.Record, column string, options elements.IPartitionOptions) (arrow.Array, error) {
	intOptions, ok := options.(*IntegerRangePartitionOptions)
	if !ok {
		return nil, errs.NewStackError(ErrInvalidPartitionOptions)
	}
	if err := intOptions.Validate(); err != nil {
		return nil, err
	}

	arrayBuilder := array.NewInt64Builder(allocator)
	defer arrayBuilder.Release()

	schema := record.Schema()
	columnIdxs := schema.FieldIndices(column)
	if len(columnIdxs) == 0 {
		return nil, errs.NewStackError(ErrColumnNotFound)
	} else if len(columnIdxs) > 1 {
		return nil, errs.NewStackError(ErrMultipleColumnsFound)
	}

	columnIdx := columnIdxs[0]

	arr := record.Column(columnIdx)
	arrData := make([]int64, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			return nil, errs.NewStackError(
				fmt.Errorf("%w| column: %s, array index: %d", ErrNullPartitionValue, column, i),
			)
		}
		value, err := IntegerValue(arr, i)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("column: %s, array index: %d", column, i))
		}
		arrData[i] = rangeStart(value, intOptions.Width)
	}

	arrayBuilder.AppendValues(arrData, nil)

	partArr := arrayBuilder.NewArray()

	return partArr, nil
}

func rangeStart(value, width int64) int64 {
	part := value / width
	if value%width != 0 && value < 0 {
		part--
	}
	return part * width
}

func IntegerValue(arr arrow.Array, idx int) (int64, error) {
	switch arr.DataType().ID() {
	case arrow.INT8:
		return int64(arr.(*array.Int8).Value(idx)), nil
	case arrow.INT16:
		return int64(arr.(*array.Int16).Value(idx)), nil
	case arrow.INT32:
		return int64(arr.(*array.Int32).Value(idx)), nil
	case arrow.INT64:
		return arr.(*array.Int64).Value(idx), nil
	case arrow.UINT8:
		return int64(arr.(*array.Uint8).Value(idx)), nil
	case arrow.UINT16:
		return int64(arr.(*array.Uint16).Value(idx)), nil
	case arrow.UINT32:
		return int64(arr.(*array.Uint32).Value(idx)), nil
	default:
		return 0, errs.NewStackError(
			fmt.Errorf("%w| type %s", ErrIntegerRangeTypeNotImplemented, arr.DataType()),
		)
	}
}
