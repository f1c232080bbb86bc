package arrowops

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

type valueArray[T any] interface {
	IsNull(i int) bool
	Value(i int) T
	Len() int
}

type valueBuilder[T any] interface {
	Append(T)
	AppendNull()
	Reserve(int)
	NewArray() arrow.Array
	Release()
}

/*
* Builds a new record holding the rows of the record at the given indices,
* in index order. Null values are preserved.
 */
func TakeRecord(mem *memory.GoAllocator, record arrow.Record, indices *array.Uint32) (arrow.Record, error) {
	record.Retain()
	defer record.Release()

	for i := 0; i < indices.Len(); i++ {
		if int64(indices.Value(i)) >= record.NumRows() {
			return nil, fmt.Errorf(
				"%w| index %d is outside a record of %d rows", ErrIndexOutOfBounds, indices.Value(i), record.NumRows(),
			)
		}
	}

	takenFields := make([]arrow.Array, record.NumCols())
	for i := 0; i < int(record.NumCols()); i++ {
		takenRows, err := TakeArray(mem, record.Column(i), indices)
		if err != nil {
			for _, taken := range takenFields[:i] {
				taken.Release()
			}
			return nil, fmt.Errorf("%w| column: %s", err, record.ColumnName(i))
		}
		takenFields[i] = takenRows
	}
	defer func() {
		for _, taken := range takenFields {
			taken.Release()
		}
	}()

	return array.NewRecord(record.Schema(), takenFields, int64(indices.Len())), nil
}

func TakeArray(mem *memory.GoAllocator, arr arrow.Array, indices *array.Uint32) (arrow.Array, error) {
	switch arr.DataType().ID() {
	case arrow.BOOL:
		return takeValues[bool](array.NewBooleanBuilder(mem), arr.(*array.Boolean), indices), nil
	case arrow.INT8:
		return takeValues[int8](array.NewInt8Builder(mem), arr.(*array.Int8), indices), nil
	case arrow.INT16:
		return takeValues[int16](array.NewInt16Builder(mem), arr.(*array.Int16), indices), nil
	case arrow.INT32:
		return takeValues[int32](array.NewInt32Builder(mem), arr.(*array.Int32), indices), nil
	case arrow.INT64:
		return takeValues[int64](array.NewInt64Builder(mem), arr.(*array.Int64), indices), nil
	case arrow.UINT8:
		return takeValues[uint8](array.NewUint8Builder(mem), arr.(*array.Uint8), indices), nil
	case arrow.UINT16:
		return takeValues[uint16](array.NewUint16Builder(mem), arr.(*array.Uint16), indices), nil
	case arrow.UINT32:
		return takeValues[uint32](array.NewUint32Builder(mem), arr.(*array.Uint32), indices), nil
	case arrow.UINT64:
		return takeValues[uint64](array.NewUint64Builder(mem), arr.(*array.Uint64), indices), nil
	case arrow.FLOAT32:
		return takeValues[float32](array.NewFloat32Builder(mem), arr.(*array.Float32), indices), nil
	case arrow.FLOAT64:
		return takeValues[float64](array.NewFloat64Builder(mem), arr.(*array.Float64), indices), nil
	case arrow.STRING:
		return takeValues[string](array.NewStringBuilder(mem), arr.(*array.String), indices), nil
	case arrow.DATE32:
		return takeValues[arrow.Date32](array.NewDate32Builder(mem), arr.(*array.Date32), indices), nil
	case arrow.DATE64:
		return takeValues[arrow.Date64](array.NewDate64Builder(mem), arr.(*array.Date64), indices), nil
	case arrow.TIMESTAMP:
		bldr := array.NewTimestampBuilder(mem, arr.DataType().(*arrow.TimestampType))
		return takeValues[arrow.Timestamp](bldr, arr.(*array.Timestamp), indices), nil
	default:
		return nil, fmt.Errorf("%w| %s", ErrUnsupportedDataType, arr.DataType())
	}
}

func takeValues[T any, A valueArray[T]](bldr valueBuilder[T], arr A, indices *array.Uint32) arrow.Array {
	defer bldr.Release()
	bldr.Reserve(indices.Len())
	for i := 0; i < indices.Len(); i++ {
		idx := int(indices.Value(i))
		if arr.IsNull(idx) {
			bldr.AppendNull()
			continue
		}
		bldr.Append(arr.Value(idx))
	}
	return bldr.NewArray()
}
