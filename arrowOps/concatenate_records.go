package arrowops

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

/*
* Joins the cleaned batches of one run into a single record so the rows can
* be split by year partition. The inputs keep their own references; the
* caller owns the returned record.
 */
func ConcatenateRecords(mem *memory.GoAllocator, records ...arrow.Record) (arrow.Record, error) {
	for _, record := range records {
		record.Retain()
	}
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()
	if len(records) == 0 {
		return nil, errs.NewStackError(ErrNoDataLeft)
	}
	schema := records[0].Schema()
	for idx, record := range records {
		if !schema.Equal(record.Schema()) {
			return nil, errs.NewStackError(fmt.Errorf("%w| record %d schema %s", ErrSchemasNotEqual, idx, record.Schema()))
		}
	}

	// column i of every record, in record order
	fields := make([][]arrow.Array, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		fields[i] = make([]arrow.Array, len(records))
	}
	for recordIdx, record := range records {
		for i := 0; i < schema.NumFields(); i++ {
			fields[i][recordIdx] = record.Column(i)
		}
	}

	concatenatedFields := make([]arrow.Array, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		concatenatedField, err := array.Concatenate(fields[i], mem)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("column: %s", schema.Field(i).Name))
		}
		defer concatenatedField.Release()
		concatenatedFields[i] = concatenatedField
	}

	numRows := int64(0)
	if len(concatenatedFields) > 0 {
		numRows = int64(concatenatedFields[0].Len())
	}
	return array.NewRecord(schema, concatenatedFields, numRows), nil
}
