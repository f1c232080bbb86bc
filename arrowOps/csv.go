package arrowops

import (
	"bytes"
	encodingCSV "encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSVHeader returns the column names on the first line of the data.
func ReadCSVHeader(data []byte) ([]string, error) {
	reader := encodingCSV.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.NewStackError(ErrCSVHeaderMissing)
	} else if err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %w", ErrCSVMalformed, err))
	}
	if len(header) == 0 {
		return nil, errs.NewStackError(ErrCSVHeaderMissing)
	}
	return header, nil
}

/*
* Reads a csv file with a header row into record batches of at most
* chunkRows rows. Every column is read as a string so that the values
* reach the cleaning rules untouched; empty fields become "" and never null.
 */
func ReadCSV(mem *memory.GoAllocator, data []byte, chunkRows int) ([]string, []arrow.Record, error) {
	header, err := ReadCSVHeader(data)
	if err != nil {
		return nil, nil, err
	}

	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	if chunkRows < 1 {
		chunkRows = 1
	}
	reader := csv.NewReader(
		bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)),
		schema,
		csv.WithAllocator(mem),
		csv.WithHeader(true),
		csv.WithChunk(chunkRows),
		csv.WithNullReader(false),
	)
	defer reader.Release()

	records := make([]arrow.Record, 0)
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
	}
	if err := reader.Err(); err != nil {
		for _, record := range records {
			record.Release()
		}
		return nil, nil, errs.NewStackError(fmt.Errorf("%w| %w", ErrCSVMalformed, err))
	}

	return header, records, nil
}
