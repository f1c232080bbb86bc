package arrowops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	parquetFileUtils "github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

// ParseCompression maps a configured codec name to a parquet codec.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "uncompressed", "none":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, errs.NewStackError(fmt.Errorf("%w| %s", ErrUnsupportedCompression, name))
	}
}

func WriteRecordsToParquet(
	ctx context.Context,
	w io.Writer,
	schema *arrow.Schema,
	codec compress.Compression,
	records ...arrow.Record,
) error {

	parquetWriteProps := parquet.NewWriterProperties(
		parquet.WithStats(true),
		parquet.WithCompression(codec),
	)
	arrowWriteProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	parquetFileWriter, err := pqarrow.NewFileWriter(schema, w, parquetWriteProps, arrowWriteProps)
	if err != nil {
		return errs.Wrap(err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			parquetFileWriter.Close()
			return err
		}
		if !schema.Equal(record.Schema()) {
			parquetFileWriter.Close()
			return errs.NewStackError(ErrSchemasNotEqual)
		}
		if err := parquetFileWriter.Write(record); err != nil {
			parquetFileWriter.Close()
			return errs.Wrap(err)
		}
	}

	if err := parquetFileWriter.Close(); err != nil {
		return errs.Wrap(err)
	}
	return nil
}

// WriteRecordsToParquetBytes writes the records as a single parquet file held in memory.
func WriteRecordsToParquetBytes(
	ctx context.Context,
	schema *arrow.Schema,
	codec compress.Compression,
	records ...arrow.Record,
) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteRecordsToParquet(ctx, buf, schema, codec, records...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ReadParquetBytes(ctx context.Context, mem *memory.GoAllocator, data []byte) ([]arrow.Record, error) {

	parquetFileReader, err := parquetFileUtils.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer parquetFileReader.Close()

	parquetReadProps := pqarrow.ArrowReadProperties{
		BatchSize: 1 << 16,
	}
	arrowFileReader, err := pqarrow.NewFileReader(parquetFileReader, parquetReadProps, mem)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	recordReader, err := arrowFileReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer recordReader.Release()

	records := make([]arrow.Record, 0)
	for recordReader.Next() {
		record := recordReader.Record()
		record.Retain()
		records = append(records, record)
	}
	if err := recordReader.Err(); err != nil && err != io.EOF {
		for _, record := range records {
			record.Release()
		}
		return nil, errs.Wrap(err)
	}

	return records, nil
}
