package operations

import "errors"

var (
	ErrColumnNotFound                       = errors.New("column not found")
	ErrUnsupportedArrowToAvroTypeConversion = errors.New("unsupported arrow to avro type conversion")
	ErrUnsupportedAvroToArrowTypeConversion = errors.New("unsupported avro to arrow type conversion")
	ErrPartitionColumnsEmpty                = errors.New("partition columns empty")
	ErrEmptySource                          = errors.New("empty source")
	ErrPartitionMismatch                    = errors.New("partition mismatch")
	ErrRowCountMismatch                     = errors.New("row count mismatch")
)
