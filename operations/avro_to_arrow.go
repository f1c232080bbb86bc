package operations

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/linkedin/goavro/v2"
)

/*
* Reads an avro object container file written by WriteAvroOCF back into a
* single arrow record. The arrow schema is derived from the writer schema
* stored in the file header.
 */
func ReadAvroOCF(allocator *memory.GoAllocator, r io.Reader) (arrow.Record, error) {
	ocfReader, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	arrowSchema, err := AvroToArrowSchema(ocfReader.Codec().Schema())
	if err != nil {
		return nil, err
	}

	recordBuilder := array.NewRecordBuilder(allocator, arrowSchema)
	defer recordBuilder.Release()

	for ocfReader.Scan() {
		datum, err := ocfReader.Read()
		if err != nil {
			return nil, errs.Wrap(err)
		}

		castMapData, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errs.NewStackError(fmt.Errorf("failed to cast avro data to map"))
		}

		err = AppendArrowRow(arrowSchema, recordBuilder, castMapData)
		if err != nil {
			return nil, err
		}
	}
	if err := ocfReader.Err(); err != nil {
		return nil, errs.Wrap(err)
	}

	return recordBuilder.NewRecord(), nil
}

func AppendArrowRow(schema *arrow.Schema, recordBuilder *array.RecordBuilder, avroData map[string]interface{}) error {

	for idx, field := range schema.Fields() {
		value := avroData[field.Name]
		// non-null union values are wrapped in a single entry map keyed by type
		if union, ok := value.(map[string]interface{}); ok {
			for _, unionValue := range union {
				value = unionValue
			}
		}
		if value == nil {
			if !field.Nullable {
				return errs.NewStackError(fmt.Errorf("null value for non-nullable column %s", field.Name))
			}
			recordBuilder.Field(idx).AppendNull()
			continue
		}

		var ok bool
		switch field.Type.ID() {
		case arrow.BOOL:
			var v bool
			if v, ok = value.(bool); ok {
				recordBuilder.Field(idx).(*array.BooleanBuilder).Append(v)
			}
		case arrow.INT64:
			var v int64
			if v, ok = value.(int64); ok {
				recordBuilder.Field(idx).(*array.Int64Builder).Append(v)
			}
		case arrow.FLOAT64:
			var v float64
			if v, ok = value.(float64); ok {
				recordBuilder.Field(idx).(*array.Float64Builder).Append(v)
			}
		case arrow.STRING:
			var v string
			if v, ok = value.(string); ok {
				recordBuilder.Field(idx).(*array.StringBuilder).Append(v)
			}
		case arrow.BINARY:
			var v []byte
			if v, ok = value.([]byte); ok {
				recordBuilder.Field(idx).(*array.BinaryBuilder).Append(v)
			}
		default:
			return errs.NewStackError(
				fmt.Errorf("%w| type %s", ErrUnsupportedAvroToArrowTypeConversion, field.Type),
			)
		}
		if !ok {
			return errs.NewStackError(fmt.Errorf("unexpected avro value %T for column %s", value, field.Name))
		}
	}

	return nil
}

func AvroToArrowSchema(avroSchema string) (*arrow.Schema, error) {
	type avroField struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	}
	type avroSchemaTemplate struct {
		Type   string      `json:"type"`
		Fields []avroField `json:"fields"`
	}

	schema := avroSchemaTemplate{}
	if err := json.Unmarshal([]byte(avroSchema), &schema); err != nil {
		return nil, errs.Wrap(err)
	}
	if schema.Type != "record" {
		return nil, errs.NewStackError(
			fmt.Errorf("%w| top level type %s", ErrUnsupportedAvroToArrowTypeConversion, schema.Type),
		)
	}

	fields := make([]arrow.Field, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		nullable := false
		var typeName string
		if err := json.Unmarshal(field.Type, &typeName); err != nil {
			var union []string
			if err := json.Unmarshal(field.Type, &union); err != nil {
				return nil, errs.NewStackError(
					fmt.Errorf("%w| column %s has type %s", ErrUnsupportedAvroToArrowTypeConversion, field.Name, field.Type),
				)
			}
			for _, member := range union {
				if member == "null" {
					nullable = true
				} else {
					typeName = member
				}
			}
		}

		arrowType, err := AvroToArrowType(typeName)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("column: %s", field.Name))
		}
		fields = append(fields, arrow.Field{Name: field.Name, Type: arrowType, Nullable: nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}

func AvroToArrowType(avroType string) (arrow.DataType, error) {
	switch avroType {
	case "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "long":
		return arrow.PrimitiveTypes.Int64, nil
	case "double":
		return arrow.PrimitiveTypes.Float64, nil
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bytes":
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, errs.NewStackError(fmt.Errorf("%w| type %s", ErrUnsupportedAvroToArrowTypeConversion, avroType))
	}
}
