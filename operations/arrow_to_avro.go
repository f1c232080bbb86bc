package operations

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/linkedin/goavro/v2"
)

const avroRecordName = "rejectedRow"

/*
* Writes the records as an avro object container file. Nullable arrow
* fields become ["null", type] unions. Returns the number of rows written.
 */
func WriteAvroOCF(w io.Writer, arrowSchema *arrow.Schema, records ...arrow.Record) (int64, error) {
	codec, err := ArrowToAvroSchema(arrowSchema)
	if err != nil {
		return 0, err
	}
	return WriteAvroOCFWithCodec(w, codec, arrowSchema, records...)
}

// WriteAvroOCFWithCodec writes with a codec built earlier by ArrowToAvroSchema for the same schema.
func WriteAvroOCFWithCodec(w io.Writer, codec *goavro.Codec, arrowSchema *arrow.Schema, records ...arrow.Record) (int64, error) {
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: goavro.CompressionSnappyLabel,
	})
	if err != nil {
		return 0, errs.Wrap(err)
	}

	avroNames := AvroFieldNames(arrowSchema)

	var numRows int64
	for _, record := range records {
		if !arrowSchema.Equal(record.Schema()) {
			return numRows, errs.NewStackError(fmt.Errorf("record schema differs from the avro schema"))
		}
		rows, err := ArrowToAvro(record, avroNames)
		if err != nil {
			return numRows, err
		}
		if len(rows) == 0 {
			continue
		}
		if err := ocfWriter.Append(rows); err != nil {
			return numRows, errs.Wrap(err)
		}
		numRows += int64(len(rows))
	}

	return numRows, nil
}

/*
* Convert an arrow record to native avro rows
 */
func ArrowToAvro(tuples arrow.Record, avroNames []string) ([]interface{}, error) {
	arrowSchema := tuples.Schema()
	columnArrays := tuples.Columns()
	data := make([]interface{}, tuples.NumRows())

	for i := int64(0); i < tuples.NumRows(); i++ {
		dataMap := make(map[string]interface{}, len(columnArrays))
		for colIdx, col := range columnArrays {
			field := arrowSchema.Field(colIdx)
			if col.IsNull(int(i)) {
				dataMap[avroNames[colIdx]] = nil
				continue
			}

			val, err := ArrowArrayValueToAvroValue(col, int(i))
			if err != nil {
				return nil, errs.Wrap(err, fmt.Errorf("column: %s", field.Name))
			}
			if field.Nullable {
				avroType, _ := ArrowToAvroType(field.Type)
				val = goavro.Union(avroType, val)
			}
			dataMap[avroNames[colIdx]] = val
		}
		data[i] = dataMap
	}

	return data, nil
}

func ArrowArrayValueToAvroValue(arr arrow.Array, idx int) (interface{}, error) {
	switch arr.DataType().ID() {
	case arrow.BOOL:
		return arr.(*array.Boolean).Value(idx), nil
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
	case arrow.FLOAT32:
		return float64(arr.(*array.Float32).Value(idx)), nil
	case arrow.FLOAT64:
		return arr.(*array.Float64).Value(idx), nil
	case arrow.STRING:
		return arr.(*array.String).Value(idx), nil
	case arrow.BINARY:
		return arr.(*array.Binary).Value(idx), nil
	case arrow.DATE32:
		return int64(arr.(*array.Date32).Value(idx)), nil
	default:
		return nil, errs.NewStackError(
			fmt.Errorf("%w| type %s", ErrUnsupportedArrowToAvroTypeConversion, arr.DataType()),
		)
	}
}

/*
* AvroFieldNames maps arrow field names onto valid and unique avro names.
* A name already taken by an earlier field gets the first free _2, _3, ...
* suffix.
 */
func AvroFieldNames(arrowSchema *arrow.Schema) []string {
	names := make([]string, arrowSchema.NumFields())
	used := make(map[string]struct{}, arrowSchema.NumFields())
	for idx, field := range arrowSchema.Fields() {
		base := avroName(field.Name)
		name := base
		for suffix := 2; ; suffix++ {
			if _, ok := used[name]; !ok {
				break
			}
			name = fmt.Sprintf("%s_%d", base, suffix)
		}
		used[name] = struct{}{}
		names[idx] = name
	}
	return names
}

func avroName(name string) string {
	var bldr strings.Builder
	for idx, r := range name {
		switch {
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			bldr.WriteRune(r)
		case r < unicode.MaxASCII && unicode.IsDigit(r):
			if idx == 0 {
				bldr.WriteRune('_')
			}
			bldr.WriteRune(r)
		default:
			bldr.WriteRune('_')
		}
	}
	if bldr.Len() == 0 {
		return "_"
	}
	return bldr.String()
}

func ArrowToAvroSchema(arrowSchema *arrow.Schema) (*goavro.Codec, error) {
	type avroField struct {
		Name string      `json:"name"`
		Type interface{} `json:"type"`
	}
	type avroSchemaTemplate struct {
		Type   string      `json:"type"`
		Name   string      `json:"name"`
		Fields []avroField `json:"fields"`
	}

	avroSchema := avroSchemaTemplate{
		Type:   "record",
		Name:   avroRecordName,
		Fields: make([]avroField, 0),
	}

	avroNames := AvroFieldNames(arrowSchema)
	for idx, field := range arrowSchema.Fields() {
		avroType, err := ArrowToAvroType(field.Type)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("column: %s", field.Name))
		}
		var fieldType interface{} = avroType
		if field.Nullable {
			fieldType = []string{"null", avroType}
		}
		avroSchema.Fields = append(avroSchema.Fields, avroField{
			Name: avroNames[idx],
			Type: fieldType,
		})
	}

	codecData, err := json.Marshal(avroSchema)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	codec, err := goavro.NewCodec(string(codecData))
	if err != nil {
		return nil, errs.Wrap(err)
	}

	return codec, nil
}

func ArrowToAvroType(arrowType arrow.DataType) (string, error) {
	switch arrowType.ID() {
	case arrow.BOOL:
		return "boolean", nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return "long", nil
	case arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "long", nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return "double", nil
	case arrow.STRING:
		return "string", nil
	case arrow.BINARY:
		return "bytes", nil
	case arrow.DATE32:
		return "long", nil
	default:
		return "", errs.NewStackError(
			fmt.Errorf("%w| type %s", ErrUnsupportedArrowToAvroTypeConversion, arrowType),
		)
	}
}
