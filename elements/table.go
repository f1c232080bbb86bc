package elements

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
)

type TableOptions struct {
	// partitioning options
	MaxObjectRows int
}

type Table struct {
	name             string
	columns          []Column
	columnPartitions []ColumnPartition
	options          TableOptions
}

func NewTable(name string) *Table {
	return &Table{
		name:             name,
		columns:          []Column{},
		columnPartitions: []ColumnPartition{},
		options: TableOptions{
			MaxObjectRows: 1_000_000,
		},
	}
}

func (obj *Table) TableName() string {
	return obj.name
}

func (obj *Table) Columns() []Column {
	return obj.columns
}

func (obj *Table) ColumnPartitions() []ColumnPartition {
	return obj.columnPartitions
}

func (obj *Table) AddColumns(columns ...Column) *Table {
	obj.columns = append(obj.columns, columns...)
	return obj
}

func (obj *Table) SetOptions(options TableOptions) *Table {
	obj.options = options
	return obj
}

func (obj *Table) Options() TableOptions {
	return obj.options
}

func (obj *Table) AddColumnPartitions(partitions ...ColumnPartition) *Table {
	obj.columnPartitions = append(obj.columnPartitions, partitions...)
	return obj
}

func (obj *Table) IsValid() error {
	if obj.name == "" {
		return fmt.Errorf("%w| name invalid", ErrTableInvalid)
	}

	if len(obj.columns) == 0 {
		return fmt.Errorf("%w| table does not have columns", ErrTableInvalid)
	}

	for _, col := range obj.columns {
		if !col.IsValid() {
			return fmt.Errorf("%w| table has invalid column", ErrTableInvalid)
		}
	}

	// each partition column is uniq and is a column of the table
	uniqPartitionColumns := make(map[string]struct{})
	for _, colPart := range obj.columnPartitions {
		if _, err := obj.GetColumnByName(colPart.columnName); err != nil {
			return fmt.Errorf("%w| partition column %s is not a column in the table", ErrTableInvalid, colPart.columnName)
		}
		if colPart.partitionOptions == nil || colPart.partitionOptions.PartitionFunc() == nil {
			return fmt.Errorf("%w| partition column %s has no partition func", ErrTableInvalid, colPart.columnName)
		}
		uniqPartitionColumns[colPart.columnName] = struct{}{}
	}
	if len(uniqPartitionColumns) < len(obj.columnPartitions) {
		return fmt.Errorf("%w| duplicate partition columns", ErrTableInvalid)
	}

	if obj.options.MaxObjectRows < 1 {
		return fmt.Errorf("%w| max object rows must be positive", ErrTableInvalid)
	}

	return nil
}

func (obj *Table) GetColumnByName(name string) (Column, error) {
	for _, col := range obj.columns {
		if col.Name == name {
			return col, nil
		}
	}
	return Column{}, ErrColumnNotFound
}

/*
* Checks that the schema contains every column declared on the table with
* the declared type. Extra columns in the schema are allowed since the
* dimension columns come from the source header.
 */
func (obj *Table) ValidateSchema(schema *arrow.Schema) error {
	for _, col := range obj.columns {
		idxs := schema.FieldIndices(col.Name)
		if len(idxs) == 0 {
			return fmt.Errorf("%w| column %s missing from schema", ErrColumnNotFound, col.Name)
		}
		field := schema.Field(idxs[0])
		if !arrow.TypeEqual(field.Type, col.Dtype) {
			return fmt.Errorf(
				"%w| column %s has type %s, expected %s",
				ErrColumnTypeMismatch,
				col.Name,
				field.Type,
				col.Dtype,
			)
		}
	}
	return nil
}

////////////////////////////////////////

type Column struct {
	Name  string
	Dtype arrow.DataType
}

func NewColumn(name string, dtype arrow.DataType) Column {
	return Column{
		Name:  name,
		Dtype: dtype,
	}
}

func (obj *Column) IsValid() bool {
	if obj.Name == "" {
		return false
	}

	if obj.Dtype == nil {
		return false
	}
	return true
}

////////////////////////////////////////

type IPartitionOptions interface {
	PartitionType() string
	PartitionFunc() PartitionFunc
	Validate() error
}
type ColumnPartition struct {
	columnName       string
	partitionOptions IPartitionOptions
}

func NewColumnPartition(columnName string, partitionOptions IPartitionOptions) ColumnPartition {
	return ColumnPartition{
		columnName:       columnName,
		partitionOptions: partitionOptions,
	}
}

func (obj ColumnPartition) Name() string {
	return obj.columnName
}
func (obj ColumnPartition) Options() IPartitionOptions {
	return obj.partitionOptions
}

////////////////////////////////////////

type Partition struct {
	TableName string `json:"table_name"`
	Key       string `json:"key"`
}

// PartitionedRecord holds the rows of a table that belong to one partition.
type PartitionedRecord struct {
	Partition Partition
	Record    arrow.Record
}
