package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

const ManifestFileName = "_manifest.json"

type ManifestObject struct {
	Key     string `json:"key"`
	Index   int    `json:"index"`
	NumRows int64  `json:"num_rows"`
	Size    int    `json:"size"`
}

func (obj *ManifestObject) Validate() error {
	if obj.Key == "" {
		return fmt.Errorf("%w: key is required", ErrManifestInvalid)
	}
	if obj.Index < 0 {
		return fmt.Errorf("%w: index must be positive", ErrManifestInvalid)
	}
	if obj.NumRows < 0 {
		return fmt.Errorf("%w: num rows must be positive", ErrManifestInvalid)
	}
	if obj.Size < 0 {
		return fmt.Errorf("%w: size must be positive", ErrManifestInvalid)
	}
	return nil
}

type ManifestPartition struct {
	Key     string           `json:"key"`
	NumRows int64            `json:"num_rows"`
	Objects []ManifestObject `json:"objects"`
}

func (obj *ManifestPartition) SortObjects() {
	slices.SortFunc(obj.Objects, func(a, b ManifestObject) int {
		return cmp.Compare(a.Index, b.Index)
	})
}

func (obj *ManifestPartition) Validate() error {
	if obj.Key == "" {
		return fmt.Errorf("%w: partition key is required", ErrManifestInvalid)
	}

	var numRows int64
	for idx, object := range obj.Objects {
		if ifErr := object.Validate(); ifErr != nil {
			return fmt.Errorf("%w: partition %s object at index %d is invalid: %v", ErrManifestInvalid, obj.Key, idx, ifErr)
		}
		if idx != object.Index {
			return fmt.Errorf("%w: partition %s object at index %d has invalid index %d", ErrManifestInvalid, obj.Key, idx, object.Index)
		}
		numRows += object.NumRows
	}
	if numRows != obj.NumRows {
		return fmt.Errorf("%w: partition %s has %d rows but its objects hold %d", ErrManifestInvalid, obj.Key, obj.NumRows, numRows)
	}
	return nil
}

/*
* TableManifest describes one complete write of a partitioned table. Object
* keys are relative to the table prefix. The manifest is uploaded after
* every data object, so a readable manifest always refers to a finished write.
 */
type TableManifest struct {
	Id          string              `json:"id"`
	TableName   string              `json:"table_name"`
	CreatedAt   time.Time           `json:"created_at"`
	Compression string              `json:"compression"`
	NumRows     int64               `json:"num_rows"`
	Partitions  []ManifestPartition `json:"partitions"`
}

func NewManifestFromBytes(data []byte) (*TableManifest, error) {
	manifest := &TableManifest{}
	err := json.Unmarshal(data, manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	manifest.SortPartitions()
	if ifErr := manifest.Validate(); ifErr != nil {
		return nil, ifErr
	}

	return manifest, nil
}

func (obj *TableManifest) ToBytes() ([]byte, error) {
	return json.MarshalIndent(obj, "", "  ")
}

func (obj *TableManifest) SortPartitions() {
	slices.SortFunc(obj.Partitions, func(a, b ManifestPartition) int {
		return cmp.Compare(a.Key, b.Key)
	})
	for idx := range obj.Partitions {
		obj.Partitions[idx].SortObjects()
	}
}

func (obj *TableManifest) PartitionRows() map[string]int64 {
	rows := make(map[string]int64, len(obj.Partitions))
	for _, partition := range obj.Partitions {
		rows[partition.Key] = partition.NumRows
	}
	return rows
}

func (obj *TableManifest) Validate() error {
	if obj.Id == "" {
		return fmt.Errorf("%w: id is required", ErrManifestInvalid)
	}
	if obj.TableName == "" {
		return fmt.Errorf("%w: table name is required", ErrManifestInvalid)
	}

	var numRows int64
	uniqKeys := make(map[string]struct{}, len(obj.Partitions))
	for _, partition := range obj.Partitions {
		if ifErr := partition.Validate(); ifErr != nil {
			return ifErr
		}
		if _, ok := uniqKeys[partition.Key]; ok {
			return fmt.Errorf("%w: duplicate partition %s", ErrManifestInvalid, partition.Key)
		}
		uniqKeys[partition.Key] = struct{}{}
		numRows += partition.NumRows
	}
	if numRows != obj.NumRows {
		return fmt.Errorf("%w: manifest has %d rows but its partitions hold %d", ErrManifestInvalid, obj.NumRows, numRows)
	}

	return nil
}

////////////////////////////////////////

type TableManifestBuilder struct {
	manifest   *TableManifest
	partitions map[string]int
}

func NewTableManifestBuilder(id, tableName, compression string, createdAt time.Time) *TableManifestBuilder {
	return &TableManifestBuilder{
		manifest: &TableManifest{
			Id:          id,
			TableName:   tableName,
			CreatedAt:   createdAt,
			Compression: compression,
			Partitions:  []ManifestPartition{},
		},
		partitions: make(map[string]int),
	}
}

// AddObject records the next object of a partition and returns its key relative to the table prefix.
func (obj *TableManifestBuilder) AddObject(partitionKey string, numRows int64, size int) string {
	partIdx, ok := obj.partitions[partitionKey]
	if !ok {
		obj.manifest.Partitions = append(obj.manifest.Partitions, ManifestPartition{
			Key:     partitionKey,
			Objects: []ManifestObject{},
		})
		partIdx = len(obj.manifest.Partitions) - 1
		obj.partitions[partitionKey] = partIdx
	}

	partition := &obj.manifest.Partitions[partIdx]
	index := len(partition.Objects)
	key := fmt.Sprintf("%s/part-%05d.parquet", partitionKey, index)
	partition.Objects = append(partition.Objects, ManifestObject{
		Key:     key,
		Index:   index,
		NumRows: numRows,
		Size:    size,
	})
	partition.NumRows += numRows
	obj.manifest.NumRows += numRows
	return key
}

func (obj *TableManifestBuilder) Manifest() *TableManifest {
	obj.manifest.SortPartitions()
	obj.partitions = make(map[string]int)
	for idx, partition := range obj.manifest.Partitions {
		obj.partitions[partition.Key] = idx
	}
	return obj.manifest
}
