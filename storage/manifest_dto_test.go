package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableManifestBuilder(t *testing.T) {
	createdAt := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	builder := NewTableManifestBuilder("run-1", "cleaned", "snappy", createdAt)

	assert.Equal(t, "year=2024/part-00000.parquet", builder.AddObject("year=2024", 5, 100))
	assert.Equal(t, "year=2023/part-00000.parquet", builder.AddObject("year=2023", 10, 200))
	assert.Equal(t, "year=2023/part-00001.parquet", builder.AddObject("year=2023", 3, 50))

	manifest := builder.Manifest()
	if !assert.Nil(t, manifest.Validate()) {
		return
	}
	assert.Equal(t, int64(18), manifest.NumRows)
	assert.Equal(t, map[string]int64{"year=2023": 13, "year=2024": 5}, manifest.PartitionRows())
	assert.Equal(t, "year=2023", manifest.Partitions[0].Key)

	data, err := manifest.ToBytes()
	if !assert.Nil(t, err) {
		return
	}
	readManifest, err := NewManifestFromBytes(data)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, manifest, readManifest)
}

func TestTableManifestValidate(t *testing.T) {

	validManifest := func() *TableManifest {
		return &TableManifest{
			Id:        "run-1",
			TableName: "cleaned",
			NumRows:   4,
			Partitions: []ManifestPartition{
				{
					Key:     "year=2023",
					NumRows: 4,
					Objects: []ManifestObject{
						{Key: "year=2023/part-00000.parquet", Index: 0, NumRows: 4, Size: 10},
					},
				},
			},
		}
	}

	testCases := []struct {
		caseName string
		modify   func(*TableManifest)
		expErr   error
	}{
		{
			caseName: "valid",
			modify:   func(*TableManifest) {},
		},
		{
			caseName: "missing-id",
			modify:   func(m *TableManifest) { m.Id = "" },
			expErr:   ErrManifestInvalid,
		},
		{
			caseName: "missing-table-name",
			modify:   func(m *TableManifest) { m.TableName = "" },
			expErr:   ErrManifestInvalid,
		},
		{
			caseName: "row-count-mismatch",
			modify:   func(m *TableManifest) { m.NumRows = 5 },
			expErr:   ErrManifestInvalid,
		},
		{
			caseName: "object-index-gap",
			modify:   func(m *TableManifest) { m.Partitions[0].Objects[0].Index = 1 },
			expErr:   ErrManifestInvalid,
		},
		{
			caseName: "duplicate-partition",
			modify: func(m *TableManifest) {
				m.Partitions = append(m.Partitions, m.Partitions[0])
				m.NumRows = 8
			},
			expErr: ErrManifestInvalid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			manifest := validManifest()
			tc.modify(manifest)
			err := manifest.Validate()
			if !errors.Is(err, tc.expErr) {
				t.Errorf("expected error '%s' but received '%s'", tc.expErr, err)
			}
		})
	}
}

func TestNewManifestFromBytesInvalidJSON(t *testing.T) {
	_, err := NewManifestFromBytes([]byte("{"))
	assert.ErrorIs(t, err, ErrManifestInvalid)
}
