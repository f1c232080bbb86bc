package elements

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPartitionKey(t *testing.T) {
	assert.Equal(t, "year=2023", FormatPartitionKey([]string{ColumnYear}, []string{"2023"}))
	assert.Equal(t, "year=2023/org=RXX", FormatPartitionKey([]string{ColumnYear, "org"}, []string{"2023", "RXX"}))
}

func TestPartitionValue(t *testing.T) {

	testCases := []struct {
		caseName string
		key      string
		column   string
		expValue string
		expErr   error
	}{
		{
			caseName: "single-segment",
			key:      "year=2023",
			column:   ColumnYear,
			expValue: "2023",
		},
		{
			caseName: "multiple-segments",
			key:      "year=2024/org=RXX",
			column:   "org",
			expValue: "RXX",
		},
		{
			caseName: "column-missing",
			key:      "year=2024",
			column:   "org",
			expErr:   ErrPartitionKeyNotFound,
		},
		{
			caseName: "malformed-key",
			key:      "2024",
			column:   ColumnYear,
			expErr:   ErrPartitionKeyNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			value, err := Partition{TableName: "cleaned", Key: tc.key}.Value(tc.column)
			if !errors.Is(err, tc.expErr) {
				t.Errorf("expected error '%s' but received '%s'", tc.expErr, err)
				return
			}
			assert.Equal(t, tc.expValue, value)
		})
	}
}
