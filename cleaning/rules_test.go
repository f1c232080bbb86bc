package cleaning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alekLukanen/ecdsETL/elements"
)

func TestTrimField(t *testing.T) {

	testCases := []struct {
		caseName string
		value    string
		expValue string
	}{
		{caseName: "empty", value: "", expValue: ""},
		{caseName: "spaces-only", value: "   ", expValue: ""},
		{caseName: "mixed-whitespace-only", value: " \t\r\n ", expValue: ""},
		{caseName: "leading-and-trailing", value: "  RXX01 \t", expValue: "RXX01"},
		{caseName: "inner-whitespace-kept", value: " A and E ", expValue: "A and E"},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			assert.Equal(t, tc.expValue, TrimField(tc.value))
		})
	}

}

func TestNormalizeMeasureValue(t *testing.T) {

	testCases := []struct {
		caseName string
		value    string
		expValue int32
		expValid bool
	}{
		{caseName: "grouped-thousands", value: "1,234", expValue: 1234, expValid: true},
		{caseName: "multiple-separators", value: "1,234,567", expValue: 1234567, expValid: true},
		{caseName: "plain-integer", value: "42", expValue: 42, expValid: true},
		{caseName: "zero", value: "0", expValue: 0, expValid: true},
		{caseName: "negative", value: "-15", expValue: -15, expValid: true},
		{caseName: "empty-is-absent", value: "", expValid: false},
		{caseName: "letters-are-absent", value: "abc", expValid: false},
		{caseName: "decimal-is-absent", value: "12.5", expValid: false},
		{caseName: "suppressed-marker-is-absent", value: "*", expValid: false},
		{caseName: "int32-overflow-is-absent", value: "3,000,000,000", expValid: false},
		{caseName: "separators-only-is-absent", value: ",,", expValid: false},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			value, valid := NormalizeMeasureValue(tc.value)
			assert.Equal(t, tc.expValid, valid)
			assert.Equal(t, tc.expValue, value)
		})
	}

}

func TestParseReportingPeriod(t *testing.T) {

	testCases := []struct {
		caseName  string
		value     string
		expPeriod time.Time
		expYear   int32
		expValid  bool
	}{
		{
			caseName:  "dash-separated",
			value:     "2023-04",
			expPeriod: time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC),
			expYear:   2023,
			expValid:  true,
		},
		{
			caseName:  "slash-separated",
			value:     "2023/04",
			expPeriod: time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC),
			expYear:   2023,
			expValid:  true,
		},
		{
			caseName:  "december",
			value:     "2024-12",
			expPeriod: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
			expYear:   2024,
			expValid:  true,
		},
		{caseName: "short-year-is-unsupported", value: "23/04"},
		{caseName: "year-and-short-year-is-unsupported", value: "2023/24"},
		{caseName: "single-digit-month-is-unsupported", value: "2023-4"},
		{caseName: "full-date-is-unsupported", value: "2023-04-01"},
		{caseName: "month-out-of-range", value: "2023-13"},
		{caseName: "empty", value: ""},
		{caseName: "text", value: "April 2023"},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			period, valid := ParseReportingPeriod(tc.value)
			if !assert.Equal(t, tc.expValid, valid) {
				return
			}
			if !valid {
				return
			}
			assert.True(t, tc.expPeriod.Equal(period), "expected %s but received %s", tc.expPeriod, period)
			assert.Equal(t, tc.expYear, ReportingYear(period))
		})
	}

}

func TestCleanRecord(t *testing.T) {
	layout, err := elements.NewRecordLayout([]string{"ORG_CODE", elements.ColumnMeasureValue, "MEASURE", elements.ColumnReportingPeriod})
	if !assert.Nil(t, err) {
		return
	}

	testCases := []struct {
		caseName  string
		values    []string
		expRecord elements.Record
		expKeep   bool
	}{
		{
			caseName: "all-fields-valid",
			values:   []string{" RXX01 ", " 1,234 ", "ATTENDANCES", " 2023-04 "},
			expRecord: elements.Record{
				Dimensions:        []string{"RXX01", "ATTENDANCES"},
				MeasureValue:      1234,
				MeasureValueValid: true,
				ReportingPeriod:   time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC),
				Year:              2023,
			},
			expKeep: true,
		},
		{
			caseName: "whitespace-measure-becomes-absent",
			values:   []string{"RXX01", "   ", "   ", "2023/11"},
			expRecord: elements.Record{
				Dimensions:      []string{"RXX01", ""},
				ReportingPeriod: time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
				Year:            2023,
			},
			expKeep: true,
		},
		{
			caseName: "unparseable-period-is-dropped",
			values:   []string{"RXX01", "5", "ATTENDANCES", "23/04"},
			expKeep:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			original := append([]string{}, tc.values...)
			record, keep := CleanRecord(layout, tc.values)
			assert.Equal(t, original, tc.values, "expected the raw values to be untouched")
			if !assert.Equal(t, tc.expKeep, keep) || !keep {
				return
			}
			assert.Equal(t, tc.expRecord, record)
		})
	}
}
