package cleaning

import (
	"strconv"
	"strings"
	"time"

	"github.com/alekLukanen/ecdsETL/elements"
)

// Accepted reporting period layouts in priority order.
var ReportingPeriodLayouts = []string{
	"2006-01",
	"2006/01",
}

func TrimField(value string) string {
	return strings.TrimSpace(value)
}

/*
* Converts a trimmed measure value into an integer. The second return value
* is false when the measure is absent: an empty string or anything that does
* not parse as a 32 bit integer once the comma grouping separators are
* removed. A failed parse is never an error for the row.
 */
func NormalizeMeasureValue(value string) (int32, bool) {
	if value == "" {
		return 0, false
	}
	value = strings.ReplaceAll(value, ",", "")
	parsed, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(parsed), true
}

/*
* Parses a trimmed reporting period against the accepted layouts. The first
* layout that parses wins and the result is the first day of that month in
* UTC. The second return value is false when no layout matches; callers drop
* the row in that case.
 */
func ParseReportingPeriod(value string) (time.Time, bool) {
	for _, layout := range ReportingPeriodLayouts {
		period, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func ReportingYear(period time.Time) int32 {
	return int32(period.Year())
}

/*
* CleanRecord applies the cleaning rules to one raw row in their fixed order:
* trim, measure value, reporting period, year. The boolean is false when the
* row must be dropped because the reporting period is unparseable. The
* values slice is not modified.
 */
func CleanRecord(layout elements.RecordLayout, values []string) (elements.Record, bool) {
	record := elements.Record{
		Dimensions: make([]string, len(layout.DimensionIdxs)),
	}
	for i, idx := range layout.DimensionIdxs {
		record.Dimensions[i] = TrimField(values[idx])
	}

	record.MeasureValue, record.MeasureValueValid = NormalizeMeasureValue(TrimField(values[layout.MeasureIdx]))

	period, ok := ParseReportingPeriod(TrimField(values[layout.ReportingIdx]))
	if !ok {
		return elements.Record{}, false
	}
	record.ReportingPeriod = period
	record.Year = ReportingYear(period)

	return record, true
}
