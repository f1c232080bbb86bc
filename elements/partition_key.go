package elements

import (
	"fmt"
	"strings"

	"github.com/alekLukanen/errs"
)

/*
* Partition keys are hive style "column=value" segments joined by "/",
* for example "year=2023". The key doubles as the object key directory of
* the partition.
 */
func FormatPartitionKey(columns []string, values []string) string {
	segments := make([]string, len(columns))
	for idx, column := range columns {
		segments[idx] = fmt.Sprintf("%s=%s", column, values[idx])
	}
	return strings.Join(segments, "/")
}

func ParsePartitionKey(key string) (map[string]string, error) {
	values := make(map[string]string)
	for _, segment := range strings.Split(key, "/") {
		column, value, found := strings.Cut(segment, "=")
		if !found || column == "" {
			return nil, errs.NewStackError(fmt.Errorf("%w| segment %q of key %q", ErrPartitionKeyNotFound, segment, key))
		}
		values[column] = value
	}
	return values, nil
}

func (obj Partition) Value(column string) (string, error) {
	values, err := ParsePartitionKey(obj.Key)
	if err != nil {
		return "", err
	}
	value, ok := values[column]
	if !ok {
		return "", errs.NewStackError(fmt.Errorf("%w| column %s not in key %q", ErrPartitionKeyNotFound, column, obj.Key))
	}
	return value, nil
}
