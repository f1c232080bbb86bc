package cleaning

import "errors"

var (
	ErrUnexpectedColumnType = errors.New("unexpected column type")
	ErrColumnCountMismatch  = errors.New("column count mismatch")
)
