package fetch

import "errors"

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
)
