package pipeline

import "errors"

var (
	ErrStageFailed = errors.New("stage failed")
)
