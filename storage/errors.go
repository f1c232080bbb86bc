package storage

import (
	"errors"

	"github.com/go-redsync/redsync/v4"
)

var (
	ErrLockFailed         = redsync.ErrFailed
	ErrLockAlreadyExpired = redsync.ErrLockAlreadyExpired
	ErrRunInProgress      = errors.New("run in progress")
	ErrRunResultNotFound  = errors.New("run result not found")
	ErrManifestInvalid    = errors.New("manifest is invalid")
	ErrManifestNotFound   = errors.New("manifest not found")
	ErrObjectNotFound     = errors.New("object not found")
	ErrInvalidPrefix      = errors.New("invalid prefix")
)
