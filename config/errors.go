package config

import "errors"

var (
	ErrConfigRead    = errors.New("failed reading config")
	ErrConfigInvalid = errors.New("config invalid")
)
