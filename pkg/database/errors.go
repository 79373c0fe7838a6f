package database

import "errors"

// ErrInvalidConfig wraps every database config validation failure.
var ErrInvalidConfig = errors.New("invalid database config")
