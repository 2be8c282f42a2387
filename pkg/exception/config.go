package exception

import "errors"

// Config errors
var (
	ErrConfigInvalid      = errors.New("config: invalid value")
	ErrConfigUnknownCache = errors.New("config: unknown cache backend")
	ErrConfigUnknownLevel = errors.New("config: unknown log level")
	ErrConfigEmptyTickers = errors.New("config: empty ticker allow-list")
)
