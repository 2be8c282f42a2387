package exception

import "errors"

// Query errors
var (
	ErrInvalidSymbol = errors.New("invalid symbol format")
	ErrPriceNotFound = errors.New("ticker price not found")
)
