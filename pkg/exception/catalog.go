package exception

import "errors"

// Catalog errors
var (
	ErrCatalogUnexpectedStatus = errors.New("catalog: unexpected response status")
	ErrCatalogDecode           = errors.New("catalog: decode response")
)
