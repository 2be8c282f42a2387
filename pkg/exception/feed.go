package exception

import "errors"

// Feed errors
var (
	ErrFeedNilEncoder = errors.New("feed: nil subscribe encoder")
	ErrFeedNilHandler = errors.New("feed: nil frame handler")
	ErrFeedBadDelay   = errors.New("feed: reconnect delay must be positive")
	ErrFeedEmptyFrame = errors.New("feed: empty subscribe frame")
)

// Decode errors
var (
	ErrDecodeMalformed       = errors.New("decode: malformed frame")
	ErrDecodeTradeNoData     = errors.New("decode: trade without data")
	ErrDecodeTradeIncomplete = errors.New("decode: incomplete trade")
)
