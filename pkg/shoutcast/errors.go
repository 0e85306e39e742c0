package shoutcast

import "errors"

var (
	// ErrNetwork is wrapped by every failure to retrieve a document: a bad
	// URL, a refused connection, a non-2xx status or a broken read.
	ErrNetwork = errors.New("network error")

	// ErrMalformedData is wrapped by every failure to interpret a stats
	// document.
	ErrMalformedData = errors.New("malformed data")
)
