package poller

import (
	"errors"

	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

// ErrorKind classifies the failures reported by a Poller. None of them stop
// the loop.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindMalformedData
	KindInterruptedWait
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindMalformedData:
		return "malformed_data"
	case KindInterruptedWait:
		return "interrupted_wait"
	default:
		return "unknown"
	}
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, shoutcast.ErrNetwork):
		return KindNetwork
	case errors.Is(err, shoutcast.ErrMalformedData):
		return KindMalformedData
	case errors.Is(err, ErrInterruptedWait):
		return KindInterruptedWait
	default:
		return KindUnknown
	}
}
