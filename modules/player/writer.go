package player

import (
	"io"
	"sync"
)

// channelWriter hands written chunks to a single consumer goroutine so a slow
// sink never stalls the network read.
type channelWriter struct {
	sync.Mutex
	dataChan chan []byte
	closed   bool
}

func newChannelWriter(size int) *channelWriter {
	return &channelWriter{
		dataChan: make(chan []byte, size),
	}
}

// Write queues a copy of p; io.Copy reuses its buffer between calls.
func (cw *channelWriter) Write(p []byte) (n int, err error) {
	cw.Lock()
	defer cw.Unlock()

	if cw.closed {
		return 0, io.ErrClosedPipe
	}

	cw.dataChan <- append([]byte(nil), p...)

	return len(p), nil
}

func (cw *channelWriter) Close() error {
	cw.Lock()
	defer cw.Unlock()

	if !cw.closed {
		close(cw.dataChan)
		cw.closed = true
	}

	return nil
}
