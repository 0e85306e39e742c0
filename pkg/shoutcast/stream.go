package shoutcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// MetadataCallbackFunc is the type of the function called when the stream metadata changes
type MetadataCallbackFunc func(m *Metadata)

// Stream represents an open shoutcast stream. Reads return audio bytes only;
// ICY metadata blocks are consumed and reported through MetadataCallbackFunc.
type Stream struct {
	// The name of the server
	Name string

	// What category the server falls under
	Genre string

	// The description of the stream
	Description string

	// Homepage of the server
	URL string

	// Bitrate of the server
	Bitrate int

	// Optional function to be executed when stream metadata changes
	MetadataCallbackFunc MetadataCallbackFunc

	// Amount of bytes to read before expecting a metadata block. Zero when
	// the server does not interleave metadata.
	metaint int

	metadata *Metadata

	// The number of audio bytes read since the last metadata block
	pos int

	rc     io.ReadCloser
	logger *slog.Logger
}

// Open establishes a connection to a remote server.
// Playlist URLs (.pls, .m3u) are resolved to the stream they point at.
// ctx only bounds connection setup and resolution; reading is ended by Close.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening stream", "url", url)

	resolvedURL, err := resolvePlaylistURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve playlist URL: %w", err)
	}
	if resolvedURL != url {
		logger.Info("resolved playlist to stream URL", "url", resolvedURL)
		url = resolvedURL
	}

	// The request itself must outlive ctx, so only the dial and the response
	// headers are bounded.
	req, err := newStreamRequest(context.WithoutCancel(ctx), url)
	if err != nil {
		return nil, err
	}
	req.Header.Add("icy-metadata", "1")

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	client := &http.Client{Transport: transport}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	for k, v := range resp.Header {
		logger.Debug("HTTP header", "key", k, "value", v[0])
	}

	var bitrate int
	if rawBitrate := resp.Header.Get("icy-br"); rawBitrate != "" {
		bitrate, err = strconv.Atoi(rawBitrate)
		if err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("cannot parse bitrate: %w", err)
		}
	}

	var metaint int
	if rawMetaint := resp.Header.Get("icy-metaint"); rawMetaint != "" {
		metaint, err = strconv.Atoi(rawMetaint)
		if err != nil || metaint < 0 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("cannot parse metaint %q", rawMetaint)
		}
	}

	return &Stream{
		Name:        resp.Header.Get("icy-name"),
		Genre:       resp.Header.Get("icy-genre"),
		Description: resp.Header.Get("icy-description"),
		URL:         resp.Header.Get("icy-url"),
		Bitrate:     bitrate,
		metaint:     metaint,
		rc:          resp.Body,
		logger:      logger,
	}, nil
}

// Read implements io.Reader. It never returns more bytes than are left before
// the next metadata block, so a block is always handled at the start of a call.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.metaint == 0 {
		return s.rc.Read(buf)
	}

	if s.pos == s.metaint {
		if err := s.readMetadata(); err != nil {
			return 0, err
		}
		s.pos = 0
	}

	if remaining := s.metaint - s.pos; len(buf) > remaining {
		buf = buf[:remaining]
	}

	n, err := s.rc.Read(buf)
	s.pos += n

	return n, err
}

// readMetadata consumes one metadata block: a length byte counting 16 byte
// units, followed by that many bytes.
func (s *Stream) readMetadata() error {
	var lenByte [1]byte
	if _, err := io.ReadFull(s.rc, lenByte[:]); err != nil {
		return err
	}

	size := int(lenByte[0]) * 16
	if size == 0 {
		return nil
	}

	block := make([]byte, size)
	if _, err := io.ReadFull(s.rc, block); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	if m := NewMetadata(block); !m.Equals(s.metadata) {
		s.metadata = m
		if s.MetadataCallbackFunc != nil {
			s.MetadataCallbackFunc(m)
		}
	}

	return nil
}

// Close closes the stream
func (s *Stream) Close() error {
	s.logger.Info("closing stream", "name", s.Name)
	return s.rc.Close()
}
