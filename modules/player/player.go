package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/grafana/dskit/services"

	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

var module = "player"

// chunkQueueSize is the number of network reads that may queue up in front
// of a slow player.
const chunkQueueSize = 1024

// minWriteBufSize and maxWriteBufSize clamp the configured write buffer.
const (
	minWriteBufSize = 4 * 1024        // 4 KiB
	maxWriteBufSize = 4 * 1024 * 1024 // 4 MiB
)

// SinkFunc starts a consumer for the audio bytes of one playback session.
// Close ends the consumer.
type SinkFunc func() (io.WriteCloser, error)

// Player relays the configured stream into an audio player process. Toggle
// starts and stops the relay.
type Player struct {
	services.Service
	cfg     *Config
	logger  *slog.Logger
	newSink SinkFunc

	mu      sync.Mutex
	session *session
}

// New creates and returns a new Player.
func New(cfg Config, logger slog.Logger) (*Player, error) {
	if cfg.WriteBufferSize == 0 {
		cfg.WriteBufferSize = defaultWriteBufferSize
	}

	p := &Player{
		cfg:     &cfg,
		logger:  logger.With("module", module),
		newSink: CommandSink(cfg.Command),
	}

	p.Service = services.NewBasicService(nil, p.running, p.stopping)

	return p, nil
}

// WithSink replaces the player process with sink.
func (p *Player) WithSink(sink SinkFunc) *Player {
	p.newSink = sink
	return p
}

func (p *Player) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (p *Player) stopping(_ error) error {
	p.logger.Info("stopping")

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil
	}

	s := p.session
	p.session = nil
	metricPlaying.Set(0)
	return s.close()
}

// Playing reports whether a session is active, and its id.
func (p *Player) Playing() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return false, ""
	}
	return true, p.session.id
}

// Toggle starts playback when stopped and stops it when playing. It returns
// whether playback is active afterwards.
func (p *Player) Toggle(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		s := p.session
		p.session = nil
		metricPlaying.Set(0)
		return false, s.close()
	}

	if p.cfg.URL == "" {
		return false, errors.New("no stream url configured")
	}

	s, err := p.open(ctx)
	if err != nil {
		return false, err
	}
	p.session = s
	metricPlaying.Set(1)

	go p.watch(s)

	return true, nil
}

// watch clears s once its stream ends on its own.
func (p *Player) watch(s *session) {
	<-s.done

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != s {
		return
	}

	s.logger.Info("stream ended")
	p.session = nil
	metricPlaying.Set(0)
	if err := s.close(); err != nil {
		s.logger.Error("error closing session", "err", err)
	}
}

func (p *Player) open(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	logger := p.logger.With("session", id)

	stream, err := shoutcast.Open(ctx, p.cfg.URL, logger)
	if err != nil {
		logger.Error("error opening stream", "err", err)
		return nil, err
	}

	sink, err := p.newSink()
	if err != nil {
		_ = stream.Close()
		logger.Error("error starting player", "err", err)
		return nil, err
	}

	stream.MetadataCallbackFunc = func(m *shoutcast.Metadata) {
		logger.Info("now listening to", "title", m.StreamTitle)
	}

	s := &session{
		id:     id,
		logger: logger,
		stream: stream,
		sink:   sink,
		w:      newChannelWriter(chunkQueueSize),
		done:   make(chan struct{}),
	}
	s.start(p.cfg.WriteBufferSize)

	logger.Info("playback started", "name", stream.Name, "bitrate", stream.Bitrate)

	return s, nil
}

// session is one run of the relay: stream -> channelWriter -> sink.
type session struct {
	id     string
	logger *slog.Logger
	stream *shoutcast.Stream
	sink   io.WriteCloser
	w      *channelWriter

	copyWg    sync.WaitGroup // signals when the io.Copy goroutine has exited
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	done      chan struct{} // closed when the writer goroutine exits
}

func (s *session) start(writeBufSize int) {
	s.copyWg.Add(1)
	go func() {
		defer s.copyWg.Done()
		// Closing the writer lets the writer goroutine drain and exit.
		defer func() { _ = s.w.Close() }()

		b, copyErr := io.Copy(s.w, s.stream)
		if copyErr != nil && !errors.Is(copyErr, io.EOF) {
			s.logger.Debug("stream copy ended", "err", copyErr, "read", ByteCountIEC(b))
		}
	}()

	go func() {
		defer close(s.done)
		s.writeToSink(writeBufSize)
	}()
}

// close ends the stream and the sink, then waits for the relay goroutines.
func (s *session) close() error {
	s.closeOnce.Do(func() {
		var errs []error

		// Close stream first so io.Copy gets EOF and exits, which closes the
		// channel and lets the writer drain. Closing the sink next unblocks
		// a writer stuck on a player that stopped reading.
		s.closing.Store(true)
		if err := s.stream.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.sink.Close(); err != nil {
			errs = append(errs, err)
		}
		s.copyWg.Wait()
		<-s.done

		s.logger.Info("playback stopped")
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

// writeToSink drains the channel into the sink. Output starts at the first
// MP3 frame sync. Writes are batched up to writeBufSize while more chunks are
// queued, and flushed once the queue is empty. After a sink error the channel
// is still drained so the copy goroutine never blocks.
func (s *session) writeToSink(writeBufSize int) {
	writeBufSize = max(minWriteBufSize, min(writeBufSize, maxWriteBufSize))

	var (
		synced   bool
		failed   bool
		pending  = make([]byte, 0, 4096) // data held back until a frame sync shows up
		writeBuf = make([]byte, 0, writeBufSize)
	)

	write := func(b []byte) {
		if failed || len(b) == 0 {
			return
		}
		if s.closing.Load() {
			failed = true
			return
		}
		n, err := s.sink.Write(b)
		metricBytes.Add(float64(n))
		if err != nil {
			failed = true
			if !s.closing.Load() {
				s.logger.Error("error writing to player", "err", err)
			}
		}
	}

	for b := range s.w.dataChan {
		if !synced {
			pending = append(pending, b...)
			if pos := findMP3FrameSync(pending); pos >= 0 {
				writeBuf = append(writeBuf, pending[pos:]...)
				synced = true
			} else if len(pending) > 8192 {
				s.logger.Warn("no MP3 frame sync found in first 8KB, writing anyway")
				writeBuf = append(writeBuf, pending...)
				synced = true
			}
		} else {
			writeBuf = append(writeBuf, b...)
		}

		if synced && (len(writeBuf) >= writeBufSize || len(s.w.dataChan) == 0) {
			write(writeBuf)
			writeBuf = writeBuf[:0]
		}
	}

	write(writeBuf)
}
