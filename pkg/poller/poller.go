// Package poller repeatedly fetches and parses a SHOUTcast stats page and
// hands each new snapshot to a consumer.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

// DefaultInterval is the wait between two poll cycles.
const DefaultInterval = 30 * time.Second

var (
	// ErrNotIdle is returned by Start on a poller that was already started.
	ErrNotIdle = errors.New("poller already started")

	// ErrInterruptedWait is reported when Interrupt cuts a wait short.
	ErrInterruptedWait = errors.New("wait interrupted")
)

var tracer = otel.Tracer("github.com/zachfi/celestiaradio/pkg/poller")

// Fetcher retrieves the raw stats document. Failures wrap shoutcast.ErrNetwork.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser turns a raw stats document into a snapshot. Failures wrap
// shoutcast.ErrMalformedData.
type Parser interface {
	Parse(raw string) (shoutcast.StationStatus, error)
}

// UpdateFunc receives every successfully parsed snapshot.
type UpdateFunc func(status shoutcast.StationStatus)

// ErrorFunc receives every failed cycle and every interrupted wait.
type ErrorFunc func(kind ErrorKind, err error)

// State is the lifecycle of a Poller: Idle, then Running, then Stopped.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Poller runs one fetch, parse, emit, wait loop on its own goroutine.
// Cycles never overlap, and the callbacks are called from that goroutine only,
// so they never run concurrently with each other. They must not block.
type Poller struct {
	fetcher Fetcher
	parser  Parser
	logger  *slog.Logger

	// FetchTimeout bounds each fetch. Zero leaves it to the Fetcher.
	FetchTimeout time.Duration

	state atomic.Int32

	stopOnce  sync.Once
	stop      chan struct{}
	interrupt chan struct{}
	done      chan struct{}
}

// New returns an idle Poller.
func New(fetcher Fetcher, parser Parser, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		fetcher:   fetcher,
		parser:    parser,
		logger:    logger,
		stop:      make(chan struct{}),
		interrupt: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Start begins polling url every interval and returns immediately. An
// interval of zero or less selects DefaultInterval. A Poller can only be
// started once.
func (p *Poller) Start(url string, interval time.Duration, onUpdate UpdateFunc, onError ErrorFunc) error {
	if !p.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrNotIdle
	}

	if interval <= 0 {
		interval = DefaultInterval
	}
	if onUpdate == nil {
		onUpdate = func(shoutcast.StationStatus) {}
	}
	if onError == nil {
		onError = func(ErrorKind, error) {}
	}

	p.logger.Info("poller started", "url", url, "interval", interval)
	go p.loop(url, interval, onUpdate, onError)

	return nil
}

// Stop asks the loop to exit and returns without waiting for it. A fetch in
// flight is allowed to finish, but its result is not emitted. Use Done to
// wait for the loop to exit.
func (p *Poller) Stop() {
	if p.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
		close(p.done)
	} else {
		p.state.Store(int32(Stopped))
	}
	p.stopOnce.Do(func() { close(p.stop) })
}

// Interrupt cuts the current wait short so the next cycle starts at once.
// The interruption is reported to the ErrorFunc as KindInterruptedWait.
func (p *Poller) Interrupt() {
	select {
	case p.interrupt <- struct{}{}:
	default:
	}
}

// Done is closed once the loop has exited, or on Stop if it never started.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) running() bool {
	return p.State() == Running
}

func (p *Poller) loop(url string, interval time.Duration, onUpdate UpdateFunc, onError ErrorFunc) {
	defer close(p.done)
	defer p.logger.Info("poller stopped")

	for p.running() {
		status, err := p.cycle(url)
		switch {
		case !p.running():
			return
		case err != nil:
			onError(Kind(err), err)
		default:
			onUpdate(status)
		}

		if err := p.wait(interval); err != nil && p.running() {
			p.logger.Debug("wait interrupted")
			onError(KindInterruptedWait, err)
		}
	}
}

// cycle performs one fetch and parse.
func (p *Poller) cycle(url string) (shoutcast.StationStatus, error) {
	ctx, span := tracer.Start(context.Background(), "poller.cycle")
	span.SetAttributes(attribute.String("url", url))

	if p.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.FetchTimeout)
		defer cancel()
	}

	status, err := p.fetchAndParse(ctx, url)
	if err == nil {
		span.SetAttributes(
			attribute.String("listeners", status.CurrentListeners),
			attribute.Int("history", len(status.SongHistory)),
		)
	}

	return status, endSpan(span, err, "poll cycle failed", p.logger.With("url", url, "kind", Kind(err).String()))
}

// endSpan records the outcome of err on span, logs a failure and ends the
// span. It returns err unchanged.
func endSpan(span trace.Span, err error, message string, l *slog.Logger) error {
	defer span.End()

	if err != nil {
		if l != nil {
			l.Error(message, "err", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, message+": "+err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "ok")
	return nil
}

func (p *Poller) fetchAndParse(ctx context.Context, url string) (shoutcast.StationStatus, error) {
	raw, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return shoutcast.StationStatus{}, err
	}

	return p.parser.Parse(raw)
}

// wait blocks for interval, or until Stop or Interrupt. Only an interrupt
// returns an error.
func (p *Poller) wait(interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-p.stop:
		return nil
	case <-p.interrupt:
		return ErrInterruptedWait
	}
}
