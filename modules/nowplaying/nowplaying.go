package nowplaying

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/grafana/dskit/services"

	"github.com/zachfi/celestiaradio/pkg/poller"
	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

var module = "nowplaying"

// Snapshot is the latest successfully parsed stats page.
type Snapshot struct {
	Status    shoutcast.StationStatus
	UpdatedAt time.Time
}

// NowPlaying polls the stats page and keeps the most recent snapshot for the
// HTTP handlers.
type NowPlaying struct {
	services.Service
	cfg    *Config
	logger *slog.Logger

	poller *poller.Poller
	latest atomic.Pointer[Snapshot]
}

// New creates and returns a new NowPlaying.
func New(cfg Config, logger slog.Logger) (*NowPlaying, error) {
	if cfg.URL == "" {
		return nil, errors.New("stats url is required")
	}

	n := &NowPlaying{
		cfg:    &cfg,
		logger: logger.With("module", module),
	}

	n.poller = poller.New(
		shoutcast.NewStatsClient(0, cfg.UserAgent),
		shoutcast.StatsParser{HistoryLimit: cfg.HistoryLimit},
		n.logger,
	)
	n.poller.FetchTimeout = cfg.FetchTimeout

	n.Service = services.NewBasicService(nil, n.running, n.stopping)

	return n, nil
}

func (n *NowPlaying) running(ctx context.Context) error {
	if err := n.poller.Start(n.cfg.URL, n.cfg.Interval, n.update, n.report); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-n.poller.Done():
		return fmt.Errorf("poller exited unexpectedly")
	}
}

func (n *NowPlaying) stopping(_ error) error {
	n.logger.Info("stopping")

	n.poller.Stop()
	<-n.poller.Done()

	return nil
}

// Latest returns the most recent snapshot, or nil before the first
// successful poll.
func (n *NowPlaying) Latest() *Snapshot {
	return n.latest.Load()
}

// Refresh cuts the poller's current wait short.
func (n *NowPlaying) Refresh() {
	n.poller.Interrupt()
}

func (n *NowPlaying) update(status shoutcast.StationStatus) {
	now := time.Now()
	previous := n.latest.Swap(&Snapshot{Status: status, UpdatedAt: now})

	metricPollCycles.WithLabelValues("success").Inc()
	metricLastUpdate.Set(float64(now.Unix()))
	if listeners, err := strconv.ParseFloat(status.CurrentListeners, 64); err == nil {
		metricCurrentListeners.Set(listeners)
	}

	current, ok := status.NowPlaying()
	if !ok {
		return
	}
	if previous != nil {
		if last, ok := previous.Status.NowPlaying(); ok && last.PlayedAt == current.PlayedAt && last.Title == current.Title {
			return
		}
	}

	n.logger.Info("now playing", "artist", current.Artist, "song", current.Song, "listeners", status.CurrentListeners)
}

// report counts failed cycles. The poller has already logged them. An
// interrupted wait is not a cycle and is counted as a refresh.
func (n *NowPlaying) report(kind poller.ErrorKind, err error) {
	if kind == poller.KindInterruptedWait {
		metricRefreshes.Inc()
		n.logger.Debug("poll wait interrupted", "err", err)
		return
	}

	metricPollCycles.WithLabelValues(kind.String()).Inc()
}
