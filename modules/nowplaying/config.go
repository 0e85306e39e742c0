package nowplaying

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/celestiaradio/pkg/poller"
	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

const (
	defaultURL          = "http://ponify.me/stats.php"
	defaultWebsite      = "http://ponify.me"
	defaultFetchTimeout = 15 * time.Second
)

type Config struct {
	URL          string        `yaml:"url,omitempty"`
	Interval     time.Duration `yaml:"interval,omitempty"`
	FetchTimeout time.Duration `yaml:"fetch-timeout,omitempty"` // zero waits on a stalled server forever
	HistoryLimit int           `yaml:"history-limit,omitempty"`
	Website      string        `yaml:"website,omitempty"`
	UserAgent    string        `yaml:"user-agent,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.URL, util.PrefixConfig(prefix, "url"), defaultURL, "The SHOUTcast JSON stats page to poll")
	f.DurationVar(&cfg.Interval, util.PrefixConfig(prefix, "interval"), poller.DefaultInterval, "Delay between two polls of the stats page")
	f.DurationVar(&cfg.FetchTimeout, util.PrefixConfig(prefix, "fetch-timeout"), defaultFetchTimeout,
		"Give up on a stats request after this long. 0 disables the timeout.")
	f.IntVar(&cfg.HistoryLimit, util.PrefixConfig(prefix, "history-limit"), shoutcast.DefaultHistoryLimit, "Number of song history entries to keep per snapshot")
	f.StringVar(&cfg.Website, util.PrefixConfig(prefix, "website"), defaultWebsite, "Station website, served as a redirect from /website")
	f.StringVar(&cfg.UserAgent, util.PrefixConfig(prefix, "user-agent"), "", "User-Agent sent with stats requests")
}
