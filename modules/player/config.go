package player

import (
	"flag"

	"github.com/grafana/dskit/flagext"
	"github.com/zachfi/zkit/pkg/util"
)

const (
	defaultWriteBufferSize = 32 * 1024 // 32 KiB
	defaultCommand         = "ffplay,-nodisp,-loglevel,quiet,-"
)

type Config struct {
	URL             string                 `yaml:"url,omitempty"`
	Command         flagext.StringSliceCSV `yaml:"command,omitempty"`           // player process fed the audio on stdin
	WriteBufferSize int                    `yaml:"write-buffer-size,omitempty"` // bytes batched before each write to the player
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	_ = cfg.Command.Set(defaultCommand)

	f.StringVar(&cfg.URL, util.PrefixConfig(prefix, "url"), "", "The stream URL to play. Playlists (.pls, .m3u) are resolved.")
	f.Var(&cfg.Command, util.PrefixConfig(prefix, "command"), "Comma separated command line of the audio player. It reads the stream from stdin.")
	f.IntVar(&cfg.WriteBufferSize, util.PrefixConfig(prefix, "write-buffer-size"), defaultWriteBufferSize,
		"Bytes to buffer before handing audio to the player.")
}
