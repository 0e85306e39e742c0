// Package shoutcast talks to SHOUTcast servers.
//
// It covers two concerns:
//   - Stats: fetching and parsing the JSON stats page (listeners, server title
//     and the recent song history with eqbeats.org links).
//   - Streams: ICY stream reading with metadata stripping and playlist
//     resolution. This part started as a fork of github.com/romantomjak/shoutcast.
package shoutcast
