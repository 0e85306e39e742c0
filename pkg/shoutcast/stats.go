package shoutcast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultHistoryLimit is the number of song history entries kept by
// ParseStats.
const DefaultHistoryLimit = 10

const (
	artistLinkPrefix = "http://eqbeats.org/user/"
	songLinkPrefix   = "http://eqbeats.org/track/"
)

// Stats page keys.
const (
	keyCurrentListeners = "CURRENTLISTENERS"
	keyServerTitle      = "SERVERTITLE"
	keySongHistory      = "SONGHISTORY"

	keyPlayedAt = "PLAYEDAT"
	keyArtistID = "ARTISTID"
	keyArtist   = "ARTIST"
	keySongID   = "SONGID"
	keySong     = "SONG"
	keyTitle    = "TITLE"
)

// StationStatus is one snapshot of the stats page. A snapshot is never
// modified after ParseStats returns it; a newer poll replaces it wholesale.
type StationStatus struct {
	// CurrentListeners is kept exactly as the server reports it.
	CurrentListeners string `json:"current_listeners"`
	ServerTitle      string `json:"server_title"`

	// SongHistory is ordered most recent first.
	SongHistory []SongEntry `json:"song_history"`
}

// NowPlaying returns the most recent history entry.
func (s StationStatus) NowPlaying() (SongEntry, bool) {
	if len(s.SongHistory) == 0 {
		return SongEntry{}, false
	}
	return s.SongHistory[0], true
}

// SongEntry is one element of the song history.
type SongEntry struct {
	PlayedAt string  `json:"played_at"`
	ArtistID *string `json:"artist_id,omitempty"`
	Artist   string  `json:"artist"`
	SongID   *string `json:"song_id,omitempty"`
	Song     string  `json:"song"`
	Title    string  `json:"title"`

	// ArtistLink and SongLink are set if and only if the matching id is.
	ArtistLink *string `json:"artist_link,omitempty"`
	SongLink   *string `json:"song_link,omitempty"`
}

func newSongEntry(playedAt string, artistID *string, artist string, songID *string, song, title string) SongEntry {
	return SongEntry{
		PlayedAt:   playedAt,
		ArtistID:   artistID,
		Artist:     artist,
		SongID:     songID,
		Song:       song,
		Title:      title,
		ArtistLink: link(artistLinkPrefix, artistID),
		SongLink:   link(songLinkPrefix, songID),
	}
}

func link(prefix string, id *string) *string {
	if id == nil {
		return nil
	}
	l := prefix + *id
	return &l
}

// StatsParser turns stats page documents into StationStatus snapshots.
// The zero value keeps DefaultHistoryLimit entries.
type StatsParser struct {
	HistoryLimit int
}

// ParseStats parses raw with the default history limit.
func ParseStats(raw string) (StationStatus, error) {
	return StatsParser{}.Parse(raw)
}

// Parse decodes one stats page document. Every failure wraps ErrMalformedData.
func (p StatsParser) Parse(raw string) (StationStatus, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return StationStatus{}, malformed("decode stats: %v", err)
	}
	if doc == nil {
		return StationStatus{}, malformed("stats document is null")
	}

	listeners, err := requiredText(doc, keyCurrentListeners)
	if err != nil {
		return StationStatus{}, err
	}

	title, err := requiredText(doc, keyServerTitle)
	if err != nil {
		return StationStatus{}, err
	}

	rawHistory, ok := doc[keySongHistory]
	if !ok {
		return StationStatus{}, malformed("missing key %s", keySongHistory)
	}

	var history []map[string]json.RawMessage
	if isNull(rawHistory) {
		return StationStatus{}, malformed("%s is null", keySongHistory)
	}
	if err := json.Unmarshal(rawHistory, &history); err != nil {
		return StationStatus{}, malformed("decode %s: %v", keySongHistory, err)
	}

	limit := p.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	entries := make([]SongEntry, 0, min(len(history), limit))
	for i, item := range history {
		if i >= limit {
			break
		}

		entry, err := parseSongEntry(item)
		if err != nil {
			return StationStatus{}, fmt.Errorf("%s[%d]: %w", keySongHistory, i, err)
		}
		entries = append(entries, entry)
	}

	return StationStatus{
		CurrentListeners: listeners,
		ServerTitle:      title,
		SongHistory:      entries,
	}, nil
}

func parseSongEntry(item map[string]json.RawMessage) (SongEntry, error) {
	if item == nil {
		return SongEntry{}, malformed("entry is null")
	}

	var (
		text = make(map[string]string, 4)
		ids  = make(map[string]*string, 2)
	)
	for _, key := range []string{keyPlayedAt, keyArtist, keySong, keyTitle} {
		v, err := requiredText(item, key)
		if err != nil {
			return SongEntry{}, err
		}
		text[key] = v
	}
	for _, key := range []string{keyArtistID, keySongID} {
		v, err := optionalText(item, key)
		if err != nil {
			return SongEntry{}, err
		}
		ids[key] = v
	}

	return newSongEntry(
		text[keyPlayedAt],
		ids[keyArtistID],
		text[keyArtist],
		ids[keySongID],
		text[keySong],
		text[keyTitle],
	), nil
}

// requiredText reads a key that must be present. A null value reads as "".
func requiredText(obj map[string]json.RawMessage, key string) (string, error) {
	v, err := optionalText(obj, key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// optionalText reads a key that must be present but may be null. Numbers
// and booleans read as their literal text. Objects and arrays are malformed.
func optionalText(obj map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, malformed("missing key %s", key)
	}

	raw = bytes.TrimSpace(raw)
	switch {
	case isNull(raw):
		return nil, nil
	case len(raw) == 0, raw[0] == '{', raw[0] == '[':
		return nil, malformed("%s is not a text value", key)
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, malformed("decode %s: %v", key, err)
		}
		return &s, nil
	default:
		// Numbers and booleans keep their literal text.
		s := string(raw)
		return &s, nil
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...))
}
