package shoutcast

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const celestiaFixture = `{
	"CURRENTLISTENERS": "42",
	"SERVERTITLE": "Celestia Radio",
	"SONGHISTORY": [
		{"PLAYEDAT": "1380000000", "ARTISTID": null, "ARTIST": "Some Pony",
		 "SONGID": "77", "SONG": "Friendship Anthem", "TITLE": "Some Pony - Friendship Anthem"}
	]
}`

func songJSON(i int, artistID, songID any) map[string]any {
	return map[string]any{
		"PLAYEDAT": fmt.Sprintf("%d", 1380000000+i),
		"ARTISTID": artistID,
		"ARTIST":   fmt.Sprintf("artist %d", i),
		"SONGID":   songID,
		"SONG":     fmt.Sprintf("song %d", i),
		"TITLE":    fmt.Sprintf("artist %d - song %d", i, i),
	}
}

func statsJSON(t *testing.T, songs []map[string]any) string {
	t.Helper()

	b, err := json.Marshal(map[string]any{
		"CURRENTLISTENERS": "7",
		"SERVERTITLE":      "Test FM",
		"SONGHISTORY":      songs,
	})
	require.NoError(t, err)

	return string(b)
}

func TestParseStatsFixture(t *testing.T) {
	status, err := ParseStats(celestiaFixture)
	require.NoError(t, err)

	assert.Equal(t, "42", status.CurrentListeners)
	assert.Equal(t, "Celestia Radio", status.ServerTitle)
	require.Len(t, status.SongHistory, 1)

	entry := status.SongHistory[0]
	assert.Equal(t, "1380000000", entry.PlayedAt)
	assert.Nil(t, entry.ArtistID)
	assert.Nil(t, entry.ArtistLink)
	require.NotNil(t, entry.SongLink)
	assert.Equal(t, "http://eqbeats.org/track/77", *entry.SongLink)
	assert.Equal(t, "Friendship Anthem", entry.Song)

	current, ok := status.NowPlaying()
	assert.True(t, ok)
	assert.Equal(t, entry, current)
}

func TestParseStatsHistoryOrder(t *testing.T) {
	for n := 0; n <= DefaultHistoryLimit; n++ {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			songs := make([]map[string]any, 0, n)
			for i := 0; i < n; i++ {
				songs = append(songs, songJSON(i, fmt.Sprintf("a%d", i), fmt.Sprintf("s%d", i)))
			}

			status, err := ParseStats(statsJSON(t, songs))
			require.NoError(t, err)
			require.Len(t, status.SongHistory, n)

			for i, entry := range status.SongHistory {
				assert.Equal(t, fmt.Sprintf("song %d", i), entry.Song)
			}
		})
	}
}

func TestParseStatsLinks(t *testing.T) {
	tests := []struct {
		name       string
		artistID   any
		songID     any
		artistLink string
		songLink   string
	}{
		{
			name: "both null",
		},
		{
			name:       "artist only",
			artistID:   "12",
			artistLink: "http://eqbeats.org/user/12",
		},
		{
			name:     "song only",
			songID:   "345",
			songLink: "http://eqbeats.org/track/345",
		},
		{
			name:       "both present",
			artistID:   "1",
			songID:     "2",
			artistLink: "http://eqbeats.org/user/1",
			songLink:   "http://eqbeats.org/track/2",
		},
		{
			name:       "empty string id still links",
			artistID:   "",
			artistLink: "http://eqbeats.org/user/",
		},
		{
			name:     "numeric id keeps literal text",
			songID:   99,
			songLink: "http://eqbeats.org/track/99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := statsJSON(t, []map[string]any{songJSON(0, tt.artistID, tt.songID)})

			status, err := ParseStats(raw)
			require.NoError(t, err)
			require.Len(t, status.SongHistory, 1)
			entry := status.SongHistory[0]

			if tt.artistID == nil {
				assert.Nil(t, entry.ArtistID)
				assert.Nil(t, entry.ArtistLink)
			} else {
				require.NotNil(t, entry.ArtistLink)
				assert.Equal(t, tt.artistLink, *entry.ArtistLink)
			}

			if tt.songID == nil {
				assert.Nil(t, entry.SongID)
				assert.Nil(t, entry.SongLink)
			} else {
				require.NotNil(t, entry.SongLink)
				assert.Equal(t, tt.songLink, *entry.SongLink)
			}
		})
	}
}

func TestParseStatsHistoryLimit(t *testing.T) {
	songs := make([]map[string]any, 0, 12)
	for i := 0; i < 12; i++ {
		songs = append(songs, songJSON(i, nil, nil))
	}
	raw := statsJSON(t, songs)

	status, err := ParseStats(raw)
	require.NoError(t, err)
	require.Len(t, status.SongHistory, DefaultHistoryLimit)
	assert.Equal(t, "song 9", status.SongHistory[9].Song)

	status, err = StatsParser{HistoryLimit: 3}.Parse(raw)
	require.NoError(t, err)
	require.Len(t, status.SongHistory, 3)
	assert.Equal(t, "song 0", status.SongHistory[0].Song)
}

func TestParseStatsIgnoresBrokenEntriesPastLimit(t *testing.T) {
	songs := []map[string]any{songJSON(0, nil, nil), {"PLAYEDAT": "x"}}

	status, err := StatsParser{HistoryLimit: 1}.Parse(statsJSON(t, songs))
	require.NoError(t, err)
	assert.Len(t, status.SongHistory, 1)
}

func TestParseStatsPure(t *testing.T) {
	first, err := ParseStats(celestiaFixture)
	require.NoError(t, err)

	second, err := ParseStats(celestiaFixture)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseStatsCoercion(t *testing.T) {
	raw := `{"CURRENTLISTENERS": 42, "SERVERTITLE": null, "SONGHISTORY": [
		{"PLAYEDAT": 1380000000, "ARTISTID": "5", "ARTIST": true,
		 "SONGID": null, "SONG": "s", "TITLE": null}
	]}`

	status, err := ParseStats(raw)
	require.NoError(t, err)

	assert.Equal(t, "42", status.CurrentListeners)
	assert.Equal(t, "", status.ServerTitle)
	require.Len(t, status.SongHistory, 1)
	assert.Equal(t, "1380000000", status.SongHistory[0].PlayedAt)
	assert.Equal(t, "true", status.SongHistory[0].Artist)
	assert.Equal(t, "", status.SongHistory[0].Title)
}

func TestParseStatsMalformed(t *testing.T) {
	valid := songJSON(0, "1", "2")

	withoutKey := func(key string) map[string]any {
		entry := make(map[string]any, len(valid))
		for k, v := range valid {
			if k != key {
				entry[k] = v
			}
		}
		return entry
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "not json", raw: "<html>stats</html>"},
		{name: "truncated", raw: `{"CURRENTLISTENERS": "1"`},
		{name: "array document", raw: `[]`},
		{name: "null document", raw: `null`},
		{name: "missing listeners", raw: `{"SERVERTITLE": "t", "SONGHISTORY": []}`},
		{name: "missing title", raw: `{"CURRENTLISTENERS": "1", "SONGHISTORY": []}`},
		{name: "missing history", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": "t"}`},
		{name: "null history", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": "t", "SONGHISTORY": null}`},
		{name: "history not array", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": "t", "SONGHISTORY": {}}`},
		{name: "entry not object", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": "t", "SONGHISTORY": ["a"]}`},
		{name: "null entry", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": "t", "SONGHISTORY": [null]}`},
		{name: "object title", raw: `{"CURRENTLISTENERS": "1", "SERVERTITLE": {}, "SONGHISTORY": []}`},
		{name: "array listeners", raw: `{"CURRENTLISTENERS": [1], "SERVERTITLE": "t", "SONGHISTORY": []}`},
	}

	for _, key := range []string{"PLAYEDAT", "ARTISTID", "ARTIST", "SONGID", "SONG", "TITLE"} {
		tests = append(tests, struct {
			name string
			raw  string
		}{
			name: "entry missing " + key,
			raw:  statsJSON(t, []map[string]any{valid, withoutKey(key)}),
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStats(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedData)
		})
	}
}

func TestParseStatsErrorNamesEntry(t *testing.T) {
	raw := statsJSON(t, []map[string]any{songJSON(0, nil, nil), {"PLAYEDAT": "x"}})

	_, err := ParseStats(raw)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "SONGHISTORY[1]"), err.Error())
}
