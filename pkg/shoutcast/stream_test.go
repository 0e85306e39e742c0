package shoutcast

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// icyBody interleaves audio chunks of metaint bytes with metadata blocks.
func icyBody(metaint int, audio []byte, titles ...string) []byte {
	var buf bytes.Buffer
	for i := 0; len(audio) > 0; i++ {
		n := min(metaint, len(audio))
		buf.Write(audio[:n])
		audio = audio[n:]
		if n < metaint {
			break
		}

		if i >= len(titles) {
			buf.WriteByte(0)
			continue
		}
		meta := "StreamTitle='" + titles[i] + "';"
		blocks := (len(meta) + 15) / 16
		buf.WriteByte(byte(blocks))
		buf.WriteString(meta)
		buf.Write(make([]byte, blocks*16-len(meta)))
	}

	return buf.Bytes()
}

func icyServer(t *testing.T, metaint int, body []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-name", "Test FM")
		w.Header().Set("icy-br", "128")
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestStreamStripsMetadata(t *testing.T) {
	audio := bytes.Repeat([]byte("0123456789abcdef"), 8)
	server := icyServer(t, 32, icyBody(32, audio, "First - Song", "First - Song", "Second - Song"))

	stream, err := Open(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	assert.Equal(t, "Test FM", stream.Name)
	assert.Equal(t, 128, stream.Bitrate)

	var titles []string
	stream.MetadataCallbackFunc = func(m *Metadata) {
		titles = append(titles, m.StreamTitle)
	}

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
	assert.Equal(t, []string{"First - Song", "Second - Song"}, titles)
}

func TestStreamTruncatedMetadata(t *testing.T) {
	body := append(bytes.Repeat([]byte{0xFF}, 16), 2, 'S', 't')
	server := icyServer(t, 16, body)

	stream, err := Open(context.Background(), server.URL, nil)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	_, err = io.ReadAll(stream)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpenResolvesPlaylist(t *testing.T) {
	audio := []byte("audio-bytes")
	stream := icyServer(t, 0, audio)

	playlist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/x-scpls")
		_, _ = w.Write([]byte("[playlist]\nNumberOfEntries=1\nFile1=" + stream.URL + "\n"))
	}))
	defer playlist.Close()

	s, err := Open(context.Background(), playlist.URL+"/listen.pls", nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestParsePlaylists(t *testing.T) {
	url, err := parsePLS(strings.NewReader("[playlist]\nFile1=http://radio.example/stream\nTitle1=Radio\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://radio.example/stream", url)

	url, err = parseM3U(strings.NewReader("#EXTM3U\n#EXTINF:-1,Radio\n\nhttps://radio.example/stream\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://radio.example/stream", url)

	_, err = parsePLS(strings.NewReader("[playlist]\nNumberOfEntries=0\n"))
	assert.Error(t, err)

	_, err = parseM3U(strings.NewReader("#EXTM3U\n"))
	assert.Error(t, err)
}

func TestNewMetadata(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Metadata
	}{
		{
			name:  "title and url",
			input: "StreamTitle='Artist - Song';StreamUrl='http://example.com';",
			want:  Metadata{StreamTitle: "Artist - Song", StreamURL: "http://example.com"},
		},
		{
			name:  "nul padded",
			input: "StreamTitle='Padded';\x00\x00\x00",
			want:  Metadata{StreamTitle: "Padded"},
		},
		{
			name:  "equals sign in title",
			input: "StreamTitle='A=B';",
			want:  Metadata{StreamTitle: "A=B"},
		},
		{
			name:  "empty",
			input: "",
			want:  Metadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *NewMetadata([]byte(tt.input)))
		})
	}
}

func TestMetadataEquals(t *testing.T) {
	a := &Metadata{StreamTitle: "a"}

	assert.True(t, a.Equals(&Metadata{StreamTitle: "a"}))
	assert.False(t, a.Equals(&Metadata{StreamTitle: "b"}))
	assert.False(t, a.Equals(nil))
	assert.True(t, (*Metadata)(nil).Equals(nil))
}
