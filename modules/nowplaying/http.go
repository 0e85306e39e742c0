package nowplaying

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zachfi/celestiaradio/pkg/shoutcast"
)

// View is the JSON document served on /nowplaying.
type View struct {
	Headline    string                `json:"headline"`
	Listeners   string                `json:"listeners"`
	ServerTitle string                `json:"server_title"`
	Artist      string                `json:"artist,omitempty"`
	ArtistLink  *string               `json:"artist_link,omitempty"`
	Song        string                `json:"song,omitempty"`
	SongLink    *string               `json:"song_link,omitempty"`
	History     []shoutcast.SongEntry `json:"history"`
	Website     string                `json:"website,omitempty"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Headline renders the listener banner shown above the current song.
func Headline(status shoutcast.StationStatus) string {
	return fmt.Sprintf("%s ponies tuned in to %s!", status.CurrentListeners, status.ServerTitle)
}

// NewView builds the presentation of a snapshot.
func NewView(s Snapshot, website string) View {
	v := View{
		Headline:    Headline(s.Status),
		Listeners:   s.Status.CurrentListeners,
		ServerTitle: s.Status.ServerTitle,
		History:     s.Status.SongHistory,
		Website:     website,
		UpdatedAt:   s.UpdatedAt,
	}
	if v.History == nil {
		v.History = []shoutcast.SongEntry{}
	}

	if current, ok := s.Status.NowPlaying(); ok {
		v.Artist = current.Artist
		v.ArtistLink = current.ArtistLink
		v.Song = current.Song
		v.SongLink = current.SongLink
	}

	return v
}

// StatusHandler serves the latest snapshot, or 503 until there is one.
func (n *NowPlaying) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	latest := n.Latest()
	if latest == nil {
		http.Error(w, "no stats received yet", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, NewView(*latest, n.cfg.Website))
}

// RefreshHandler triggers an immediate poll.
func (n *NowPlaying) RefreshHandler(w http.ResponseWriter, _ *http.Request) {
	n.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

// WebsiteHandler redirects to the station website.
func (n *NowPlaying) WebsiteHandler(w http.ResponseWriter, r *http.Request) {
	if n.cfg.Website == "" {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, n.cfg.Website, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
