package player

import (
	"encoding/json"
	"net/http"
)

type state struct {
	Playing bool   `json:"playing"`
	Session string `json:"session,omitempty"`
}

// StateHandler reports whether playback is active.
func (p *Player) StateHandler(w http.ResponseWriter, _ *http.Request) {
	playing, session := p.Playing()
	writeJSON(w, http.StatusOK, state{Playing: playing, Session: session})
}

// ToggleHandler starts or stops playback.
func (p *Player) ToggleHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := p.Toggle(r.Context()); err != nil {
		p.logger.Error("toggle failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	playing, session := p.Playing()
	writeJSON(w, http.StatusOK, state{Playing: playing, Session: session})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
