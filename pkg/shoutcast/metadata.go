package shoutcast

import "strings"

// Metadata represents the in-band ICY metadata sent by the server.
type Metadata struct {
	StreamTitle string
	StreamURL   string
}

// NewMetadata parses a raw ICY metadata block, e.g.
// "StreamTitle='Artist - Song';StreamUrl='';" padded with NUL bytes.
func NewMetadata(b []byte) *Metadata {
	m := &Metadata{}

	for _, prop := range strings.Split(strings.TrimRight(string(b), "\x00"), ";") {
		key, value, ok := strings.Cut(prop, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, "'")

		switch strings.TrimSpace(key) {
		case "StreamTitle":
			m.StreamTitle = value
		case "StreamUrl":
			m.StreamURL = value
		}
	}

	return m
}

// Equals reports whether m and other carry the same values.
func (m *Metadata) Equals(other *Metadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return *m == *other
}
