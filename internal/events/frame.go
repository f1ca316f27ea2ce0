package events

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mcoot/fhecity/internal/model"
)

// Topic names a stream of events. The city topic carries every event; each
// player also has a topic carrying only their own.
type Topic string

// CityTopic carries events for all players
const CityTopic Topic = "city"

// PlayerTopic returns the topic for a single player's events
func PlayerTopic(playerID string) Topic {
	return Topic("player:" + playerID)
}

// Receives reports whether subscribers of t are sent e
func (t Topic) Receives(e *model.Event) bool {
	return t == CityTopic || t == PlayerTopic(string(e.PlayerID))
}

// EncodeEvent renders e as an SSE frame whose id is the event ID, so clients
// can resume with Last-Event-ID
func EncodeEvent(e *model.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return formatSSEMessage(string(e.Type), e.ID, string(data)), nil
}

// Backlog returns the frames for topic that follow lastID in log, which is
// ordered oldest first. If lastID has aged out of the log the whole log is
// replayed.
func Backlog(log []*model.Event, lastID string, topic Topic) ([][]byte, error) {
	if i := slices.IndexFunc(log, func(e *model.Event) bool { return e.ID == lastID }); i >= 0 {
		log = log[i+1:]
	}

	var frames [][]byte
	for _, e := range log {
		if !topic.Receives(e) {
			continue
		}
		frame, err := EncodeEvent(e)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// formatSSEMessage formats an SSE frame. id is omitted when empty and each
// line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, id, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	if id != "" {
		b.WriteString("id: ")
		b.WriteString(id)
		b.WriteByte('\n')
	}
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits on LF, dropping CRs and a trailing empty line
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
