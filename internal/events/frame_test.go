package events

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/fhecity/internal/model"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		id        string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "player_joined",
			data:      `{"player_id":"alice"}`,
			expected:  "event: player_joined\ndata: {\"player_id\":\"alice\"}\n\n",
		},
		{
			name:      "with id",
			eventName: "player_joined",
			id:        "e1",
			data:      "x",
			expected:  "event: player_joined\nid: e1\ndata: x\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "building_placed",
			data:      "{\n  \"position\": 4\n}",
			expected:  "event: building_placed\ndata: {\ndata:   \"position\": 4\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.id, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitLines("hello"))
	assert.Equal(t, []string{"line1", "line2"}, splitLines("line1\nline2"))
	assert.Equal(t, []string{"line1"}, splitLines("line1\n"))
	assert.Equal(t, []string{""}, splitLines(""))
	assert.Equal(t, []string{"line1", "line2"}, splitLines("line1\r\nline2\r\n"))
}

func TestTopicReceives(t *testing.T) {
	e := &model.Event{Type: model.EventPlayerJoined, PlayerID: "alice"}

	assert.True(t, CityTopic.Receives(e))
	assert.True(t, PlayerTopic("alice").Receives(e))
	assert.False(t, PlayerTopic("bob").Receives(e))
}

func TestEncodeEventCarriesID(t *testing.T) {
	frame, err := EncodeEvent(&model.Event{
		ID:        "e42",
		Type:      model.EventPlayerJoined,
		PlayerID:  "alice",
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msg := string(frame)
	assert.True(t, strings.HasPrefix(msg, "event: player_joined\nid: e42\ndata: {"), msg)
	assert.True(t, strings.HasSuffix(msg, "\n\n"))
}

func eventLog() []*model.Event {
	pos := model.Position(4)
	return []*model.Event{
		{ID: "e1", Type: model.EventPlayerJoined, PlayerID: "alice"},
		{ID: "e2", Type: model.EventPlayerJoined, PlayerID: "bob"},
		{ID: "e3", Type: model.EventBuildingPlaced, PlayerID: "alice", Position: &pos},
	}
}

func frameIDs(t *testing.T, frames [][]byte) []string {
	t.Helper()
	var ids []string
	for _, f := range frames {
		for _, line := range strings.Split(string(f), "\n") {
			if id, ok := strings.CutPrefix(line, "id: "); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func TestBacklogResumesAfterLastID(t *testing.T) {
	frames, err := Backlog(eventLog(), "e1", CityTopic)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e3"}, frameIDs(t, frames))
}

func TestBacklogFiltersByTopic(t *testing.T) {
	frames, err := Backlog(eventLog(), "e1", PlayerTopic("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e3"}, frameIDs(t, frames))
}

func TestBacklogReplaysEverythingForUnknownID(t *testing.T) {
	frames, err := Backlog(eventLog(), "gone", CityTopic)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, frameIDs(t, frames))
}

func TestBacklogEmptyWhenUpToDate(t *testing.T) {
	frames, err := Backlog(eventLog(), "e3", CityTopic)
	require.NoError(t, err)
	assert.Empty(t, frames)
}
