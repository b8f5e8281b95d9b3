package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func sampleState() *entities.FullGameState {
	return &entities.FullGameState{
		Game: entities.Game{ID: "g1", Name: "Saltmarsh", Turn: 2},
		Events: []entities.CanonicalEvent{
			{ID: "e1", GameID: "g1", Turn: 1, Type: entities.EventNarration, Content: "Fog rolls in.", Witnesses: []string{}},
			{ID: "e2", GameID: "g1", Turn: 2, Type: entities.EventDialogue, Content: "A secret.", Witnesses: []string{"dm-npc"}},
		},
		Characters: []entities.Character{
			{ID: "bren", GameID: "g1", Name: "Bren", InParty: true},
			{ID: "mira", GameID: "g1", Name: "Mira", InParty: true},
		},
		Relationships: []entities.Relationship{
			{GameID: "g1", FromID: "bren", ToID: "mira", Trust: 0.9, Respect: 0.5, Affection: 0.5, Fear: 0.6},
		},
	}
}

type testServer struct {
	hub    *Hub
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})
	return &testServer{hub: hub, server: server}
}

func (ts *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_ServeWSRejectsBadQueries(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing game", query: "view=dm"},
		{name: "bad view", query: "game=g1&view=god"},
		{name: "player without character", query: "game=g1&view=player"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.server.URL + "/?" + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHub_Broadcast(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	dm := ts.dial(t, "game=g1&view=dm")
	party := ts.dial(t, "game=g1")
	player := ts.dial(t, "game=g1&view=player&character=bren")
	other := ts.dial(t, "game=g2&view=dm")

	require.Eventually(t, func() bool { return ts.hub.Subscribers("g1") == 3 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, ts.hub.Subscribers("g2"))

	require.NoError(t, ts.hub.Broadcast(ctx, "g1", entities.GenerationStarted("g1", "gen-1")))
	require.NoError(t, ts.hub.Broadcast(ctx, "g1", entities.StateChanged(sampleState())))

	t.Run("dm receives everything in order", func(t *testing.T) {
		first := readJSON(t, dm)
		assert.Equal(t, "generation_started", first["type"])
		assert.Equal(t, "gen-1", first["generation_id"])

		second := readJSON(t, dm)
		assert.Equal(t, "state_changed", second["type"])
		state := second["state"].(map[string]any)
		assert.Contains(t, state, "relationships")
	})

	t.Run("party receives only the projected snapshot", func(t *testing.T) {
		msg := readJSON(t, party)
		assert.Equal(t, "state_changed", msg["type"])
		assert.Equal(t, "party", msg["view"])

		state := msg["state"].(map[string]any)
		keys := make([]string, 0, len(state))
		for k := range state {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"narration", "avatars", "scene", "area"}, keys)
	})

	t.Run("player receives own projection without hidden dimensions", func(t *testing.T) {
		require.NoError(t, player.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := player.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Type  string          `json:"type"`
			View  string          `json:"view"`
			State json.RawMessage `json:"state"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "player", msg.View)
		assert.Contains(t, string(msg.State), `"character_id":"bren"`)
		assert.NotContains(t, string(msg.State), "fear")
		assert.NotContains(t, string(msg.State), "A secret.")
	})

	t.Run("other games are isolated", func(t *testing.T) {
		require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		_, _, err := other.ReadMessage()
		assert.Error(t, err)
	})
}

func TestHub_UnknownPlayerIsSkipped(t *testing.T) {
	ts := newTestServer(t)

	ghost := ts.dial(t, "game=g1&view=player&character=ghost")
	require.Eventually(t, func() bool { return ts.hub.Subscribers("g1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ts.hub.Broadcast(context.Background(), "g1", entities.StateChanged(sampleState())))

	require.NoError(t, ghost.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := ghost.ReadMessage()
	assert.Error(t, err)
}

func TestHub_Unsubscribe(t *testing.T) {
	ts := newTestServer(t)

	conn := ts.dial(t, "game=g1&view=dm")
	require.Eventually(t, func() bool { return ts.hub.Subscribers("g1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return ts.hub.Subscribers("g1") == 0 }, 2*time.Second, 10*time.Millisecond)

	// Broadcasting to a game without subscribers is fine.
	require.NoError(t, ts.hub.Broadcast(context.Background(), "g1", entities.GenerationStarted("g1", "x")))
}
