package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/mocks"
	"github.com/ersonp/loremaster/internal/domain/services"
	"github.com/ersonp/loremaster/internal/infrastructure/broadcast/ws"
	"github.com/ersonp/loremaster/internal/infrastructure/metrics"
)

type apiFixture struct {
	server   *httptest.Server
	store    *mocks.Store
	provider *mocks.Provider
	hub      *ws.Hub
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store:    mocks.NewStore(),
		provider: &mocks.Provider{Responses: []string{"Fog rolls in."}},
		hub:      ws.NewHub(nil),
	}
	recorder := metrics.NewRecorder()
	state := services.NewStateService(f.store, 0)
	relService := services.NewRelationshipService(f.store, f.store)
	engine := services.NewEditorialEngine(services.EngineDeps{
		Store:       f.store,
		Provider:    f.provider,
		Assembler:   services.NewPromptBuilder(f.store, nil, 5, 0, nil),
		Broadcaster: f.hub,
		Metrics:     recorder,
	}, nil)
	worker := services.NewEvolutionWorker(services.NewEvolutionQueue(4, recorder, nil), nil, nil, relService, f.store, nil)

	api := NewAPI(Deps{
		Games:         handlers.NewGameHandler(f.store, state),
		Editor:        handlers.NewEditorHandler(engine, services.NewPlaybackController(engine)),
		Relationships: handlers.NewRelationshipHandler(relService, f.store),
		Proposals:     handlers.NewProposalHandler(worker),
		WebSocket:     f.hub.ServeWS,
		Metrics:       recorder.Handler(),
	}, nil)
	f.server = httptest.NewServer(api)
	t.Cleanup(func() {
		f.server.Close()
		f.hub.Close()
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (f *apiFixture) createGame(t *testing.T) entities.Game {
	t.Helper()
	status, raw := f.do(t, http.MethodPost, "/games", map[string]string{"name": "Saltmarsh", "scene": "Docks"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var game entities.Game
	require.NoError(t, json.Unmarshal(raw, &game))
	return game
}

func TestAPI_GameLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)

	status, raw := f.do(t, http.MethodGet, "/games/"+game.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var state entities.FullGameState
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, "Saltmarsh", state.Game.Name)
	require.NotNil(t, state.Scene)
	assert.Equal(t, "Docks", state.Scene.Name)

	status, raw = f.do(t, http.MethodGet, "/games", nil)
	require.Equal(t, http.StatusOK, status)
	var games []entities.Game
	require.NoError(t, json.Unmarshal(raw, &games))
	assert.Len(t, games, 1)

	status, _ = f.do(t, http.MethodGet, "/games?limit=many", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, raw = f.do(t, http.MethodGet, "/games/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"Game not found"}`, string(raw))
}

func TestAPI_EditorialCycle(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)

	status, raw := f.do(t, http.MethodPost, "/games/"+game.ID+"/actions", map[string]string{"type": "ACCEPT"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(raw), "No content to accept")

	status, raw = f.do(t, http.MethodPost, "/games/"+game.ID+"/generate", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var outcome services.GenerationOutcome
	require.NoError(t, json.Unmarshal(raw, &outcome))
	assert.Equal(t, "Fog rolls in.", outcome.Content)

	status, _ = f.do(t, http.MethodPost, "/games/"+game.ID+"/generate", nil)
	assert.Equal(t, http.StatusConflict, status, "a second generation waits for the pending content")

	status, raw = f.do(t, http.MethodGet, "/games/"+game.ID+"/editor", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"pending":"Fog rolls in."`)

	status, raw = f.do(t, http.MethodPost, "/games/"+game.ID+"/actions", map[string]string{"type": "ACCEPT"})
	require.Equal(t, http.StatusOK, status, string(raw))
	var result services.SubmitResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.NotNil(t, result.Event)
	assert.Equal(t, 1, result.Event.Turn)
	assert.Equal(t, "Fog rolls in.", result.Event.Content)

	status, _ = f.do(t, http.MethodPost, "/games/"+game.ID+"/actions", map[string]string{"type": "REWIND"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = f.do(t, http.MethodPost, "/games/"+game.ID+"/actions", `{"type":`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestAPI_Playback(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)

	status, raw := f.do(t, http.MethodPut, "/games/"+game.ID+"/playback", map[string]string{"command": "stop"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.JSONEq(t, `{"mode":"stopped"}`, string(raw))

	status, _ = f.do(t, http.MethodPut, "/games/"+game.ID+"/playback", map[string]string{"command": "rewind"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = f.do(t, http.MethodPost, "/games/"+game.ID+"/playback", map[string]string{"command": "stop"})
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestAPI_Relationships(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)
	base := "/games/" + game.ID

	status, _ := f.do(t, http.MethodPut, base+"/relationships/a/b", map[string]any{"dimension": "trust", "value": 1.5})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = f.do(t, http.MethodPut, base+"/relationships/a/b", map[string]any{"dimension": "trust"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	for dim, v := range map[string]float64{"trust": 0.8, "respect": 0.8, "affection": 0.9, "fear": 0.05, "resentment": 0.02} {
		status, raw := f.do(t, http.MethodPut, base+"/relationships/a/b", map[string]any{"dimension": dim, "value": v})
		require.Equal(t, http.StatusOK, status, string(raw))
	}

	status, raw := f.do(t, http.MethodGet, base+"/relationships/a/b/labels", nil)
	require.Equal(t, http.StatusOK, status)
	var labels services.LabelResult
	require.NoError(t, json.Unmarshal(raw, &labels))
	assert.Equal(t, services.LabelDevoted, labels.Primary)

	status, raw = f.do(t, http.MethodGet, base+"/relationships/search?dimension=affection&op=>&value=0.5", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var found []entities.Relationship
	require.NoError(t, json.Unmarshal(raw, &found))
	assert.Len(t, found, 1)

	status, _ = f.do(t, http.MethodGet, base+"/relationships/search?dimension=love&op=>&value=0.5", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, raw = f.do(t, http.MethodPut, base+"/perceptions/a/b", map[string]any{"dimension": "trust", "value": nil})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"perceived_trust":null`)

	status, raw = f.do(t, http.MethodPut, base+"/perceptions/a/b", map[string]any{"dimension": "trust", "value": 0})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Contains(t, string(raw), `"perceived_trust":0`)
}

func TestAPI_ViewsAndProposals(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)

	status, _ := f.do(t, http.MethodGet, "/games/"+game.ID+"/view?view=player", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, raw := f.do(t, http.MethodGet, "/games/"+game.ID+"/view", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var party map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &party))
	assert.NotContains(t, party, "relationships")

	status, raw = f.do(t, http.MethodGet, "/games/"+game.ID+"/proposals", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, _ = f.do(t, http.MethodPost, "/proposals/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_MetricsAndHealth(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)
	status, _ := f.do(t, http.MethodPost, "/games/"+game.ID+"/generate", nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "loremaster_generations_started_total")

	status, raw = f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestAPI_WebSocketThroughMiddleware(t *testing.T) {
	f := newAPIFixture(t)
	game := f.createGame(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?game=" + game.ID + "&view=dm"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Subscribers(game.ID) == 1 }, time.Second, 10*time.Millisecond)

	status, _ := f.do(t, http.MethodPost, "/games/"+game.ID+"/generate", nil)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var n entities.Notification
	require.NoError(t, json.Unmarshal(msg, &n))
	assert.Equal(t, entities.NotifyGenerationStarted, n.Kind)
}
