package httpapi

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
)

// Deps are the handlers an API serves. WebSocket and Metrics are optional.
type Deps struct {
	Games         *handlers.GameHandler
	Editor        *handlers.EditorHandler
	Relationships *handlers.RelationshipHandler
	Proposals     *handlers.ProposalHandler
	WebSocket     http.HandlerFunc
	Metrics       http.Handler
}

// API routes HTTP requests to the application handlers.
type API struct {
	deps   Deps
	router *mux.Router
	logger *zap.Logger
}

// NewAPI creates an API with every route registered.
func NewAPI(deps Deps, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{
		deps:   deps,
		router: mux.NewRouter(),
		logger: logger.Named("api"),
	}
	a.routes()
	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) routes() {
	r := a.router
	r.Use(a.logRequests)

	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)

	r.HandleFunc("/games", a.createGame).Methods(http.MethodPost)
	r.HandleFunc("/games", a.listGames).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}", a.showGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/view", a.viewGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/editor", a.editorState).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/generate", a.generate).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/actions", a.submitAction).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/playback", a.playback).Methods(http.MethodPut)
	r.HandleFunc("/games/{id}/characters", a.addCharacter).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/traits", a.addTrait).Methods(http.MethodPost)

	r.HandleFunc("/games/{id}/relationships", a.listRelationships).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/relationships/search", a.findRelationships).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/relationships/{from}/{to}", a.getRelationship).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/relationships/{from}/{to}", a.setRelationship).Methods(http.MethodPut)
	r.HandleFunc("/games/{id}/relationships/{from}/{to}/labels", a.labels).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/perceptions/{perceiver}/{target}", a.setPerception).Methods(http.MethodPut)

	if a.deps.Proposals != nil {
		r.HandleFunc("/games/{id}/proposals", a.listProposals).Methods(http.MethodGet)
		r.HandleFunc("/proposals/{id}/approve", a.approveProposal).Methods(http.MethodPost)
		r.HandleFunc("/proposals/{id}/reject", a.rejectProposal).Methods(http.MethodPost)
	}
	if a.deps.WebSocket != nil {
		r.HandleFunc("/ws", a.deps.WebSocket).Methods(http.MethodGet)
	}
	if a.deps.Metrics != nil {
		r.Handle("/metrics", a.deps.Metrics).Methods(http.MethodGet)
	}
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) createGame(w http.ResponseWriter, r *http.Request) {
	var input handlers.CreateGameInput
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	game, err := a.deps.Games.HandleCreate(r.Context(), input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (a *API) listGames(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	games, err := a.deps.Games.HandleList(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (a *API) showGame(w http.ResponseWriter, r *http.Request) {
	state, err := a.deps.Games.HandleShow(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) viewGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := a.deps.Games.HandleView(r.Context(), mux.Vars(r)["id"], q.Get("view"), q.Get("character"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) editorState(w http.ResponseWriter, r *http.Request) {
	state, err := a.deps.Editor.HandleState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	outcome, err := a.deps.Editor.HandleGenerate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if outcome.Running {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

func (a *API) submitAction(w http.ResponseWriter, r *http.Request) {
	var input handlers.ActionInput
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.deps.Editor.HandleAction(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type playbackRequest struct {
	Command handlers.PlaybackCommand `json:"command"`
}

func (a *API) playback(w http.ResponseWriter, r *http.Request) {
	var input playbackRequest
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.deps.Editor.HandlePlayback(r.Context(), mux.Vars(r)["id"], input.Command)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) addCharacter(w http.ResponseWriter, r *http.Request) {
	var input handlers.CharacterInput
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.deps.Games.HandleAddCharacter(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) addTrait(w http.ResponseWriter, r *http.Request) {
	var input handlers.TraitInput
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.deps.Games.HandleAddTrait(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) listRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := a.deps.Relationships.HandleList(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (a *API) findRelationships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: value must be a number", entities.ErrInvalidInput))
		return
	}
	rels, err := a.deps.Relationships.HandleFind(r.Context(), mux.Vars(r)["id"], q.Get("dimension"), q.Get("op"), value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

func (a *API) getRelationship(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rel, err := a.deps.Relationships.HandleGet(r.Context(), vars["id"], vars["from"], vars["to"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

type dimensionRequest struct {
	Dimension string   `json:"dimension"`
	Value     *float64 `json:"value"`
}

func (a *API) setRelationship(w http.ResponseWriter, r *http.Request) {
	var input dimensionRequest
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	if input.Value == nil {
		a.fail(w, r, fmt.Errorf("%w: value is required", entities.ErrInvalidInput))
		return
	}
	vars := mux.Vars(r)
	rel, err := a.deps.Relationships.HandleSet(r.Context(), vars["id"], vars["from"], vars["to"], input.Dimension, *input.Value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// setPerception treats a null or absent value as unknown.
func (a *API) setPerception(w http.ResponseWriter, r *http.Request) {
	var input dimensionRequest
	if err := decode(r, &input); err != nil {
		a.fail(w, r, err)
		return
	}
	value := "unknown"
	if input.Value != nil {
		value = strconv.FormatFloat(*input.Value, 'f', -1, 64)
	}
	vars := mux.Vars(r)
	p, err := a.deps.Relationships.HandlePerceive(r.Context(), vars["id"], vars["perceiver"], vars["target"], input.Dimension, value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) labels(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := a.deps.Relationships.HandleLabels(r.Context(), vars["id"], vars["from"], vars["to"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) listProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := a.deps.Proposals.HandleList(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if proposals == nil {
		proposals = []entities.EvolutionProposal{}
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (a *API) approveProposal(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Proposals.HandleApprove(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) rejectProposal(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Proposals.HandleReject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", entities.ErrInvalidInput, key)
	}
	return v, nil
}

// statusRecorder captures the response status. It passes Hijack through so
// WebSocket upgrades still work behind the logging middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
