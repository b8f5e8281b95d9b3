package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// Generation outcomes reported to EditorMetrics.
const (
	OutcomeOK         = "ok"
	OutcomeSuperseded = "superseded"
)

// CommitObserver receives every committed event. Offer must not block.
type CommitObserver interface {
	Offer(event entities.CanonicalEvent) bool
}

// EngineDeps wires an EditorialEngine.
type EngineDeps struct {
	Store       ports.Store
	Provider    ports.NarrativeProvider
	Assembler   ports.ContextAssembler
	Broadcaster ports.Broadcaster
	Metrics     ports.EditorMetrics
	// Observer, when set, is offered each committed event.
	Observer CommitObserver
	// Timeout bounds each provider call. Zero means no bound.
	Timeout time.Duration
	// Async runs provider calls in the background. Contract errors are
	// still returned synchronously.
	Async bool
	// SnapshotEvents caps the events carried by state_changed. Zero keeps all.
	SnapshotEvents int
}

// GenerationOutcome describes one generation attempt.
type GenerationOutcome struct {
	GenerationID string             `json:"generation_id"`
	Content      string             `json:"content,omitempty"`
	EventType    entities.EventType `json:"event_type,omitempty"`
	// Failure is set when the provider failed. It is never retried.
	Failure *ports.ProviderError `json:"failure,omitempty"`
	// Superseded is set when a REGENERATE replaced this attempt.
	Superseded bool `json:"superseded,omitempty"`
	// Running is set when the attempt continues in the background.
	Running bool `json:"running,omitempty"`
}

// SubmitResult is what a DM action produced.
type SubmitResult struct {
	Event  *entities.CanonicalEvent `json:"event,omitempty"`
	Editor entities.DMEditorState   `json:"editor"`
	// Next is the generation started by the action, if any.
	Next *GenerationOutcome `json:"next,omitempty"`
}

// EditorialEngine runs the per-game generate/review/commit cycle.
type EditorialEngine struct {
	store       ports.Store
	provider    ports.NarrativeProvider
	assembler   ports.ContextAssembler
	broadcaster ports.Broadcaster
	metrics     ports.EditorMetrics
	observer    CommitObserver
	snapshots   *StateService
	timeout     time.Duration
	async       bool

	locks    *gameLocks
	inflight sync.WaitGroup
	logger   *zap.Logger
}

// NewEditorialEngine creates an EditorialEngine.
func NewEditorialEngine(deps EngineDeps, logger *zap.Logger) *EditorialEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &EditorialEngine{
		store:       deps.Store,
		provider:    deps.Provider,
		assembler:   deps.Assembler,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		observer:    deps.Observer,
		snapshots:   NewStateService(deps.Store, deps.SnapshotEvents),
		timeout:     deps.Timeout,
		async:       deps.Async,
		locks:       newGameLocks(),
		logger:      logger.Named("editor"),
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.broadcaster == nil {
		e.broadcaster = noopBroadcaster{}
	}
	return e
}

// Wait blocks until background generations finish.
func (e *EditorialEngine) Wait() {
	e.inflight.Wait()
}

// EditorState returns the current editor state of a game.
func (e *EditorialEngine) EditorState(ctx context.Context, gameID string) (entities.DMEditorState, error) {
	if _, err := e.findGame(ctx, gameID); err != nil {
		return entities.DMEditorState{}, err
	}
	state, err := e.store.GetEditorState(ctx, gameID)
	if err != nil {
		return entities.DMEditorState{}, fmt.Errorf("getting editor state: %w", err)
	}
	return state, nil
}

// GenerateNext asks the provider for the game's next event. It is only valid
// while the editor is idle. Provider failures are reported in the outcome and
// broadcast, not returned as errors.
func (e *EditorialEngine) GenerateNext(ctx context.Context, gameID string) (*GenerationOutcome, error) {
	g, err := e.begin(ctx, gameID, "", false)
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, g), nil
}

// Submit applies a DM action.
func (e *EditorialEngine) Submit(ctx context.Context, gameID string, action entities.Action) (*SubmitResult, error) {
	var (
		result *SubmitResult
		err    error
	)
	switch action.Type {
	case entities.ActionAccept:
		result, err = e.accept(ctx, gameID)
	case entities.ActionEdit:
		result, err = e.edit(ctx, gameID, action.Content)
	case entities.ActionRegenerate:
		result, err = e.regenerate(ctx, gameID, action.Guidance)
	case entities.ActionInject:
		result, err = e.inject(ctx, gameID, action)
	default:
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownAction, action.Type)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.ActionSubmitted(action.Type)
	return result, nil
}

func (e *EditorialEngine) findGame(ctx context.Context, gameID string) (*entities.Game, error) {
	game, err := e.store.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("finding game: %w", err)
	}
	if game == nil {
		return nil, entities.ErrGameNotFound
	}
	return game, nil
}

// generation is a started provider call.
type generation struct {
	id       string
	game     entities.Game
	guidance string
}

// begin moves the editor to generating under the game lock. When supersede is
// set any pending content and in-flight call are discarded.
func (e *EditorialEngine) begin(ctx context.Context, gameID, guidance string, supersede bool) (*generation, error) {
	unlock := e.locks.lock(gameID)
	defer unlock()

	game, err := e.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	state, err := e.store.GetEditorState(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("getting editor state: %w", err)
	}
	if !supersede {
		if state.Status == entities.EditorGenerating {
			return nil, entities.ErrGenerationInProgress
		}
		if state.HasPending() {
			return nil, entities.ErrContentPending
		}
	}
	if state.Status == entities.EditorGenerating {
		e.logger.Info("superseding generation",
			zap.String("game_id", gameID),
			zap.String("generation_id", state.GenerationID))
	}

	g := &generation{id: uuid.New().String(), game: *game, guidance: guidance}
	next := entities.DMEditorState{
		GameID:       gameID,
		Status:       entities.EditorGenerating,
		GenerationID: g.id,
		UpdatedAt:    time.Now(),
	}
	if err := e.store.SetEditorState(ctx, next); err != nil {
		return nil, fmt.Errorf("setting editor state: %w", err)
	}
	e.metrics.GenerationStarted(gameID)
	e.broadcast(ctx, gameID, entities.GenerationStarted(gameID, g.id))
	e.broadcast(ctx, gameID, entities.EditorStateChanged(next))
	return g, nil
}

func (e *EditorialEngine) dispatch(ctx context.Context, g *generation) *GenerationOutcome {
	if !e.async {
		return e.run(ctx, g)
	}
	bg := context.WithoutCancel(ctx)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.run(bg, g)
	}()
	return &GenerationOutcome{GenerationID: g.id, Running: true}
}

// run calls the provider outside the game lock, then records the result
// unless a newer generation replaced it meanwhile.
func (e *EditorialEngine) run(ctx context.Context, g *generation) *GenerationOutcome {
	start := time.Now()
	resp, err := e.call(ctx, g)
	elapsed := time.Since(start)

	// The caller may be gone by now; the result still has to land.
	ctx = context.WithoutCancel(ctx)
	unlock := e.locks.lock(g.game.ID)
	defer unlock()

	outcome := &GenerationOutcome{GenerationID: g.id}
	state, serr := e.store.GetEditorState(ctx, g.game.ID)
	if serr != nil {
		e.logger.Error("reading editor state after generation", zap.String("game_id", g.game.ID), zap.Error(serr))
		e.fail(ctx, g, outcome, ports.NewProviderError(ports.ProviderUnavailable, "reading editor state: %v", serr), elapsed)
		return outcome
	}
	if state.GenerationID != g.id || state.Status != entities.EditorGenerating {
		e.logger.Info("dropping stale generation result",
			zap.String("game_id", g.game.ID),
			zap.String("generation_id", g.id),
			zap.String("current_generation_id", state.GenerationID))
		e.metrics.GenerationSuperseded()
		e.metrics.GenerationFinished(OutcomeSuperseded, elapsed.Seconds())
		outcome.Superseded = true
		return outcome
	}

	if err != nil {
		perr := e.toProviderError(err)
		e.logger.Warn("generation failed",
			zap.String("game_id", g.game.ID),
			zap.String("generation_id", g.id),
			zap.String("code", string(perr.Code)),
			zap.Error(perr))
		e.fail(ctx, g, outcome, perr, elapsed)
		return outcome
	}

	eventType := resp.EventType
	if eventType == "" {
		eventType = entities.EventNarration
	}
	content := resp.Content
	state.Status = entities.EditorAccepting
	state.Pending = &content
	state.EditedContent = nil
	state.PendingEventType = eventType
	state.PendingSpeaker = resp.Speaker
	state.UpdatedAt = time.Now()
	if err := e.store.SetEditorState(ctx, state); err != nil {
		e.logger.Error("storing pending content", zap.String("game_id", g.game.ID), zap.Error(err))
		e.fail(ctx, g, outcome, ports.NewProviderError(ports.ProviderUnavailable, "storing pending content: %v", err), elapsed)
		return outcome
	}
	e.metrics.GenerationFinished(OutcomeOK, elapsed.Seconds())

	metadata := map[string]any{"durationMs": elapsed.Milliseconds()}
	if resp.DurationMs > 0 {
		metadata["durationMs"] = resp.DurationMs
	}
	if resp.Speaker != "" {
		metadata["speaker"] = resp.Speaker
	}
	for k, v := range resp.Metadata {
		metadata[k] = v
	}
	e.broadcast(ctx, g.game.ID, entities.GenerationComplete(g.game.ID, g.id, content, eventType, metadata))
	e.broadcast(ctx, g.game.ID, entities.EditorStateChanged(state))

	outcome.Content = content
	outcome.EventType = eventType
	return outcome
}

// fail records a failed attempt and returns the editor to idle so the DM can
// retry. The caller holds the game lock.
func (e *EditorialEngine) fail(ctx context.Context, g *generation, outcome *GenerationOutcome, perr *ports.ProviderError, elapsed time.Duration) {
	e.metrics.GenerationFinished(string(perr.Code), elapsed.Seconds())
	outcome.Failure = perr

	idle := entities.IdleEditorState(g.game.ID)
	idle.UpdatedAt = time.Now()
	if err := e.store.ClearEditorState(ctx, g.game.ID); err != nil {
		e.logger.Error("clearing editor state", zap.String("game_id", g.game.ID), zap.Error(err))
	}
	e.broadcast(ctx, g.game.ID, entities.GenerationError(g.game.ID, g.id, perr.Message, perr.Retryable))
	e.broadcast(ctx, g.game.ID, entities.EditorStateChanged(idle))
}

func (e *EditorialEngine) call(ctx context.Context, g *generation) (*ports.GenerationResponse, error) {
	req, err := e.assembler.Assemble(ctx, &g.game, g.guidance)
	if err != nil {
		return nil, ports.NewProviderError(ports.ProviderExecutionError, "assembling context: %v", err)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	resp, err := e.provider.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, ports.NewProviderError(ports.ProviderParseError, "provider returned no content")
	}
	return resp, nil
}

func (e *EditorialEngine) toProviderError(err error) *ports.ProviderError {
	var perr *ports.ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewProviderError(ports.ProviderTimeout, "generation timed out after %s", e.timeout)
	}
	return ports.NewProviderError(ports.ProviderExecutionError, "%v", err)
}

func (e *EditorialEngine) accept(ctx context.Context, gameID string) (*SubmitResult, error) {
	unlock := e.locks.lock(gameID)
	game, err := e.findGame(ctx, gameID)
	if err != nil {
		unlock()
		return nil, err
	}
	state, err := e.store.GetEditorState(ctx, gameID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("getting editor state: %w", err)
	}
	content, original, ok := state.CommitContent()
	if !ok {
		unlock()
		return nil, entities.ErrNoContentToAccept
	}

	eventType := state.PendingEventType
	if eventType == "" {
		eventType = entities.EventNarration
	}

	// Pending content is released before the commit and put back if the
	// commit fails. A retried ACCEPT can only commit it once.
	if err := e.store.ClearEditorState(ctx, gameID); err != nil {
		unlock()
		return nil, fmt.Errorf("clearing editor state: %w", err)
	}
	event, err := e.commit(ctx, game, entities.CanonicalEvent{
		Type:              eventType,
		Content:           content,
		OriginalGenerated: original,
		Speaker:           state.PendingSpeaker,
	})
	if err != nil {
		if rerr := e.store.SetEditorState(ctx, state); rerr != nil {
			e.logger.Error("restoring pending content",
				zap.String("game_id", gameID),
				zap.Error(rerr))
		}
		unlock()
		return nil, err
	}

	idle := entities.IdleEditorState(gameID)
	idle.UpdatedAt = time.Now()
	e.broadcast(ctx, gameID, entities.EditorStateChanged(idle))
	e.broadcastSnapshot(ctx, gameID)
	unlock()

	next, err := e.chain(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Event: event, Editor: idle, Next: next}, nil
}

func (e *EditorialEngine) edit(ctx context.Context, gameID, content string) (*SubmitResult, error) {
	unlock := e.locks.lock(gameID)
	defer unlock()

	if _, err := e.findGame(ctx, gameID); err != nil {
		return nil, err
	}
	state, err := e.store.GetEditorState(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("getting editor state: %w", err)
	}
	if !state.HasPending() {
		return nil, entities.ErrNoContentToEdit
	}
	if strings.TrimSpace(content) == "" {
		return nil, entities.ErrEmptyContent
	}

	state.EditedContent = &content
	state.Status = entities.EditorEditing
	state.UpdatedAt = time.Now()
	if err := e.store.SetEditorState(ctx, state); err != nil {
		return nil, fmt.Errorf("setting editor state: %w", err)
	}
	e.broadcast(ctx, gameID, entities.EditorStateChanged(state))
	return &SubmitResult{Editor: state}, nil
}

func (e *EditorialEngine) regenerate(ctx context.Context, gameID, guidance string) (*SubmitResult, error) {
	g, err := e.begin(ctx, gameID, guidance, true)
	if err != nil {
		return nil, err
	}
	next := e.dispatch(ctx, g)
	state, err := e.store.GetEditorState(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("getting editor state: %w", err)
	}
	return &SubmitResult{Editor: state, Next: next}, nil
}

func (e *EditorialEngine) inject(ctx context.Context, gameID string, action entities.Action) (*SubmitResult, error) {
	if strings.TrimSpace(action.Content) == "" {
		return nil, entities.ErrEmptyContent
	}
	eventType := action.EventType
	if eventType == "" {
		eventType = entities.EventDMInjection
	}

	unlock := e.locks.lock(gameID)
	game, err := e.findGame(ctx, gameID)
	if err != nil {
		unlock()
		return nil, err
	}
	if action.SceneID != "" && action.SceneID != game.CurrentSceneID {
		game.CurrentSceneID = action.SceneID
		game.UpdatedAt = time.Now()
		if err := e.store.UpdateGame(ctx, game); err != nil {
			unlock()
			return nil, fmt.Errorf("moving to scene %s: %w", action.SceneID, err)
		}
	}
	event, err := e.commit(ctx, game, entities.CanonicalEvent{
		Type:      eventType,
		Content:   action.Content,
		Speaker:   action.Speaker,
		Witnesses: action.Witnesses,
	})
	if err != nil {
		unlock()
		return nil, err
	}
	e.broadcastSnapshot(ctx, gameID)
	state, err := e.store.GetEditorState(ctx, gameID)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("getting editor state: %w", err)
	}

	next, err := e.chain(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Event: event, Editor: state, Next: next}, nil
}

// commit appends the event at the next turn and advances the game's turn in
// one store operation. The caller holds the game lock.
func (e *EditorialEngine) commit(ctx context.Context, game *entities.Game, event entities.CanonicalEvent) (*entities.CanonicalEvent, error) {
	event.ID = uuid.New().String()
	event.GameID = game.ID
	event.LocationID = game.CurrentSceneID
	if event.LocationID == "" {
		event.LocationID = game.CurrentAreaID
	}
	if event.Witnesses == nil {
		event.Witnesses = []string{}
	}
	event.Timestamp = time.Now()

	turn, err := e.store.AppendEvent(ctx, &event)
	if err != nil {
		return nil, fmt.Errorf("committing event: %w", err)
	}
	if turn != game.Turn+1 {
		e.logger.Warn("turn moved outside the engine",
			zap.String("game_id", game.ID),
			zap.Int("expected_turn", game.Turn+1),
			zap.Int("game_turn", turn))
	}
	game.Turn = turn

	e.metrics.EventCommitted(event.Type)
	e.logger.Info("event committed",
		zap.String("game_id", game.ID),
		zap.String("event_id", event.ID),
		zap.Int("turn", event.Turn),
		zap.String("type", string(event.Type)),
		zap.Bool("edited", event.WasEdited()))
	if e.observer != nil {
		e.observer.Offer(event)
	}
	return &event, nil
}

// chain starts the next generation when the game is in auto playback and the
// editor is free. Mode is re-read so changes apply at this decision point.
func (e *EditorialEngine) chain(ctx context.Context, gameID string) (*GenerationOutcome, error) {
	game, err := e.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.PlaybackMode != entities.PlaybackAuto {
		return nil, nil
	}
	g, err := e.begin(ctx, gameID, "", false)
	if errors.Is(err, entities.ErrContentPending) || errors.Is(err, entities.ErrGenerationInProgress) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.dispatch(ctx, g), nil
}

// withGameLock runs fn while holding the game lock.
func (e *EditorialEngine) withGameLock(gameID string, fn func() error) error {
	unlock := e.locks.lock(gameID)
	defer unlock()
	return fn()
}

func (e *EditorialEngine) broadcastSnapshot(ctx context.Context, gameID string) {
	state, err := e.snapshots.Snapshot(ctx, gameID)
	if err != nil {
		e.logger.Error("building snapshot", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	e.broadcast(ctx, gameID, entities.StateChanged(state))
}

func (e *EditorialEngine) broadcast(ctx context.Context, gameID string, n entities.Notification) {
	if err := e.broadcaster.Broadcast(ctx, gameID, n); err != nil {
		e.logger.Warn("broadcast failed",
			zap.String("game_id", gameID),
			zap.String("type", string(n.Kind)),
			zap.Error(err))
	}
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, string, entities.Notification) error { return nil }

type noopMetrics struct{}

func (noopMetrics) GenerationStarted(string) {}
func (noopMetrics) GenerationFinished(string, float64) {}
func (noopMetrics) GenerationSuperseded() {}
func (noopMetrics) EventCommitted(entities.EventType) {}
func (noopMetrics) ActionSubmitted(entities.ActionType) {}
func (noopMetrics) EvolutionDropped() {}
