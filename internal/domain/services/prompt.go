package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

// NarrativeOutputSchema is the JSON schema providers must answer with.
var NarrativeOutputSchema = []byte(`{
  "type": "object",
  "required": ["content", "eventType"],
  "properties": {
    "content": {"type": "string", "minLength": 1},
    "eventType": {"type": "string", "enum": ["narration", "dialogue", "action", "scene_transition"]},
    "speaker": {"type": "string"}
  }
}`)

const (
	// DefaultRecentEvents is how many committed events a prompt replays.
	DefaultRecentEvents = 10
	// DefaultRecallLimit is how many older events are recalled from memory.
	DefaultRecallLimit = 3
)

// PromptBuilder is the default ports.ContextAssembler.
type PromptBuilder struct {
	store        ports.Store
	memory       ports.NarrativeMemory
	recentEvents int
	recallLimit  int
	logger       *zap.Logger
}

// NewPromptBuilder creates a PromptBuilder. memory may be nil.
func NewPromptBuilder(store ports.Store, memory ports.NarrativeMemory, recentEvents, recallLimit int, logger *zap.Logger) *PromptBuilder {
	if recentEvents <= 0 {
		recentEvents = DefaultRecentEvents
	}
	if recallLimit < 0 {
		recallLimit = DefaultRecallLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptBuilder{
		store:        store,
		memory:       memory,
		recentEvents: recentEvents,
		recallLimit:  recallLimit,
		logger:       logger.Named("prompt"),
	}
}

// Assemble builds the provider request for the game's next event.
func (b *PromptBuilder) Assemble(ctx context.Context, game *entities.Game, guidance string) (ports.GenerationRequest, error) {
	events, err := b.store.ListEvents(ctx, game.ID, b.recentEvents)
	if err != nil {
		return ports.GenerationRequest{}, fmt.Errorf("listing recent events: %w", err)
	}
	characters, err := b.store.ListCharacters(ctx, game.ID)
	if err != nil {
		return ports.GenerationRequest{}, fmt.Errorf("listing characters: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are the narrator of a tabletop role-playing game. ")
	sb.WriteString("Write the single next event of the story. A human game master reviews everything you write.\n\n")
	fmt.Fprintf(&sb, "Game: %s (turn %d)\n", game.Name, game.Turn)

	if location := b.location(ctx, game); location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", location)
	}

	var party []string
	for _, c := range characters {
		if c.InParty {
			party = append(party, c.Name)
		}
	}
	if len(party) > 0 {
		fmt.Fprintf(&sb, "Party: %s\n", strings.Join(party, ", "))
	}

	if recalled := b.recall(ctx, game.ID, events, guidance); len(recalled) > 0 {
		sb.WriteString("\nEarlier events that may matter:\n")
		writeEvents(&sb, recalled)
	}

	if len(events) > 0 {
		sb.WriteString("\nRecent events:\n")
		writeEvents(&sb, events)
	} else {
		sb.WriteString("\nThe story has not started yet. Open the first scene.\n")
	}

	if g := strings.TrimSpace(guidance); g != "" {
		fmt.Fprintf(&sb, "\nGame master guidance for this event: %s\n", g)
	}

	sb.WriteString("\nRespond with only a JSON object: ")
	sb.WriteString(`{"content": "...", "eventType": "narration|dialogue|action|scene_transition", "speaker": "name when dialogue"}`)

	return ports.GenerationRequest{
		GameID:       game.ID,
		Prompt:       sb.String(),
		OutputSchema: NarrativeOutputSchema,
	}, nil
}

func (b *PromptBuilder) location(ctx context.Context, game *entities.Game) string {
	var parts []string
	if game.CurrentAreaID != "" {
		if area, err := b.store.FindArea(ctx, game.CurrentAreaID); err == nil && area != nil {
			parts = append(parts, area.Name)
		}
	}
	if game.CurrentSceneID != "" {
		if scene, err := b.store.FindScene(ctx, game.CurrentSceneID); err == nil && scene != nil {
			parts = append(parts, scene.Name)
		}
	}
	return strings.Join(parts, " / ")
}

// recall looks up older events related to the guidance or the latest event.
// Memory failures only cost context, so they are logged and skipped.
func (b *PromptBuilder) recall(ctx context.Context, gameID string, recent []entities.CanonicalEvent, guidance string) []entities.CanonicalEvent {
	if b.memory == nil || b.recallLimit == 0 {
		return nil
	}
	query := strings.TrimSpace(guidance)
	if query == "" && len(recent) > 0 {
		query = recent[len(recent)-1].Content
	}
	if query == "" {
		return nil
	}

	found, err := b.memory.Recall(ctx, gameID, query, b.recallLimit+len(recent))
	if err != nil {
		b.logger.Warn("recalling events", zap.String("game_id", gameID), zap.Error(err))
		return nil
	}

	seen := make(map[string]bool, len(recent))
	for i := range recent {
		seen[recent[i].ID] = true
	}
	var result []entities.CanonicalEvent
	for _, e := range found {
		if seen[e.ID] {
			continue
		}
		result = append(result, e)
		if len(result) == b.recallLimit {
			break
		}
	}
	return result
}

func writeEvents(sb *strings.Builder, events []entities.CanonicalEvent) {
	for i := range events {
		e := &events[i]
		if e.Speaker != "" {
			fmt.Fprintf(sb, "[turn %d] (%s) %s: %s\n", e.Turn, e.Type, e.Speaker, e.Content)
			continue
		}
		fmt.Fprintf(sb, "[turn %d] (%s) %s\n", e.Turn, e.Type, e.Content)
	}
}
