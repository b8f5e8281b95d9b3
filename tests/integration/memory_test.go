package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func TestEventIndex_RememberRecall(t *testing.T) {
	ctx := t.Context()

	events := []entities.CanonicalEvent{
		{ID: "e1", GameID: "g1", Turn: 1, Type: entities.EventNarration, Content: "The lighthouse keeper vanished in the storm.", Timestamp: time.Now()},
		{ID: "e2", GameID: "g1", Turn: 2, Type: entities.EventDialogue, Content: "Who lit the harbor fires?", Speaker: "Vell", Timestamp: time.Now()},
		{ID: "e3", GameID: "g2", Turn: 1, Type: entities.EventNarration, Content: "The lighthouse keeper waves from the tower.", Timestamp: time.Now()},
	}
	for _, e := range events {
		require.NoError(t, testIndex.Remember(ctx, e))
	}

	recalled, err := testIndex.Recall(ctx, "g1", "lighthouse keeper", 5)
	require.NoError(t, err)
	require.NotEmpty(t, recalled)

	assert.Equal(t, "e1", recalled[0].ID)
	for _, e := range recalled {
		assert.Equal(t, "g1", e.GameID, "recall must not cross games")
	}
}

func TestEventIndex_RememberIsIdempotent(t *testing.T) {
	ctx := t.Context()

	event := entities.CanonicalEvent{ID: "dup", GameID: "g3", Turn: 1, Type: entities.EventNarration, Content: "A bell rings twice.", Timestamp: time.Now()}
	require.NoError(t, testIndex.Remember(ctx, event))
	require.NoError(t, testIndex.Remember(ctx, event))

	recalled, err := testIndex.Recall(ctx, "g3", "bell rings", 10)
	require.NoError(t, err)
	assert.Len(t, recalled, 1)
}
