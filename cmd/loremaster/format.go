package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/services"
)

// emit prints v as JSON when --json is set and as text otherwise.
func emit(v any, text func(io.Writer)) error {
	if globalJSON {
		return printJSON(os.Stdout, v)
	}
	text(os.Stdout)
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printGame(w io.Writer, g *entities.Game) {
	fmt.Fprintf(w, "%s (%s)\n", g.Name, g.ID)
	fmt.Fprintf(w, "  Turn: %d\n", g.Turn)
	fmt.Fprintf(w, "  Playback: %s\n", g.PlaybackMode)
	if g.CurrentAreaID != "" {
		fmt.Fprintf(w, "  Area: %s\n", g.CurrentAreaID)
	}
	if g.CurrentSceneID != "" {
		fmt.Fprintf(w, "  Scene: %s\n", g.CurrentSceneID)
	}
}

func printGames(w io.Writer, games []entities.Game) {
	if len(games) == 0 {
		fmt.Fprintln(w, "No games found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-24s  %5s  %s\n", "ID", "NAME", "TURN", "PLAYBACK")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, g := range games {
		fmt.Fprintf(w, "%-36s  %-24s  %5d  %s\n", g.ID, truncate(g.Name, 24), g.Turn, g.PlaybackMode)
	}
}

func printOutcome(w io.Writer, o *services.GenerationOutcome) {
	switch {
	case o == nil:
		return
	case o.Failure != nil:
		fmt.Fprintf(w, "Generation failed [%s]: %s\n", o.Failure.Code, o.Failure.Message)
		if o.Failure.Retryable {
			fmt.Fprintln(w, "  The provider marked this as retryable. Use 'regenerate' to try again.")
		}
	case o.Superseded:
		fmt.Fprintln(w, "Generation superseded by a newer request.")
	case o.Running:
		fmt.Fprintf(w, "Generation %s started.\n", o.GenerationID)
	default:
		fmt.Fprintf(w, "Pending [%s]:\n", o.EventType)
		fmt.Fprintln(w, indent(o.Content))
	}
}

func printSubmit(w io.Writer, r *services.SubmitResult) {
	if r.Event != nil {
		printEvent(w, r.Event)
	}
	printEditorState(w, r.Editor)
	if r.Next != nil {
		fmt.Fprintln(w)
		printOutcome(w, r.Next)
	}
}

func printEvent(w io.Writer, e *entities.CanonicalEvent) {
	label := fmt.Sprintf("Turn %d [%s]", e.Turn, e.Type)
	if e.Speaker != "" {
		label += " " + e.Speaker
	}
	if e.WasEdited() {
		label += " (edited)"
	}
	fmt.Fprintf(w, "Committed %s:\n", label)
	fmt.Fprintln(w, indent(e.Content))
}

func printEditorState(w io.Writer, s entities.DMEditorState) {
	fmt.Fprintf(w, "Editor: %s\n", s.Status)
	if s.Pending != nil {
		fmt.Fprintln(w, "  Pending:")
		fmt.Fprintln(w, indent(indent(*s.Pending)))
	}
	if s.EditedContent != nil {
		fmt.Fprintln(w, "  Edited:")
		fmt.Fprintln(w, indent(indent(*s.EditedContent)))
	}
}

func printRelationship(w io.Writer, r entities.Relationship) {
	fmt.Fprintf(w, "%s -> %s (turn %d)\n", r.FromID, r.ToID, r.UpdatedTurn)
	fmt.Fprintf(w, "  trust %.2f  respect %.2f  affection %.2f\n", r.Trust, r.Respect, r.Affection)
	fmt.Fprintf(w, "  fear %.2f  resentment %.2f  debt %.2f\n", r.Fear, r.Resentment, r.Debt)
}

func printRelationships(w io.Writer, rels []entities.Relationship) {
	if len(rels) == 0 {
		fmt.Fprintln(w, "No relationships found.")
		return
	}
	for i, r := range rels {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printRelationship(w, r)
	}
}

func printPerception(w io.Writer, p entities.PerceivedRelationship) {
	fmt.Fprintf(w, "%s perceives %s (turn %d)\n", p.PerceiverID, p.TargetID, p.LastUpdatedTurn)
	fmt.Fprintf(w, "  trust %s  respect %s  affection %s\n",
		p.PerceivedTrust, p.PerceivedRespect, p.PerceivedAffection)
}

func printLabels(w io.Writer, from, to string, l services.LabelResult) {
	fmt.Fprintf(w, "%s -> %s: %s\n", from, to, l.Primary)
	if l.Summary != "" {
		fmt.Fprintf(w, "  %s\n", l.Summary)
	}
	for _, s := range l.Labels {
		fmt.Fprintf(w, "  %-12s %.2f\n", s.Label, s.Intensity)
	}
}

func printProposals(w io.Writer, proposals []entities.EvolutionProposal) {
	if len(proposals) == 0 {
		fmt.Fprintln(w, "No pending proposals.")
		return
	}
	for _, p := range proposals {
		printProposal(w, p)
	}
}

func printProposal(w io.Writer, p entities.EvolutionProposal) {
	fmt.Fprintf(w, "%s [%s] turn %d\n", p.ID, p.Status, p.Turn)
	for _, c := range p.Changes {
		fmt.Fprintf(w, "  %s -> %s %s %+.2f", c.FromID, c.ToID, c.Dimension, c.Delta)
		if c.Reason != "" {
			fmt.Fprintf(w, " (%s)", c.Reason)
		}
		fmt.Fprintln(w)
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
