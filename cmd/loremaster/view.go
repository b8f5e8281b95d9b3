package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/domain/services"
)

func newViewCmd() *cobra.Command {
	var character string

	cmd := &cobra.Command{
		Use:   "view [dm|party|player]",
		Short: "Show a game as one audience sees it",
		Long: `Prints the game projected for an audience. The player view needs
--character and shows only what that character knows.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dm", "party", "player"},
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			view := ""
			if len(args) == 1 {
				view = args[0]
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				state, err := d.Games.HandleView(cmd.Context(), gameID, view, character)
				if err != nil {
					return err
				}
				return emit(state, func(w io.Writer) { printView(w, state) })
			})
		},
	}

	cmd.Flags().StringVarP(&character, "character", "c", "", "Character ID for the player view")

	return cmd
}

func printView(w io.Writer, state services.FilteredGameState) {
	switch v := state.(type) {
	case services.DMView:
		printSnapshot(w, &v.FullGameState)
	case services.PartyView:
		printNarration(w, v.Narration)
		for _, a := range v.Avatars {
			fmt.Fprintf(w, "  * %s\n", a.Name)
		}
	case services.PlayerView:
		fmt.Fprintf(w, "%s\n", v.Name)
		printNarration(w, v.Narration)
		for _, t := range v.OwnTraits {
			fmt.Fprintf(w, "  trait: %s\n", t.Name)
		}
		for _, pt := range v.PartyTraits {
			for _, t := range pt.Traits {
				fmt.Fprintf(w, "  %s is %s\n", pt.Name, t.Name)
			}
		}
		for _, r := range v.Relationships {
			name := r.TargetName
			if name == "" {
				name = r.TargetID
			}
			fmt.Fprintf(w, "  %s: %s (%s)\n", name, r.Label, r.Summary)
		}
	default:
		_ = printJSON(w, state)
	}
}

func printNarration(w io.Writer, entries []services.NarrationEntry) {
	for _, e := range entries {
		if e.Speaker != "" {
			fmt.Fprintf(w, "[%d] %s: %s\n", e.Turn, e.Speaker, e.Content)
			continue
		}
		fmt.Fprintf(w, "[%d] %s\n", e.Turn, e.Content)
	}
}
