package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Manage games",
	}

	cmd.AddCommand(
		newGamesCreateCmd(),
		newGamesListCmd(),
		newGamesShowCmd(),
	)

	return cmd
}

func newGamesCreateCmd() *cobra.Command {
	var input handlers.CreateGameInput

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new game",
		Long: `Creates a game with an optional starting area and scene.

Examples:
  loremaster games create "Saltmarsh"
  loremaster games create "Saltmarsh" --area Coast --scene Lighthouse --playback auto`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Name = args[0]
			return withDeps(cmd.Context(), func(d *Deps) error {
				game, err := d.Games.HandleCreate(cmd.Context(), input)
				if err != nil {
					return fmt.Errorf("creating game: %w", err)
				}
				return emit(game, func(w io.Writer) {
					fmt.Fprintln(w, "Created game:")
					printGame(w, game)
				})
			})
		},
	}

	cmd.Flags().StringVar(&input.Area, "area", "", "Starting area name")
	cmd.Flags().StringVar(&input.Scene, "scene", "", "Starting scene name")
	cmd.Flags().StringVar(&input.PlaybackMode, "playback", "", "Playback mode (auto, paused, stepping, stopped)")

	return cmd
}

func newGamesListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				games, err := d.Games.HandleList(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return emit(games, func(w io.Writer) { printGames(w, games) })
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultListLimit, "Maximum games to list")

	return cmd
}

func newGamesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the full DM snapshot of a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				state, err := d.Games.HandleShow(cmd.Context(), gameID)
				if err != nil {
					return err
				}
				return emit(state, func(w io.Writer) { printSnapshot(w, state) })
			})
		},
	}
}

func printSnapshot(w io.Writer, s *entities.FullGameState) {
	printGame(w, &s.Game)
	if s.Area != nil {
		fmt.Fprintf(w, "  Area: %s\n", s.Area.Name)
	}
	if s.Scene != nil {
		fmt.Fprintf(w, "  Scene: %s\n", s.Scene.Name)
	}
	fmt.Fprintf(w, "  Characters: %d  Traits: %d  Relationships: %d\n",
		len(s.Characters), len(s.Traits), len(s.Relationships))
	fmt.Fprintln(w)
	for i := range s.Events {
		e := &s.Events[i]
		fmt.Fprintf(w, "[%d] %s: %s\n", e.Turn, e.Type, e.Content)
	}
	printEditorState(w, s.Editor)
}
