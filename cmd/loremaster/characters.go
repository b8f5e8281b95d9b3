package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
)

type characterFlags struct {
	avatar  string
	inParty bool
	sheet   string
}

func newCharactersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "characters",
		Short: "Manage characters",
	}

	cmd.AddCommand(newCharactersAddCmd())

	return cmd
}

func newCharactersAddCmd() *cobra.Command {
	var flags characterFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a party member or NPC",
		Long: `Adds a character. --sheet takes a JSON object of character-sheet
fields that only the DM view shows.

Examples:
  loremaster characters add Mira --party --avatar https://example.com/mira.png
  loremaster characters add "Captain Vell" --sheet '{"hp": 30}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			input, err := flags.input(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				char, err := d.Games.HandleAddCharacter(cmd.Context(), gameID, input)
				if err != nil {
					return err
				}
				return emit(char, func(w io.Writer) {
					role := "NPC"
					if char.InParty {
						role = "party member"
					}
					fmt.Fprintf(w, "Added %s %s (%s)\n", role, char.Name, char.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&flags.avatar, "avatar", "", "Avatar URL")
	cmd.Flags().BoolVar(&flags.inParty, "party", false, "Character is a party member")
	cmd.Flags().StringVar(&flags.sheet, "sheet", "", "Character sheet as a JSON object")

	return cmd
}

func (f characterFlags) input(name string) (handlers.CharacterInput, error) {
	input := handlers.CharacterInput{
		Name:      name,
		AvatarURL: f.avatar,
		InParty:   f.inParty,
	}
	if f.sheet != "" {
		if err := json.Unmarshal([]byte(f.sheet), &input.Sheet); err != nil {
			return handlers.CharacterInput{}, fmt.Errorf("parsing --sheet: %w", err)
		}
	}
	return input, nil
}

func newTraitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traits",
		Short: "Manage character traits",
	}

	cmd.AddCommand(newTraitsAddCmd())

	return cmd
}

func newTraitsAddCmd() *cobra.Command {
	var input handlers.TraitInput

	cmd := &cobra.Command{
		Use:   "add <character> <trait>",
		Short: "Attach a trait to a character",
		Long: `Attaches a trait to a character named by ID or name. Reputation traits
such as feared or legendary are visible to other party members.

Examples:
  loremaster traits add Mira brave
  loremaster traits add Mira notorious --description "Burned the harbor" --status active`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			input.Character = args[0]
			input.Name = args[1]
			return withDeps(cmd.Context(), func(d *Deps) error {
				trait, err := d.Games.HandleAddTrait(cmd.Context(), gameID, input)
				if err != nil {
					return err
				}
				return emit(trait, func(w io.Writer) {
					fmt.Fprintf(w, "Added trait %s [%s] at turn %d\n", trait.Name, trait.Status, trait.AcquiredAt)
				})
			})
		},
	}

	cmd.Flags().StringVar(&input.Description, "description", "", "Trait description")
	cmd.Flags().StringVar(&input.Status, "status", "", "Trait status (active, dormant, removed, proposed)")

	return cmd
}
