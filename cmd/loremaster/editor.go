package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the next event for DM review",
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				outcome, err := d.Editor.HandleGenerate(cmd.Context(), gameID)
				if err != nil {
					return err
				}
				return emit(outcome, func(w io.Writer) { printOutcome(w, outcome) })
			})
		},
	}
}

func newAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Commit the pending content as a canonical event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitAction(cmd.Context(), handlers.ActionInput{Type: string(entities.ActionAccept)})
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <content>",
		Short: "Replace the pending content before accepting",
		Long: `Stores the DM's revision of the pending content. The original text is
kept and recorded on the event once it is accepted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitAction(cmd.Context(), handlers.ActionInput{
				Type:    string(entities.ActionEdit),
				Content: strings.Join(args, " "),
			})
		},
	}
}

func newRegenerateCmd() *cobra.Command {
	var guidance string

	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Discard the pending content and generate again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitAction(cmd.Context(), handlers.ActionInput{
				Type:     string(entities.ActionRegenerate),
				Guidance: guidance,
			})
		},
	}

	cmd.Flags().StringVar(&guidance, "guidance", "", "Direction for the next attempt")

	return cmd
}

type injectFlags struct {
	eventType string
	speaker   string
	scene     string
	witnesses []string
}

func newInjectCmd() *cobra.Command {
	var flags injectFlags

	cmd := &cobra.Command{
		Use:   "inject <content>",
		Short: "Commit DM-authored content directly",
		Long: `Commits content without generation. Only allowed when nothing is pending.

Examples:
  loremaster inject "A storm rolls in from the west." -g <game>
  loremaster inject "Stand down." --type dialogue --speaker Captain --witness Mira`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitAction(cmd.Context(), handlers.ActionInput{
				Type:      string(entities.ActionInject),
				Content:   strings.Join(args, " "),
				EventType: flags.eventType,
				Speaker:   flags.speaker,
				SceneID:   flags.scene,
				Witnesses: flags.witnesses,
			})
		},
	}

	cmd.Flags().StringVar(&flags.eventType, "type", "", "Event type (default dm_injection)")
	cmd.Flags().StringVar(&flags.speaker, "speaker", "", "Speaker for dialogue")
	cmd.Flags().StringVar(&flags.scene, "scene", "", "Scene ID to move to")
	cmd.Flags().StringSliceVar(&flags.witnesses, "witness", nil, "Character IDs that witnessed the event")

	return cmd
}

func submitAction(ctx context.Context, input handlers.ActionInput) error {
	gameID, err := requireGame()
	if err != nil {
		return err
	}
	return withDeps(ctx, func(d *Deps) error {
		result, err := d.Editor.HandleAction(ctx, gameID, input)
		if err != nil {
			return err
		}
		return emit(result, func(w io.Writer) { printSubmit(w, result) })
	})
}

func newPlaybackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "playback <play|step|pause|stop>",
		Short: "Control how accepted events chain into new generations",
		Long: `play   switch to auto and generate if idle
step   generate exactly one event, then stay in stepping mode
pause  stop chaining after the current review
stop   stop chaining`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"play", "step", "pause", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Editor.HandlePlayback(cmd.Context(), gameID, handlers.PlaybackCommand(args[0]))
				if err != nil {
					return err
				}
				return emit(result, func(w io.Writer) {
					fmt.Fprintf(w, "Playback: %s\n", result.Mode)
					printOutcome(w, result.Generation)
				})
			})
		},
	}
}
