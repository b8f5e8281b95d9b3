package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
	"github.com/ersonp/loremaster/internal/domain/entities"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive DM console for one game",
		Long: `Runs the editorial cycle interactively. Type 'help' for commands.
Relationship proposals are processed after every commit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withInternalDeps(cmd.Context(), depsOptions{}, func(d *internalDeps) error {
				c := &console{
					gameID: gameID,
					games:  d.Games,
					editor: d.Editor,
					after:  d.worker.Drain,
					out:    os.Stdout,
				}
				return c.run(cmd.Context(), os.Stdin)
			})
		},
	}
}

// console holds the interactive session state.
type console struct {
	gameID string
	games  *handlers.GameHandler
	editor *handlers.EditorHandler
	// after runs once a command has finished.
	after func(context.Context)
	out   io.Writer
}

// consoleCommand is one parsed input line.
type consoleCommand struct {
	name string
	arg  string
}

var errQuit = errors.New("quit")

const consoleHelp = `Commands:
  generate             generate the next event
  accept               commit the pending content
  edit <text>          replace the pending content
  regenerate [hint]    discard and generate again
  inject <text>        commit DM-authored narration
  say <speaker>: <text>
                       commit DM-authored dialogue
  state                show the editor state
  view [party|dm]      show the game
  play|step|pause|stop playback controls
  quit                 leave the console`

func parseConsoleLine(line string) (consoleCommand, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return consoleCommand{}, false
	}
	name, arg, _ := strings.Cut(line, " ")
	return consoleCommand{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(c.out, "Loremaster console for game %s. Type 'help' for commands.\n", c.gameID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		cmd, ok := parseConsoleLine(scanner.Text())
		if !ok {
			continue
		}
		err := c.exec(ctx, cmd)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		if c.after != nil {
			c.after(ctx)
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func (c *console) exec(ctx context.Context, cmd consoleCommand) error {
	switch cmd.name {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "generate", "gen":
		outcome, err := c.editor.HandleGenerate(ctx, c.gameID)
		if err != nil {
			return err
		}
		printOutcome(c.out, outcome)
		return nil
	case "accept":
		return c.submit(ctx, handlers.ActionInput{Type: string(entities.ActionAccept)})
	case "edit":
		return c.submit(ctx, handlers.ActionInput{Type: string(entities.ActionEdit), Content: cmd.arg})
	case "regenerate", "regen":
		return c.submit(ctx, handlers.ActionInput{Type: string(entities.ActionRegenerate), Guidance: cmd.arg})
	case "inject":
		return c.submit(ctx, handlers.ActionInput{Type: string(entities.ActionInject), Content: cmd.arg})
	case "say":
		speaker, text, ok := strings.Cut(cmd.arg, ":")
		if !ok {
			return errors.New("usage: say <speaker>: <text>")
		}
		return c.submit(ctx, handlers.ActionInput{
			Type:      string(entities.ActionInject),
			Content:   strings.TrimSpace(text),
			EventType: string(entities.EventDialogue),
			Speaker:   strings.TrimSpace(speaker),
		})
	case "state":
		state, err := c.editor.HandleState(ctx, c.gameID)
		if err != nil {
			return err
		}
		printEditorState(c.out, state)
		return nil
	case "view":
		state, err := c.games.HandleView(ctx, c.gameID, cmd.arg, "")
		if err != nil {
			return err
		}
		printView(c.out, state)
		return nil
	case "play", "step", "pause", "stop":
		result, err := c.editor.HandlePlayback(ctx, c.gameID, handlers.PlaybackCommand(cmd.name))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Playback: %s\n", result.Mode)
		printOutcome(c.out, result.Generation)
		return nil
	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd.name)
	}
}

func (c *console) submit(ctx context.Context, input handlers.ActionInput) error {
	result, err := c.editor.HandleAction(ctx, c.gameID, input)
	if err != nil {
		return err
	}
	printSubmit(c.out, result)
	return nil
}
