package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

func newRelateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relate <from> <to> <dimension> <value>",
		Short: "Set one dimension of a relationship",
		Long: `Sets a true relationship dimension. Every dimension takes values in [0, 1].

Examples:
  loremaster relate mira vell trust 0.8
  loremaster relate vell mira fear 0.2`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[3], err)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				rel, err := d.Relationships.HandleSet(cmd.Context(), gameID, args[0], args[1], args[2], value)
				if err != nil {
					return err
				}
				return emit(rel, func(w io.Writer) { printRelationship(w, rel) })
			})
		},
	}
}

func newPerceiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "perceive <perceiver> <target> <dimension> <value|unknown>",
		Short: "Set what a character believes about a relationship",
		Long: `Sets the perceiver's belief about how the target regards them. Only
trust, respect and affection can be perceived. Use "unknown" to clear a belief.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				p, err := d.Relationships.HandlePerceive(cmd.Context(), gameID, args[0], args[1], args[2], args[3])
				if err != nil {
					return err
				}
				return emit(p, func(w io.Writer) { printPerception(w, p) })
			})
		},
	}
}

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels <from> <to>",
		Short: "Describe a relationship in qualitative labels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				labels, err := d.Relationships.HandleLabels(cmd.Context(), gameID, args[0], args[1])
				if err != nil {
					return err
				}
				return emit(labels, func(w io.Writer) { printLabels(w, args[0], args[1], labels) })
			})
		},
	}
}

func newRelationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List and search relationships",
	}

	cmd.AddCommand(
		newRelationsListCmd(),
		newRelationsFindCmd(),
		newRelationsRemoveCmd(),
	)

	return cmd
}

func newRelationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every relationship in a game",
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				rels, err := d.Relationships.HandleList(cmd.Context(), gameID)
				if err != nil {
					return err
				}
				return emit(rels, func(w io.Writer) { printRelationships(w, rels) })
			})
		},
	}
}

func newRelationsFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <dimension> <op> <value>",
		Short: "Find relationships by threshold",
		Long: `Finds relationships whose dimension compares to value. Operators are
<, <=, >, >= and =.

Examples:
  loremaster relations find trust '>=' 0.7
  loremaster relations find fear '>' 0.5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[2], err)
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				rels, err := d.Relationships.HandleFind(cmd.Context(), gameID, args[0], args[1], value)
				if err != nil {
					return err
				}
				return emit(rels, func(w io.Writer) { printRelationships(w, rels) })
			})
		},
	}
}

func newRelationsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entity>",
		Short: "Delete every relationship and perception involving an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Relationships.HandleRemoveEntity(cmd.Context(), gameID, args[0]); err != nil {
					return err
				}
				fmt.Printf("Removed relationships for %s\n", args[0])
				return nil
			})
		},
	}
}
