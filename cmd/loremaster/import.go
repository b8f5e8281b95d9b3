package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/application/handlers"
)

func newImportCmd() *cobra.Command {
	var opts handlers.ImportOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Seed relationships from JSON or CSV",
		Long: `Imports relationships from a structured file. Each row names from and to
and any dimensions to set; unset dimensions keep their current values.

CSV header: from,to,trust,respect,affection,fear,resentment,debt
JSON: [{"from": "mira", "to": "vell", "trust": 0.8}]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Relationships.HandleImport(cmd.Context(), gameID, args[0], opts)
				if err != nil {
					return fmt.Errorf("importing file: %w", err)
				}
				return emit(result, func(w io.Writer) { printImport(w, result, opts.DryRun) })
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate without saving")

	return cmd
}

func printImport(w io.Writer, result *handlers.ImportResult, dryRun bool) {
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  line %d: %s\n", e.Line, e.Message)
	}
	verb := "Imported"
	if dryRun {
		verb = "Validated"
	}
	fmt.Fprintf(w, "%s %d relationships", verb, result.Imported)
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, ", skipped %d", len(result.Errors))
	}
	fmt.Fprintln(w)
}
