package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/loremaster/internal/domain/entities"
)

func newProposalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "Review relationship evolution proposals",
	}

	cmd.AddCommand(
		newProposalsListCmd(),
		newProposalResolveCmd("approve", "Apply a proposal's changes"),
		newProposalResolveCmd("reject", "Discard a proposal"),
	)

	return cmd
}

func newProposalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := requireGame()
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				proposals, err := d.Proposals.HandleList(cmd.Context(), gameID)
				if err != nil {
					return err
				}
				return emit(proposals, func(w io.Writer) { printProposals(w, proposals) })
			})
		},
	}
}

func newProposalResolveCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <proposal-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				var (
					p   *entities.EvolutionProposal
					err error
				)
				if verb == "approve" {
					p, err = d.Proposals.HandleApprove(cmd.Context(), args[0])
				} else {
					p, err = d.Proposals.HandleReject(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				return emit(p, func(w io.Writer) { printProposal(w, *p) })
			})
		},
	}
}
