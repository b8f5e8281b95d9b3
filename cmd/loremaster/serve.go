package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/infrastructure/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and WebSocket views",
		Long: `Starts the HTTP API with the DM, party and player WebSocket feeds.
Generations run in the background; their results arrive over /ws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, addr string) error {
	return withInternalDeps(ctx, depsOptions{serve: true}, func(d *internalDeps) error {
		if addr == "" {
			addr = d.Config.Server.Addr
		}

		api := httpapi.NewAPI(httpapi.Deps{
			Games:         d.Games,
			Editor:        d.Editor,
			Relationships: d.Relationships,
			Proposals:     d.Proposals,
			WebSocket:     d.hub.ServeWS,
			Metrics:       d.metrics.Handler(),
		}, d.Logger)
		server := httpapi.NewServer(addr, api, d.Logger)

		workerCtx, stopWorker := context.WithCancel(ctx)
		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			_ = d.worker.Run(workerCtx)
		}()

		d.Logger.Info("loremaster serving", zap.String("addr", addr), zap.Bool("evolution", d.Config.Editor.Evolution))
		err := server.Run(ctx)

		stopWorker()
		<-workerDone
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
}
