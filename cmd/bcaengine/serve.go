package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bcaengine/bcaengine/internal/api"
	"github.com/bcaengine/bcaengine/internal/ingestion"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a local API server over the configured storage and run log",
		Long: `Starts an HTTP server on localhost that accepts runs whose inputs are already
in storage and serves the run log and output tables.

Usage:
  1. Start the API server:  bcaengine serve
  2. Submit a run:          curl -X POST localhost:7700/internal/process -d '{"run_id":"..."}'
  3. List runs:             curl localhost:7700/api/runs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			storage, err := ingestion.NewStorage(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			runs, err := openRunLog(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			svc := ingestion.NewService(storage, runs, cfg.Options(), log)
			h := api.NewHandler(svc, runs, storage, nil, runs.DB().PingContext, log)

			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "bcaengine API server\n")
			fmt.Fprintf(w, "  Storage:    %s\n", cfg.Storage.Backend)
			fmt.Fprintf(w, "  Run log:    %s\n", cfg.RunLog.Driver)
			fmt.Fprintf(w, "  Listening:  http://localhost:%s\n", port)

			return http.ListenAndServe("localhost:"+port, h.Router(""))
		},
	}

	cmd.Flags().StringVar(&port, "port", "7700", "Port to serve on")
	return cmd
}
