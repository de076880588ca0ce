package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/krotov/internal/history"
	"github.com/san-kum/krotov/internal/server"
	"github.com/san-kum/krotov/internal/storage"
)

func serveRuns(cmd *cobra.Command, args []string) error {
	log := newLogger()

	db, err := history.Open(historyPath())
	if err != nil {
		return err
	}
	defer db.Close()

	r := server.NewRouter(server.Options{
		Store:    storage.New(dataDir),
		History:  db,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log,
	})

	log.Info().Str("addr", listenAddr).Str("data", dataDir).Msg("serving runs")
	return r.Run(listenAddr)
}
