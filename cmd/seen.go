package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tender_spider/internal/db"
	"tender_spider/internal/logger"
	"tender_spider/internal/models"
)

func newSeenCmd(opts *options) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Print the seen-store as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Config{Level: cfg.LogLevel()})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			backend, err := db.Open(cmd.Context(), cfg.Store, log)
			if err != nil {
				return fmt.Errorf("open seen store: %w", err)
			}
			store := db.NewStore(backend, cfg.Store.Capacity, log)
			defer func() { _ = store.Close(cmd.Context()) }()

			store.Load(cmd.Context())
			renderSeen(cmd.OutOrStdout(), db.Records(store.Snapshot()), bucket)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "only show this bucket")
	return cmd
}

func renderSeen(w io.Writer, records []models.SeenRecord, bucket string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Bucket", "Identity", "First seen"})

	shown := 0
	for _, r := range records {
		if bucket != "" && r.Bucket != bucket {
			continue
		}
		t.AppendRow(table.Row{r.Bucket, r.Identity, r.FirstSeen})
		shown++
	}
	t.AppendFooter(table.Row{"", "Total", shown})
	t.Render()
}
