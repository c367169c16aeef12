package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/pagination"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// exportFile is the document written by the export command.
type exportFile struct {
	ExportedAt time.Time      `json:"exported_at"`
	Complete   bool           `json:"complete"`
	Count      int            `json:"count"`
	Articles   []feed.Article `json:"articles"`
}

// newExportCmd fetches the whole collection with the parallel batch fetcher
// and writes it as JSON.
func newExportCmd(opts *options) *cobra.Command {
	var (
		out         string
		maxArticles int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all articles as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *opts, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			batchCfg := a.cfg.ExportOptions(maxArticles)
			if concurrency > 0 {
				batchCfg.MaxConcurrency = concurrency
			}

			bf := pagination.NewBatchFetcher(pagination.NewFetcher(a.client), batchCfg)
			articles, fetchErr := bf.FetchAll(ctx)
			if fetchErr != nil && len(articles) == 0 {
				return fmt.Errorf("export: %w", fetchErr)
			}

			doc := exportFile{
				ExportedAt: time.Now().UTC(),
				Complete:   fetchErr == nil,
				Count:      len(articles),
				Articles:   articles,
			}

			if out == "" || out == "-" {
				if err := writeJSON(cmd.OutOrStdout(), doc); err != nil {
					return err
				}
			} else {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				if err := writeJSON(f, doc); err != nil {
					f.Close()
					return fmt.Errorf("write %s: %w", out, err)
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", out, err)
				}
				log.Info().Str("path", out).Int("articles", len(articles)).Msg("Export written")
			}

			if fetchErr != nil {
				return fmt.Errorf("export incomplete: %w", fetchErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout)")
	cmd.Flags().IntVar(&maxArticles, "max", 0, "maximum number of articles (0 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel requests (overrides export.max_concurrency)")

	return cmd
}
