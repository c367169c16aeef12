package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/pagination"
	"github.com/spf13/cobra"
)

// newListCmd prints the feed page by page through the same controller the
// interactive view uses.
func newListCmd(opts *options) *cobra.Command {
	var (
		pages   int
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the first pages of the feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages <= 0 {
				return fmt.Errorf("--pages must be > 0 (got %d)", pages)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *opts, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl, err := feed.NewController(pagination.NewFetcher(a.client), a.cfg.FeedOptions())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			// Refresh drops cached pages and fetches the first page itself.
			if refresh {
				if _, err := ctrl.Refresh(ctx); err != nil {
					return err
				}
				pages--
			}

			for i := 0; i < pages && ctrl.HasMore(); i++ {
				if _, err := ctrl.LoadMore(ctx); err != nil {
					if len(ctrl.Items()) == 0 {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
					break
				}
			}

			snap := ctrl.Snapshot()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snap.Items)
			}
			printList(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "number of pages to fetch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached pages before fetching")

	return cmd
}

func printList(w io.Writer, snap feed.Snapshot) {
	if len(snap.Items) == 0 {
		fmt.Fprintln(w, "No news articles found.")
		return
	}

	for i, a := range snap.Items {
		meta := []string{}
		if a.Source != "" {
			meta = append(meta, a.Source)
		}
		if !a.PublishedAt.IsZero() {
			meta = append(meta, a.PublishedAt.Format("2006-01-02"))
		}

		fmt.Fprintf(w, "%3d. %s\n", i+1, a.Title)
		if len(meta) > 0 {
			fmt.Fprintf(w, "     %s\n", strings.Join(meta, " · "))
		}
		fmt.Fprintf(w, "     %s\n", a.URL)
	}

	if snap.HasMore {
		fmt.Fprintf(w, "\nShowing %d of %d articles\n", len(snap.Items), snap.Total)
	} else {
		fmt.Fprintln(w, "\nYou've reached the end of the articles")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
