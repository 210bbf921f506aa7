package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/swipedeck/internal/config"
	"github.com/abelbrown/swipedeck/internal/otel"
	"github.com/abelbrown/swipedeck/internal/sanitize"
)

func newFetchCmd(cfg *config.Config) *cobra.Command {
	var pages, size int
	var reset bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch pages headlessly and print items as JSON lines",
		Long: `fetch runs the page source without the TUI and prints one JSON object
per item. Fallback pages are printed too, so this shows exactly what the deck
would receive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages <= 0 || size <= 0 {
				return fmt.Errorf("--pages and --size must be positive")
			}

			s, err := openSession(*cfg)
			if err != nil {
				return err
			}
			defer s.shutdown()

			clean := sanitize.New()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := 0; i < pages; i++ {
				if reset && i > 0 {
					s.source.Reset()
				}
				page, err := s.source.FetchPage(cmd.Context(), size)
				if err != nil {
					return err
				}
				for _, it := range page {
					it.Title = clean.Sanitize(it.Title)
					it.Body = clean.Sanitize(it.Body)
					if err := enc.Encode(it); err != nil {
						return err
					}
				}
			}

			s.end()
			stats := s.ring.Stats()
			stored, err := s.store.PageCount()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d remote, %d fallback, %d cached, %d pages stored\n",
				stats[otel.KindFetchComplete], stats[otel.KindFetchFallback], stats[otel.KindCacheHit], stored)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	cmd.Flags().IntVar(&size, "size", cfg.BatchSize, "items per page")
	cmd.Flags().BoolVar(&reset, "reset", false, "rewind the cursor between pages")
	return cmd
}
