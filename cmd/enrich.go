package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/wiki"
	"github.com/spf13/cobra"
)

var (
	enrichLimit     int
	enrichOverwrite bool
	enrichContinent string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch province descriptions from the wiki",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		filter := model.ProvinceFilter{Continent: enrichContinent, Limit: enrichLimit}
		if !enrichOverwrite {
			filter.HasDesc = boolPtr(false)
		}
		todo, err := s.ReadProvinces(filter)
		if err != nil {
			return fmt.Errorf("reading provinces: %w", err)
		}
		if len(todo) == 0 {
			fmt.Println("All matching provinces already have descriptions.")
			return nil
		}

		client := wiki.NewClient(cfg.Wiki.BaseURL, cfg.Wiki.RateLimit)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Fetching descriptions for %d provinces from %s...\n", len(todo), cfg.Wiki.BaseURL)

		var done, missing, failed int
		for i, p := range todo {
			select {
			case <-ctx.Done():
				fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
				return nil
			default:
			}

			fmt.Printf("  [%d/%d] %s...", i+1, len(todo), p.Name)

			desc, err := client.Description(ctx, p.Name)
			switch {
			case apperr.Is(err, apperr.TypeNotFound):
				fmt.Println(" no page")
				missing++
				continue
			case err != nil:
				if ctx.Err() != nil {
					fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
					return nil
				}
				fmt.Fprintf(os.Stderr, " ERROR: %v\n", err)
				failed++
				continue
			}

			if err := s.SetDescription(p.ID, desc); err != nil {
				fmt.Fprintf(os.Stderr, " ERROR saving: %v\n", err)
				failed++
				continue
			}
			done++
			fmt.Printf(" %d chars\n", len(desc))
		}

		fmt.Printf("\nDone. %d descriptions saved, %d without a page, %d failed.\n", done, missing, failed)
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "Fetch at most this many provinces")
	enrichCmd.Flags().BoolVar(&enrichOverwrite, "overwrite", false, "Refetch provinces that already have a description")
	enrichCmd.Flags().StringVar(&enrichContinent, "continent", "", "Only provinces on this continent")
	rootCmd.AddCommand(enrichCmd)
}
