package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchFormat string
	searchInput  string
	searchOutput string
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find a term (case-insensitive) in game files and write the matches to a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchInput == "" {
			searchInput = cfg.Game.Dir
		}
		term := strings.Join(args, " ")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Searching *.%s under %s for %q...\n", strings.TrimPrefix(searchFormat, "."), searchInput, term)
		results, err := search.Dir(ctx, searchInput, term, searchFormat)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
				return nil
			}
			return err
		}

		path, err := search.WriteFile(searchOutput, results)
		if err != nil {
			return err
		}

		matches := 0
		for _, fm := range results {
			matches += len(fm.Matches)
			logVerbose("  %s: %d", fm.Path, len(fm.Matches))
		}
		fmt.Printf("\nDone. %d matching lines in %d files, written to %s\n", matches, len(results), path)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFormat, "format", "txt", "File extension to search")
	searchCmd.Flags().StringVar(&searchInput, "input", "", "Directory to search (default: game.dir)")
	searchCmd.Flags().StringVar(&searchOutput, "output", search.DefaultOutput, "Results file, or a directory to hold "+search.DefaultOutput)
	rootCmd.AddCommand(searchCmd)
}
