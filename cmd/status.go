package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		provinces := s.ProvinceCount()

		fmt.Printf("Pipeline Status\n")
		fmt.Printf("===============\n")
		if at := s.GetMeta("imported_at"); at != "" {
			fmt.Printf("Imported:     %s from %s\n", at, s.GetMeta("source_dir"))
		} else {
			fmt.Printf("Imported:     never (run import first)\n")
		}
		fmt.Printf("Provinces:    %d\n", provinces)
		fmt.Printf("Hierarchy:    %s\n", hierarchySummary(s))
		fmt.Printf("Prompts:      %d / %d\n", s.PromptCount(), provinces)
		fmt.Printf("Images:       %d / %d\n", s.ImageCount(), provinces)
		fmt.Printf("Descriptions: %d / %d\n", s.DescriptionCount(), provinces)
		fmt.Printf("Generations:  %d succeeded, %d failed\n",
			s.GenerationCount("succeeded"), s.GenerationCount("failed"))

		progress, err := s.ProgressByContinent()
		if err != nil {
			return err
		}
		if len(progress) > 0 {
			fmt.Printf("\nPer-Continent Breakdown\n")
			fmt.Printf("-----------------------\n")

			var names []string
			for name := range progress {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				p := progress[name]
				fmt.Printf("  %-22s  provinces: %4d  prompts: %4d  images: %4d\n", name, p[0], p[1], p[2])
			}
		}

		if counts, err := s.OriginalValueCounts(); err == nil && len(counts) > 0 {
			total := 0
			for _, n := range counts {
				total += n
			}
			fmt.Printf("\nGUI calibration: %d original values in %d files\n", total, len(counts))
		}
		return nil
	},
}

// hierarchySummary lists the row count of each level above provinces.
func hierarchySummary(s *store.Store) string {
	tables := []struct{ table, label string }{
		{"continents", "continents"},
		{"super_regions", "superregions"},
		{"regions", "regions"},
		{"areas", "areas"},
		{"climates", "climates"},
		{"terrains", "terrains"},
	}
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("%d %s", s.TableCount(t.table), t.label)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
