package cmd

import (
	"fmt"
	"os"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/patcher"
	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/spf13/cobra"
)

var (
	patchProvinces []string
	patchInPlace   bool
	patchDryRun    bool
	patchOutput    string
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Give provinces their own terrain categories and update script references",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(patchProvinces)
		if err != nil {
			return apperr.Validationf("bad --province value: %v", err)
		}
		if patchOutput == "" {
			patchOutput = cfg.Patch.OutputDir
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		targets, missing, err := patchTargets(s, ids)
		if err != nil {
			return fmt.Errorf("reading provinces: %w", err)
		}
		for _, id := range missing {
			fmt.Fprintf(os.Stderr, "  WARNING: no province %d\n", id)
		}
		if len(targets) == 0 {
			fmt.Println("No provinces to patch (generate images first or pass --province).")
			return nil
		}

		p, err := patcher.New(patcher.Options{
			GameDir:         cfg.Game.Dir,
			TerrainFile:     cfg.Game.Terrain,
			ScriptDirs:      cfg.Patch.ScriptDirs,
			LocalisationDir: cfg.Patch.LocalisationDir,
			OutputDir:       patchOutput,
			Prefix:          cfg.Patch.Prefix,
			InPlace:         patchInPlace,
			DryRun:          patchDryRun,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Patching %d provinces...\n", len(targets))
		rep, err := p.Run(targets)
		if err != nil {
			return fmt.Errorf("patching: %w", err)
		}

		for _, c := range rep.Created {
			logVerbose("  + %s (from %s)", c.Name, c.Terrain)
		}
		for _, w := range rep.Warnings {
			logger.Warn().Msg(w)
		}
		for _, f := range rep.Files {
			fmt.Printf("  %-50s %d changes\n", f.Path, f.Changes)
		}

		verb := "Wrote"
		if patchDryRun {
			verb = "Would write"
		}
		fmt.Printf("\nDone. %d categories created, %d already present, %d warnings.\n",
			len(rep.Created), len(rep.Existing), len(rep.Warnings))
		if len(rep.Files) > 0 {
			dest := patchOutput
			if patchInPlace {
				dest = cfg.Game.Dir
			}
			fmt.Printf("%s %d files under %s\n", verb, len(rep.Files), dest)
		}
		return nil
	},
}

// patchTargets selects the provinces to patch: the given ids, or every
// province with an image. Sea and lake provinces are included. Ids with no
// province are returned in missing.
func patchTargets(s *store.Store, ids []int) ([]patcher.Target, []int, error) {
	filter := model.ProvinceFilter{IDs: ids, IncludeWater: true}
	if len(ids) == 0 {
		filter.HasImage = boolPtr(true)
	}
	provinces, err := s.ReadProvinces(filter)
	if err != nil {
		return nil, nil, err
	}

	found := make(map[int]bool, len(provinces))
	targets := make([]patcher.Target, len(provinces))
	for i, p := range provinces {
		targets[i] = patcher.Target{ProvinceID: p.ID, Terrain: p.Terrain}
		found[p.ID] = true
	}
	var missing []int
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return targets, missing, nil
}

func init() {
	patchCmd.Flags().StringSliceVar(&patchProvinces, "province", nil, "Only these province ids (default: provinces with an image)")
	patchCmd.Flags().BoolVar(&patchInPlace, "in-place", false, "Edit the game files directly")
	patchCmd.Flags().BoolVar(&patchDryRun, "dry-run", false, "Report changes without writing")
	patchCmd.Flags().StringVar(&patchOutput, "output", "", "Output directory (overrides patch.output_dir)")
	rootCmd.AddCommand(patchCmd)
}
