package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bjornbryggman/eu4-modding-tools/internal/geography"
	"github.com/spf13/cobra"
)

var (
	importForce   bool
	importGameDir string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Read the map files and store the province geography",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("game-dir") {
			cfg.Game.Dir = importGameDir
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if s.HasGeography() && !importForce {
			return fmt.Errorf("geography already imported from %s (use --force to replace it and its prompts/images)",
				s.GetMeta("source_dir"))
		}

		g := cfg.Game
		opts := geography.Options{
			Sources: geography.Sources{
				Definitions:  g.Path(g.Definitions),
				Positions:    g.Path(g.Positions),
				Areas:        g.Path(g.Areas),
				Regions:      g.Path(g.Regions),
				SuperRegions: g.Path(g.SuperRegions),
				Continents:   g.Path(g.Continents),
				Climate:      g.Path(g.Climate),
				Terrain:      g.Path(g.Terrain),
				ProvincesBMP: g.Path(g.ProvincesBMP),
				TerrainBMP:   g.Path(g.TerrainBMP),
			},
			ClimateKeys:     cfg.Import.ClimateKeys,
			WinterKeys:      cfg.Import.WinterKeys,
			MonsoonKeys:     cfg.Import.MonsoonKeys,
			ContinentIgnore: cfg.Import.ContinentIgnore,
			DefaultClimate:  cfg.Import.DefaultClimate,
			DefaultTerrain:  cfg.Import.DefaultTerrain,
			UseBitmaps:      cfg.Import.UseBitmaps,
		}

		fmt.Printf("Reading map files from %s...\n", g.Dir)
		res, err := geography.Extract(opts)
		if err != nil {
			return fmt.Errorf("extracting geography: %w", err)
		}

		geo := &res.Geography
		if abs, err := filepath.Abs(g.Dir); err == nil {
			geo.SourceDir = abs
		} else {
			geo.SourceDir = g.Dir
		}

		if err := s.WriteGeography(geo); err != nil {
			return fmt.Errorf("storing geography: %w", err)
		}

		for _, w := range res.Warnings {
			logger.Warn().Msg(w)
		}
		if len(res.Skipped) > 0 {
			logVerbose("Provinces in no area: %v", res.Skipped)
		}

		fmt.Printf("Imported %d provinces (%d skipped, %d warnings)\n",
			len(geo.Provinces), len(res.Skipped), len(res.Warnings))
		fmt.Printf("  continents: %d  superregions: %d  regions: %d  areas: %d\n",
			len(geo.Continents), len(geo.SuperRegions), len(geo.Regions), len(geo.Areas))
		fmt.Printf("  climates: %d  terrains: %d\n", len(geo.Climates), len(geo.Terrains))
		if len(res.Warnings) > 0 && !verbose {
			fmt.Fprintf(os.Stderr, "Run with -v to list the warnings.\n")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importForce, "force", false, "Replace an existing import, discarding prompts and images")
	importCmd.Flags().StringVar(&importGameDir, "game-dir", "", "Game or mod directory (overrides game.dir)")
	rootCmd.AddCommand(importCmd)
}
