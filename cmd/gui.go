package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"

	"github.com/bjornbryggman/eu4-modding-tools/internal/guiscale"
	"github.com/spf13/cobra"
)

var (
	guiResolution string
	guiFactor     float64
	guiInput      string
	guiOutput     string
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Calibrate and apply GUI layout scaling",
}

var guiCalibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Derive scaling factors by comparing original and rescaled GUI files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.GUI.ScaledDirs) == 0 {
			return fmt.Errorf("no gui.scaled_dirs configured")
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		var resolutions []string
		for res := range cfg.GUI.ScaledDirs {
			resolutions = append(resolutions, res)
		}
		sort.Strings(resolutions)

		for _, res := range resolutions {
			dir := cfg.GUI.ScaledDirs[res]
			fmt.Printf("Calibrating %s against %s...\n", dir, cfg.GUI.OriginalDir)

			cal, err := guiscale.CalibrateDirs(ctx, cfg.GUI.OriginalDir, dir, res, cfg.GUI.Extensions, guiWorkers())
			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("\nInterrupted")
					return nil
				}
				return fmt.Errorf("calibrating %s: %w", res, err)
			}

			for file, values := range cal.Originals {
				if err := s.WriteOriginalValues(file, values); err != nil {
					return fmt.Errorf("storing original values of %s: %w", file, err)
				}
			}
			if err := s.WriteScalingFactors(cal.Factors); err != nil {
				return fmt.Errorf("storing scaling factors: %w", err)
			}

			for _, rel := range cal.Missing {
				logVerbose("  no %s counterpart: %s", res, rel)
			}
			for rel, err := range cal.Failed {
				fmt.Fprintf(os.Stderr, "  ERROR %s: %v\n", rel, err)
			}
			fmt.Printf("  %s: %d factors from %d files (%d without counterpart, %d failed)\n",
				res, len(cal.Factors), len(cal.Originals), len(cal.Missing), len(cal.Failed))
		}

		fmt.Println("\nDone.")
		return nil
	},
}

var guiScaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "Rescale GUI files with calibrated factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if guiResolution == "" {
			guiResolution = cfg.GUI.Resolution
		}
		if !cmd.Flags().Changed("factor") {
			guiFactor = cfg.GUI.Factor
		}
		if guiInput == "" {
			guiInput = cfg.GUI.OriginalDir
		}
		if guiOutput == "" {
			guiOutput = cfg.GUI.OutputDir
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		global, err := s.GlobalScalingFactors(guiResolution)
		if err != nil {
			return fmt.Errorf("reading global factors: %w", err)
		}
		if len(global) == 0 {
			fmt.Printf("No calibrated factors for %s; using %gx for every property.\n", guiResolution, guiFactor)
		}

		resolve := func(rel string) (guiscale.Resolver, error) {
			perFile, err := s.FileScalingFactors(rel, guiResolution)
			if err != nil {
				return guiscale.Resolver{}, err
			}
			return guiscale.Resolver{PerFile: perFile, Global: global, Default: guiFactor}, nil
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Scaling %s to %s for %s...\n", guiInput, guiOutput, guiResolution)
		sum, err := guiscale.ScaleDir(ctx, guiInput, guiOutput, cfg.GUI.Extensions, guiWorkers(), resolve)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
				return nil
			}
			return err
		}

		for rel, err := range sum.Failed {
			fmt.Fprintf(os.Stderr, "  ERROR %s: %v\n", rel, err)
		}
		fmt.Printf("\nDone. %d/%d files changed, %d values scaled, %d failed.\n",
			sum.Changed, sum.Files, sum.Values, len(sum.Failed))
		return nil
	},
}

var guiReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a JSON report of the calibrated factors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if guiResolution == "" {
			guiResolution = cfg.GUI.Resolution
		}
		if guiOutput == "" {
			guiOutput = cfg.GUI.OutputDir
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		factors, err := s.ReadScalingFactors(guiResolution)
		if err != nil {
			return err
		}
		if len(factors) == 0 {
			fmt.Printf("No factors calibrated for %s (run gui calibrate first).\n", guiResolution)
			return nil
		}
		global, err := s.GlobalScalingFactors(guiResolution)
		if err != nil {
			return err
		}

		path, err := guiscale.NewReport(guiResolution, factors, global).Write(guiOutput)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d factors to %s\n", len(factors), path)
		return nil
	},
}

func guiWorkers() int {
	if cfg.GUI.Workers > 0 {
		return cfg.GUI.Workers
	}
	return runtime.NumCPU()
}

func init() {
	guiCmd.PersistentFlags().StringVar(&guiResolution, "resolution", "", "Target resolution key, e.g. 4k (overrides gui.resolution)")
	guiCmd.PersistentFlags().StringVar(&guiOutput, "output", "", "Output directory (overrides gui.output_dir)")
	guiScaleCmd.Flags().Float64Var(&guiFactor, "factor", 2.0, "Fallback factor for uncalibrated properties")
	guiScaleCmd.Flags().StringVar(&guiInput, "input", "", "Directory of GUI files to scale (overrides gui.original_dir)")

	guiCmd.AddCommand(guiCalibrateCmd, guiScaleCmd, guiReportCmd)
	rootCmd.AddCommand(guiCmd)
}
