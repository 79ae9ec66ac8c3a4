package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/imagegen"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/ratelimit"
	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	generateOverwrite bool
	generateLimit     int
	generateContinent string
	generateProvinces []string
	generateModel     string
	generateNoDL      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate province images from their prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateModel == "" {
			generateModel = cfg.Image.Model
		}
		ids, err := parseIDs(generateProvinces)
		if err != nil {
			return apperr.Validationf("bad --province value: %v", err)
		}

		client, err := newImageClient()
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		filter := model.ProvinceFilter{
			Continent:    generateContinent,
			HasPrompt:    boolPtr(true),
			IncludeWater: true,
			IDs:          ids,
			Limit:        generateLimit,
		}
		if !generateOverwrite {
			filter.HasImage = boolPtr(false)
		}
		todo, err := s.ReadProvinces(filter)
		if err != nil {
			return fmt.Errorf("reading provinces: %w", err)
		}
		if len(todo) == 0 {
			fmt.Println("All matching provinces with prompts already have images.")
			return nil
		}

		outDir := imageDir()
		download := cfg.Image.Download && !generateNoDL

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Generating %d images using %s...\n", len(todo), generateModel)

		var done, failed int
		for i, p := range todo {
			select {
			case <-ctx.Done():
				fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
				return nil
			default:
			}

			fmt.Printf("  [%d/%d] %s (#%d)...", i+1, len(todo), p.Name, p.ID)

			gen := &model.Generation{
				ID:         uuid.NewString(),
				ProvinceID: p.ID,
				Model:      generateModel,
				Prompt:     p.Prompt,
				Status:     "running",
				CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			}
			if err := s.WriteGeneration(gen); err != nil {
				return fmt.Errorf("recording generation: %w", err)
			}

			start := time.Now()
			url, err := client.Run(ctx, generateModel, predictionInput(cfg.Image.Input, "prompt", p.Prompt))
			if err == nil && download {
				gen.LocalPath, err = client.Download(ctx, url, outDir, strconv.Itoa(p.ID))
			}
			gen.OutputURL = url
			if err != nil {
				if ctx.Err() != nil {
					gen.Status, gen.Error = "canceled", "interrupted"
					recordGeneration(s, gen)
					fmt.Printf("\nInterrupted after %d/%d provinces\n", i, len(todo))
					return nil
				}
				gen.Status, gen.Error = "failed", err.Error()
				recordGeneration(s, gen)
				if apperr.Is(err, apperr.TypeAuth) || apperr.Is(err, apperr.TypeConfig) {
					fmt.Println()
					return err
				}
				fmt.Fprintf(os.Stderr, " ERROR (%s): %v\n", apperr.GetType(err), err)
				failed++
				continue
			}

			gen.Status = "succeeded"
			if err := s.WriteGeneration(gen); err != nil {
				return fmt.Errorf("recording generation: %w", err)
			}
			ref := url
			if gen.LocalPath != "" {
				ref = gen.LocalPath
			}
			if err := s.SetImageURL(p.ID, ref); err != nil {
				fmt.Fprintf(os.Stderr, " ERROR saving: %v\n", err)
				failed++
				continue
			}
			done++
			fmt.Printf(" done (%s)\n", time.Since(start).Round(time.Second))
			logVerbose("    %s", ref)
		}

		fmt.Printf("\nDone. %d images generated, %d failed.\n", done, failed)
		return nil
	},
}

// recordGeneration stores the final state of an attempt that already failed,
// logging rather than returning a store error.
func recordGeneration(s *store.Store, gen *model.Generation) {
	if err := s.WriteGeneration(gen); err != nil {
		logger.Error().Err(err).Str("generation", gen.ID).Str("status", gen.Status).Msg("recording generation")
	}
}

func newImageClient() (*imagegen.Client, error) {
	client, err := imagegen.NewClient(cfg.Image.Endpoint, cfg.Image.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	client.PollInterval = cfg.Image.PollInterval
	client.Timeout = cfg.Image.Timeout
	client.Limiter = ratelimit.New(cfg.Image.RateLimit)
	return client, nil
}

func imageDir() string {
	if filepath.IsAbs(cfg.Image.OutputDir) {
		return cfg.Image.OutputDir
	}
	return filepath.Join(dataDir, cfg.Image.OutputDir)
}

// predictionInput copies the configured model parameters and sets key to value.
func predictionInput(base map[string]any, key string, value any) map[string]any {
	in := make(map[string]any, len(base)+1)
	maps.Copy(in, base)
	in[key] = value
	return in
}

func init() {
	generateCmd.Flags().BoolVar(&generateOverwrite, "overwrite", false, "Regenerate provinces that already have an image")
	generateCmd.Flags().IntVar(&generateLimit, "limit", 0, "Generate at most this many images")
	generateCmd.Flags().StringVar(&generateContinent, "continent", "", "Only provinces on this continent")
	generateCmd.Flags().StringSliceVar(&generateProvinces, "province", nil, "Only these province ids (repeatable or comma-separated)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Image model (overrides image.model)")
	generateCmd.Flags().BoolVar(&generateNoDL, "no-download", false, "Keep the remote URL instead of downloading the image")
	rootCmd.AddCommand(generateCmd)
}
