package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/guiscale"
	"github.com/bjornbryggman/eu4-modding-tools/internal/imagegen"
	"github.com/spf13/cobra"
)

var (
	upscaleModel     string
	upscaleOverwrite bool
)

var upscaleCmd = &cobra.Command{
	Use:   "upscale <input-dir> <output-dir>",
	Short: "Upscale every PNG in a directory tree with the upscaling model",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inDir, outDir := args[0], args[1]
		if upscaleModel == "" {
			upscaleModel = cfg.Image.UpscaleModel
		}

		files, err := guiscale.ListFiles(inDir, []string{".png"})
		if err != nil {
			return err
		}

		var todo []string
		for _, rel := range files {
			if !upscaleOverwrite {
				if _, err := os.Stat(filepath.Join(outDir, rel)); err == nil {
					continue
				}
			}
			todo = append(todo, rel)
		}
		if len(todo) == 0 {
			fmt.Println("All images already upscaled.")
			return nil
		}

		client, err := newImageClient()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Upscaling %d images using %s...\n", len(todo), upscaleModel)

		var done, failed int
		for i, rel := range todo {
			select {
			case <-ctx.Done():
				fmt.Printf("\nInterrupted after %d/%d images\n", i, len(todo))
				return nil
			default:
			}

			fmt.Printf("  [%d/%d] %s...", i+1, len(todo), rel)

			uri, err := imagegen.DataURI(filepath.Join(inDir, rel))
			if err != nil {
				fmt.Fprintf(os.Stderr, " ERROR: %v\n", err)
				failed++
				continue
			}
			url, err := client.Run(ctx, upscaleModel, predictionInput(cfg.Image.UpscaleInput, "image", uri))
			if err == nil {
				err = client.DownloadTo(ctx, url, filepath.Join(outDir, rel))
			}
			if err != nil {
				if ctx.Err() != nil {
					fmt.Printf("\nInterrupted after %d/%d images\n", i, len(todo))
					return nil
				}
				if apperr.Is(err, apperr.TypeAuth) || apperr.Is(err, apperr.TypeConfig) {
					fmt.Println()
					return err
				}
				fmt.Fprintf(os.Stderr, " ERROR (%s): %v\n", apperr.GetType(err), err)
				failed++
				continue
			}
			done++
			fmt.Println(" done")
		}

		fmt.Printf("\nDone. %d images upscaled, %d failed.\n", done, failed)
		return nil
	},
}

func init() {
	upscaleCmd.Flags().StringVar(&upscaleModel, "model", "", "Upscaling model (overrides image.upscale_model)")
	upscaleCmd.Flags().BoolVar(&upscaleOverwrite, "overwrite", false, "Upscale images that already have output")
	rootCmd.AddCommand(upscaleCmd)
}
