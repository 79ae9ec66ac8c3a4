package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bjornbryggman/eu4-modding-tools/internal/texture"
	"github.com/spf13/cobra"
)

var (
	resizeFactor float64
	resizeFilter string
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input-dir> <output-dir>",
	Short: "Resize every PNG in a directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("factor") {
			resizeFactor = cfg.Textures.Factor
		}
		if resizeFilter == "" {
			resizeFilter = cfg.Textures.Filter
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Resizing PNGs under %s by %g (%s)...\n", args[0], resizeFactor, resizeFilter)
		res, err := texture.ResizeDir(ctx, args[0], args[1], resizeFactor, resizeFilter, textureWorkers())
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
				return nil
			}
			return err
		}
		printTextureResult(res, "resized")
		return nil
	},
}

func init() {
	resizeCmd.Flags().Float64Var(&resizeFactor, "factor", 0.6, "Scale factor (overrides textures.factor)")
	resizeCmd.Flags().StringVar(&resizeFilter, "filter", "", "nearest, approxbilinear, bilinear or catmullrom (overrides textures.filter)")
	rootCmd.AddCommand(resizeCmd)
}
