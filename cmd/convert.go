package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/bjornbryggman/eu4-modding-tools/internal/texture"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input-dir> <output-dir>",
	Short: "Convert textures with texconv (DDS to PNG by default)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := &texture.Converter{
			Texconv:  cfg.Textures.Texconv,
			Options:  cfg.Textures.Options,
			From:     cfg.Textures.From,
			To:       cfg.Textures.To,
			ErrorDir: cfg.Textures.ErrorDir,
			Workers:  textureWorkers(),
			Runner:   texture.ExecRunner{},
		}
		bin, err := c.Check()
		if err != nil {
			return err
		}
		logVerbose("Using %s", bin)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fmt.Printf("Converting *.%s under %s to %s...\n", c.From, args[0], c.To)
		res, err := c.ConvertDir(ctx, args[0], args[1])
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted")
				return nil
			}
			return err
		}
		printTextureResult(res, "converted")
		if len(res.Failed) > 0 && c.ErrorDir != "" {
			fmt.Printf("Failed sources copied to %s\n", c.ErrorDir)
		}
		return nil
	},
}

func textureWorkers() int {
	if cfg.Textures.Workers > 0 {
		return cfg.Textures.Workers
	}
	return runtime.NumCPU()
}

func printTextureResult(res *texture.Result, verb string) {
	for rel, err := range res.Failed {
		fmt.Fprintf(os.Stderr, "  ERROR %s: %v\n", rel, err)
	}
	fmt.Printf("\nDone. %d/%d files %s, %d failed.\n", res.Done, res.Files, verb, len(res.Failed))
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
