// Package texture converts DDS textures with the external texconv tool and
// resizes PNG images.
package texture

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"golang.org/x/sync/errgroup"
)

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Converter batch-converts textures with texconv.
type Converter struct {
	Texconv  string
	Options  []string
	From     string // source extension without the dot, e.g. "dds"
	To       string // texconv output format, e.g. "png"
	ErrorDir string
	Workers  int
	Runner   Runner
}

// Result counts the files handled by a batch operation.
type Result struct {
	Files  int
	Done   int
	Failed map[string]error
}

// Check resolves the texconv binary on PATH and returns its location.
func (c *Converter) Check() (string, error) {
	path, err := exec.LookPath(c.Texconv)
	if err != nil {
		return "", apperr.Configf("texconv not found (%s): install it or set textures.texconv", c.Texconv)
	}
	return path, nil
}

// Args returns the texconv arguments that convert src into outDir.
func (c *Converter) Args(src, outDir string) []string {
	args := append([]string{}, c.Options...)
	return append(args, "-ft", c.To, "-o", outDir, src)
}

// ConvertDir converts every *.From file under inDir, writing into the same
// relative directory under outDir. Sources that fail to convert are copied to
// ErrorDir for inspection.
func (c *Converter) ConvertDir(ctx context.Context, inDir, outDir string) (*Result, error) {
	files, err := listFiles(inDir, "."+c.From)
	if err != nil {
		return nil, err
	}
	return forEach(ctx, files, c.Workers, func(ctx context.Context, rel string) error {
		src := filepath.Join(inDir, rel)
		dest := filepath.Join(outDir, filepath.Dir(rel))
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return apperr.WrapIO("creating "+dest, err)
		}

		out, err := c.Runner.Run(ctx, c.Texconv, c.Args(src, dest)...)
		if err == nil {
			return nil
		}
		convErr := apperr.Externalf("texconv %s: %v: %s", rel, err, strings.TrimSpace(string(out)))
		if c.ErrorDir != "" {
			if cerr := copyFile(src, filepath.Join(c.ErrorDir, rel)); cerr != nil {
				return fmt.Errorf("%w (copy to error dir failed: %v)", convErr, cerr)
			}
		}
		return convErr
	})
}

// forEach runs fn for each relative path with at most workers in flight.
// Per-file errors are collected; only cancellation aborts the batch.
func forEach(ctx context.Context, files []string, workers int, fn func(context.Context, string) error) (*Result, error) {
	res := &Result{Files: len(files), Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, rel := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := fn(gctx, rel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[rel] = err
			} else {
				res.Done++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func listFiles(root, ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.WrapIO("listing "+root, err)
	}
	sort.Strings(out)
	return out, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
