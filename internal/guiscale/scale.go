package guiscale

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
	"golang.org/x/sync/errgroup"
)

// ListFiles returns the paths, relative to root, of every file whose
// extension is in exts (case-insensitive), sorted.
func ListFiles(root string, exts []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExt(path, exts) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, apperr.WrapIO("listing "+root, err)
	}
	sort.Strings(out)
	return out, nil
}

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// ResolverFunc returns the Resolver for a file, by path relative to the input root.
type ResolverFunc func(rel string) (Resolver, error)

// Summary counts the work done by ScaleDir.
type Summary struct {
	Files   int
	Changed int
	Values  int
	Failed  map[string]error
}

// ScaleDir applies factors to every layout file under inDir and writes the
// results to the same relative paths under outDir, preserving each file's
// encoding. A failing file is recorded and skipped.
func ScaleDir(ctx context.Context, inDir, outDir string, exts []string, workers int, resolve ResolverFunc) (*Summary, error) {
	files, err := ListFiles(inDir, exts)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Files: len(files), Failed: make(map[string]error)}
	var changed, values atomic.Int64
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
			n, err := scaleFile(filepath.Join(inDir, rel), filepath.Join(outDir, rel), rel, resolve)
			if err != nil {
				mu.Lock()
				sum.Failed[rel] = err
				mu.Unlock()
				return nil
			}
			if n > 0 {
				changed.Add(1)
				values.Add(int64(n))
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

	sum.Changed = int(changed.Load())
	sum.Values = int(values.Load())
	return sum, nil
}

func scaleFile(src, dest, rel string, resolve ResolverFunc) (int, error) {
	r, err := resolve(rel)
	if err != nil {
		return 0, err
	}
	text, enc, err := pdx.ReadText(src)
	if err != nil {
		return 0, apperr.WrapIO("reading "+src, err)
	}
	out, n := Apply(text, r)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, apperr.WrapIO("creating "+filepath.Dir(dest), err)
	}
	if err := pdx.WriteText(dest, out, enc); err != nil {
		return 0, apperr.WrapIO("writing "+dest, err)
	}
	return n, nil
}
