package guiscale

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
	"golang.org/x/sync/errgroup"
)

// Stats summarises the per-value factors of one property.
type Stats struct {
	Mean, Median, StdDev, Min, Max float64
	Samples                        int
}

// Compare computes scaled/original factors for every property present in both
// files with the same number of values. Zero originals are ignored; a
// property with no usable pair is left out.
func Compare(original, scaled map[string][]int) map[string]Stats {
	out := make(map[string]Stats)
	for prop, ov := range original {
		sv, ok := scaled[prop]
		if !ok || len(sv) != len(ov) {
			continue
		}
		var factors []float64
		for i, o := range ov {
			if o != 0 {
				factors = append(factors, float64(sv[i])/float64(o))
			}
		}
		if len(factors) > 0 {
			out[prop] = summarise(factors)
		}
	}
	return out
}

func summarise(xs []float64) Stats {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)

	var sum float64
	for _, x := range sorted {
		sum += x
	}
	mean := sum / float64(n)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	var stddev float64
	if n > 1 {
		var ss float64
		for _, x := range sorted {
			ss += (x - mean) * (x - mean)
		}
		stddev = math.Sqrt(ss / float64(n-1))
	}

	return Stats{Mean: mean, Median: median, StdDev: stddev, Min: sorted[0], Max: sorted[n-1], Samples: n}
}

// Calibration is the outcome of CalibrateDirs.
type Calibration struct {
	Factors   []model.ScalingFactor
	Originals map[string][]model.OriginalValue
	Missing   []string // original files without a scaled counterpart
	Failed    map[string]error
}

// CalibrateDirs pairs each layout file under originalDir with the file of the
// same relative path under scaledDir and computes factors for resolution.
// Files are read by up to workers goroutines.
func CalibrateDirs(ctx context.Context, originalDir, scaledDir, resolution string, exts []string, workers int) (*Calibration, error) {
	files, err := ListFiles(originalDir, exts)
	if err != nil {
		return nil, err
	}

	res := &Calibration{
		Originals: make(map[string][]model.OriginalValue),
		Failed:    make(map[string]error),
	}
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
			scaledPath := filepath.Join(scaledDir, rel)
			if _, err := os.Stat(scaledPath); os.IsNotExist(err) {
				mu.Lock()
				res.Missing = append(res.Missing, rel)
				mu.Unlock()
				return nil
			}

			original, err := readValues(filepath.Join(originalDir, rel))
			var scaled map[string][]int
			if err == nil {
				scaled, err = readValues(scaledPath)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[rel] = err
				return nil
			}
			res.Originals[rel] = flatten(rel, original)
			for prop, st := range Compare(original, scaled) {
				res.Factors = append(res.Factors, model.ScalingFactor{
					FilePath: rel, Property: prop, Resolution: resolution,
					Mean: st.Mean, Median: st.Median, StdDev: st.StdDev,
					Min: st.Min, Max: st.Max, Samples: st.Samples,
				})
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

	sort.Strings(res.Missing)
	sort.Slice(res.Factors, func(i, j int) bool {
		a, b := res.Factors[i], res.Factors[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Property < b.Property
	})
	return res, nil
}

func readValues(path string) (map[string][]int, error) {
	text, _, err := pdx.ReadText(path)
	if err != nil {
		return nil, apperr.WrapIO("reading "+path, err)
	}
	return Extract(text), nil
}

// flatten lists values by property, then position, for storage.
func flatten(file string, values map[string][]int) []model.OriginalValue {
	props := make([]string, 0, len(values))
	for p := range values {
		props = append(props, p)
	}
	sort.Strings(props)

	var out []model.OriginalValue
	for _, p := range props {
		for i, v := range values[p] {
			out = append(out, model.OriginalValue{FilePath: file, Property: p, Position: i, Value: v})
		}
	}
	return out
}
