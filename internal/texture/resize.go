package texture

import (
	"context"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"golang.org/x/image/draw"
)

var filters = map[string]draw.Scaler{
	"nearest":        draw.NearestNeighbor,
	"approxbilinear": draw.ApproxBiLinear,
	"bilinear":       draw.BiLinear,
	"catmullrom":     draw.CatmullRom,
}

// Filter returns the scaler registered under name.
func Filter(name string) (draw.Scaler, error) {
	s, ok := filters[strings.ToLower(name)]
	if !ok {
		return nil, apperr.Validationf("unknown resize filter %q (nearest, approxbilinear, bilinear, catmullrom)", name)
	}
	return s, nil
}

// ResizeImage scales img by factor. Each side is at least one pixel.
func ResizeImage(img image.Image, factor float64, s draw.Scaler) image.Image {
	b := img.Bounds()
	w := max(int(math.Round(float64(b.Dx())*factor)), 1)
	h := max(int(math.Round(float64(b.Dy())*factor)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	s.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ResizeFile reads the PNG at src, scales it, and writes it to dest.
func ResizeFile(src, dest string, factor float64, s draw.Scaler) error {
	f, err := os.Open(src)
	if err != nil {
		return apperr.WrapIO("opening "+src, err)
	}
	img, err := png.Decode(f)
	f.Close()
	if err != nil {
		return apperr.Wrap(apperr.TypeValidation, "decoding "+src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperr.WrapIO("creating "+filepath.Dir(dest), err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return apperr.WrapIO("creating "+dest, err)
	}
	if err := png.Encode(out, ResizeImage(img, factor, s)); err != nil {
		out.Close()
		return apperr.WrapIO("encoding "+dest, err)
	}
	return apperr.WrapIO("closing "+dest, out.Close())
}

// ResizeDir resizes every PNG under inDir into the same relative path under outDir.
func ResizeDir(ctx context.Context, inDir, outDir string, factor float64, filter string, workers int) (*Result, error) {
	if factor <= 0 {
		return nil, apperr.Validationf("resize factor must be positive, got %g", factor)
	}
	s, err := Filter(filter)
	if err != nil {
		return nil, err
	}
	files, err := listFiles(inDir, ".png")
	if err != nil {
		return nil, err
	}
	return forEach(ctx, files, workers, func(_ context.Context, rel string) error {
		return ResizeFile(filepath.Join(inDir, rel), filepath.Join(outDir, rel), factor, s)
	})
}
