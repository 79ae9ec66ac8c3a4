package geography

import (
	"fmt"
	"image"
	"os"
	"sort"

	"golang.org/x/image/bmp"
)

func decodeBMP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func colorKey(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// ClassifyTerrain assigns each province the terrain category covering most of
// its pixels. provinces is the province map, terrain the paletted terrain map
// (both must have the same bounds), colors maps province colors to ids and
// palette maps terrain palette indices to category names. Ties go to the
// alphabetically first category.
func ClassifyTerrain(provinces image.Image, terrain *image.Paletted, colors map[uint32]int, palette map[uint8]string) (map[int]string, error) {
	if provinces.Bounds() != terrain.Bounds() {
		return nil, fmt.Errorf("province map is %v but terrain map is %v", provinces.Bounds().Size(), terrain.Bounds().Size())
	}

	counts := make(map[int]map[string]int)
	b := provinces.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := provinces.At(x, y).RGBA()
			id, ok := colors[colorKey(uint8(r>>8), uint8(g>>8), uint8(bl>>8))]
			if !ok {
				continue
			}
			cat, ok := palette[terrain.ColorIndexAt(x, y)]
			if !ok {
				continue
			}
			m := counts[id]
			if m == nil {
				m = make(map[string]int)
				counts[id] = m
			}
			m[cat]++
		}
	}

	out := make(map[int]string, len(counts))
	for id, m := range counts {
		out[id] = majority(m)
	}
	return out, nil
}

// ClassifyTerrainFiles decodes both bitmaps and runs ClassifyTerrain.
func ClassifyTerrainFiles(provincesPath, terrainPath string, defs []Definition, palette map[uint8]string) (map[int]string, error) {
	prov, err := decodeBMP(provincesPath)
	if err != nil {
		return nil, err
	}
	terr, err := decodeBMP(terrainPath)
	if err != nil {
		return nil, err
	}
	pal, ok := terr.(*image.Paletted)
	if !ok {
		return nil, fmt.Errorf("%s is not a paletted bitmap", terrainPath)
	}

	colors := make(map[uint32]int, len(defs))
	for _, d := range defs {
		colors[colorKey(d.R, d.G, d.B)] = d.ID
	}
	return ClassifyTerrain(prov, pal, colors, palette)
}

// majority returns the key with the highest count, breaking ties by name.
func majority(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for _, k := range keys {
		if best == "" || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}
