package geography

import (
	"strconv"

	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
)

// Category is a terrain category from the `categories` block of terrain.txt.
type Category struct {
	Name       string
	IsWater    bool
	Overrides  []int
	Properties []model.Property
}

// TerrainFile is the part of terrain.txt the import needs.
type TerrainFile struct {
	Categories []Category
	// Palette maps terrain.bmp palette indices to category names.
	Palette map[uint8]string
}

// ParseTerrain reads terrain categories and the bitmap palette mapping.
func ParseTerrain(root *pdx.Node) (*TerrainFile, []string) {
	tf := &TerrainFile{Palette: make(map[uint8]string)}
	var warnings []string

	if cats := root.Child("categories"); cats != nil {
		for _, n := range cats.Entries() {
			if !n.IsBlock {
				continue
			}
			c := Category{Name: n.Key, IsWater: n.Child("is_water").Bool()}
			for _, e := range n.Entries() {
				if e.IsBlock {
					continue
				}
				c.Properties = append(c.Properties, model.Property{Key: e.Key, Value: e.Value})
			}
			if ov := n.Child("terrain_override"); ov != nil {
				ids, err := ov.Ints()
				if err != nil {
					warnings = append(warnings, "terrain "+n.Key+": "+err.Error())
				}
				c.Overrides = ids
			}
			tf.Categories = append(tf.Categories, c)
		}
	}

	if pal := root.Child("terrain"); pal != nil {
		for _, n := range pal.Entries() {
			typ := n.ChildValue("type")
			col := n.Child("color")
			if typ == "" || col == nil {
				continue
			}
			for _, v := range col.Values() {
				idx, err := strconv.Atoi(v)
				if err != nil || idx < 0 || idx > 255 {
					warnings = append(warnings, "terrain palette "+n.Key+": bad index "+v)
					continue
				}
				if _, dup := tf.Palette[uint8(idx)]; !dup {
					tf.Palette[uint8(idx)] = typ
				}
			}
		}
	}
	return tf, warnings
}
