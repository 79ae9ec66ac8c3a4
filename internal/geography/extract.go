package geography

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
)

// Parent names used when a level of the hierarchy does not list a child.
const (
	UnassignedRegion      = "unassigned_region"
	UnassignedSuperRegion = "unassigned_superregion"
	UnassignedContinent   = "unassigned_continent"
)

// Sources holds the paths of the map files. Empty or missing optional files
// are skipped; Areas is required.
type Sources struct {
	Definitions  string
	Positions    string
	Areas        string
	Regions      string
	SuperRegions string
	Continents   string
	Climate      string
	Terrain      string
	ProvincesBMP string
	TerrainBMP   string
}

type Options struct {
	Sources
	ClimateKeys     []string
	WinterKeys      []string
	MonsoonKeys     []string
	ContinentIgnore []string
	DefaultClimate  string
	DefaultTerrain  string
	UseBitmaps      bool
}

// Result is an extracted geography plus everything that did not fit.
type Result struct {
	Geography model.Geography
	// Skipped lists province ids known to the game but not listed in any area.
	Skipped  []int
	Warnings []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Extract reads the map files and assembles the relational geography.
// Ids above province level are assigned sequentially in file order.
func Extract(opts Options) (*Result, error) {
	res := &Result{}
	g := &res.Geography
	g.ImportedAt = time.Now().UTC().Format(time.RFC3339)

	// Province names and the universe of known ids.
	names := make(map[int]string)
	var defs []Definition
	if exists(opts.Definitions) {
		text, _, err := pdx.ReadText(opts.Definitions)
		if err != nil {
			return nil, apperr.WrapIO("reading definitions", err)
		}
		defs, err = ParseDefinitions(text)
		if err != nil {
			return nil, apperr.Wrap(apperr.TypeValidation, "parsing definitions", err)
		}
		for _, d := range defs {
			names[d.ID] = d.Name
		}
	}
	if pos, err := pdx.LoadOptional(opts.Positions); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing positions", err)
	} else if pos != nil {
		for id, name := range positionNames(pos) {
			if names[id] == "" {
				names[id] = name
			}
		}
	}

	// Areas.
	if !exists(opts.Areas) {
		return nil, apperr.NotFoundf("area file %q not found", opts.Areas)
	}
	areaRoot, err := pdx.Load(opts.Areas)
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing areas", err)
	}
	provinceArea := make(map[int]int)
	var provinceOrder []int
	areaIDs := make(map[string]int)
	for _, n := range areaRoot.Entries() {
		if !n.IsBlock {
			continue
		}
		if _, dup := areaIDs[n.Key]; dup {
			res.warnf("area %s defined twice, keeping the first", n.Key)
			continue
		}
		ids, err := n.Ints()
		if err != nil {
			return nil, apperr.Wrap(apperr.TypeValidation, "area "+n.Key, err)
		}
		a := model.Area{ID: len(g.Areas) + 1, Name: n.Key}
		areaIDs[a.Name] = a.ID
		g.Areas = append(g.Areas, a)
		for _, id := range ids {
			if prev, dup := provinceArea[id]; dup {
				res.warnf("province %d is in both %s and %s, keeping %s", id, g.Areas[prev-1].Name, a.Name, g.Areas[prev-1].Name)
				continue
			}
			provinceArea[id] = a.ID
			provinceOrder = append(provinceOrder, id)
		}
	}
	for id := range names {
		if _, ok := provinceArea[id]; !ok {
			res.Skipped = append(res.Skipped, id)
		}
	}
	sort.Ints(res.Skipped)

	// Regions.
	regionIDs := make(map[string]int)
	if root, err := pdx.LoadOptional(opts.Regions); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing regions", err)
	} else if root != nil {
		for _, n := range root.Entries() {
			if !n.IsBlock {
				continue
			}
			if _, dup := regionIDs[n.Key]; dup {
				continue
			}
			r := model.Region{ID: len(g.Regions) + 1, Name: n.Key}
			regionIDs[r.Name] = r.ID
			g.Regions = append(g.Regions, r)
			if areas := n.Child("areas"); areas != nil {
				for _, name := range areas.Values() {
					aid, ok := areaIDs[name]
					if !ok {
						res.warnf("region %s lists unknown area %s", r.Name, name)
						continue
					}
					if cur := g.Areas[aid-1].RegionID; cur != 0 {
						if cur != r.ID {
							res.warnf("area %s is in both %s and %s, keeping %s", name, g.Regions[cur-1].Name, r.Name, g.Regions[cur-1].Name)
						}
						continue
					}
					g.Areas[aid-1].RegionID = r.ID
				}
			}
		}
	}
	for i := range g.Areas {
		if g.Areas[i].RegionID == 0 {
			g.Areas[i].RegionID = ensureRegion(g, regionIDs, UnassignedRegion)
			res.warnf("area %s is not in any region", g.Areas[i].Name)
		}
	}

	// Superregions.
	superIDs := make(map[string]int)
	if root, err := pdx.LoadOptional(opts.SuperRegions); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing superregions", err)
	} else if root != nil {
		for _, n := range root.Entries() {
			if !n.IsBlock {
				continue
			}
			if _, dup := superIDs[n.Key]; dup {
				continue
			}
			s := model.SuperRegion{ID: len(g.SuperRegions) + 1, Name: n.Key}
			superIDs[s.Name] = s.ID
			g.SuperRegions = append(g.SuperRegions, s)
			for _, name := range n.Values() {
				rid, ok := regionIDs[name]
				if !ok {
					continue // restrict_charter and similar flags
				}
				if g.Regions[rid-1].SuperRegionID == 0 {
					g.Regions[rid-1].SuperRegionID = s.ID
				}
			}
		}
	}
	for i := range g.Regions {
		if g.Regions[i].SuperRegionID == 0 {
			g.Regions[i].SuperRegionID = ensureSuperRegion(g, superIDs, UnassignedSuperRegion)
			if g.Regions[i].Name != UnassignedRegion {
				res.warnf("region %s is not in any superregion", g.Regions[i].Name)
			}
		}
	}

	// Continents.
	provinceContinent := make(map[int]int)
	continentIDs := make(map[string]int)
	if root, err := pdx.LoadOptional(opts.Continents); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing continents", err)
	} else if root != nil {
		for _, n := range root.Entries() {
			if !n.IsBlock || slices.Contains(opts.ContinentIgnore, n.Key) {
				continue
			}
			ids, err := n.Ints()
			if err != nil {
				return nil, apperr.Wrap(apperr.TypeValidation, "continent "+n.Key, err)
			}
			cid := ensureContinent(g, continentIDs, n.Key)
			for _, id := range ids {
				if _, dup := provinceContinent[id]; !dup {
					provinceContinent[id] = cid
				}
			}
		}
	}

	// Climate, winter and monsoon.
	provinceClimate := make(map[int]string)
	winter := make(map[int]string)
	monsoon := make(map[int]string)
	if root, err := pdx.LoadOptional(opts.Climate); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing climate", err)
	} else if root != nil {
		assign := func(keys []string, into map[int]string) error {
			for _, key := range keys {
				for _, n := range root.Children(key) {
					ids, err := n.Ints()
					if err != nil {
						return apperr.Wrap(apperr.TypeValidation, "climate "+key, err)
					}
					for _, id := range ids {
						if _, set := into[id]; !set {
							into[id] = key
						}
					}
				}
			}
			return nil
		}
		for _, step := range []struct {
			keys []string
			into map[int]string
		}{{opts.ClimateKeys, provinceClimate}, {opts.WinterKeys, winter}, {opts.MonsoonKeys, monsoon}} {
			if err := assign(step.keys, step.into); err != nil {
				return nil, err
			}
		}
	}
	climateIDs := make(map[string]int)
	for _, key := range append(slices.Clone(opts.ClimateKeys), opts.DefaultClimate) {
		if _, ok := climateIDs[key]; ok || key == "" {
			continue
		}
		c := model.Climate{ID: len(g.Climates) + 1, Name: key}
		climateIDs[key] = c.ID
		g.Climates = append(g.Climates, c)
	}

	// Terrain.
	terrainIDs := make(map[string]int)
	provinceTerrain := make(map[int]string)
	var tf *TerrainFile
	if root, err := pdx.LoadOptional(opts.Terrain); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing terrain", err)
	} else if root != nil {
		var warns []string
		tf, warns = ParseTerrain(root)
		res.Warnings = append(res.Warnings, warns...)
		for _, c := range tf.Categories {
			t := model.Terrain{ID: len(g.Terrains) + 1, Name: c.Name, IsWater: c.IsWater, Properties: c.Properties}
			terrainIDs[t.Name] = t.ID
			g.Terrains = append(g.Terrains, t)
			for _, id := range c.Overrides {
				if _, set := provinceTerrain[id]; !set {
					provinceTerrain[id] = c.Name
				}
			}
		}
	}
	if opts.UseBitmaps && tf != nil && len(tf.Palette) > 0 && exists(opts.ProvincesBMP) && exists(opts.TerrainBMP) && len(defs) > 0 {
		byPixels, err := ClassifyTerrainFiles(opts.ProvincesBMP, opts.TerrainBMP, defs, tf.Palette)
		if err != nil {
			res.warnf("terrain bitmaps unusable: %v", err)
		}
		for id, cat := range byPixels {
			if _, set := provinceTerrain[id]; set {
				continue
			}
			if _, known := terrainIDs[cat]; !known {
				continue
			}
			provinceTerrain[id] = cat
		}
	}

	// Provinces.
	fallbackTerrain := 0
	for _, id := range provinceOrder {
		p := model.Province{
			ID:          id,
			Name:        names[id],
			AreaID:      provinceArea[id],
			ContinentID: provinceContinent[id],
			Winter:      winter[id],
			Monsoon:     monsoon[id],
		}
		if p.Name == "" {
			p.Name = "Province " + strconv.Itoa(id)
		}

		climate := provinceClimate[id]
		if climate == "" {
			climate = opts.DefaultClimate
		}
		p.ClimateID = climateIDs[climate]

		terrain, ok := provinceTerrain[id]
		if !ok {
			terrain = opts.DefaultTerrain
			fallbackTerrain++
		}
		tid, ok := terrainIDs[terrain]
		if !ok {
			t := model.Terrain{ID: len(g.Terrains) + 1, Name: terrain}
			terrainIDs[terrain] = t.ID
			g.Terrains = append(g.Terrains, t)
			tid = t.ID
		}
		p.TerrainID = tid
		g.Provinces = append(g.Provinces, p)
	}
	if fallbackTerrain > 0 {
		res.warnf("%d provinces have no terrain override or bitmap match, using %s", fallbackTerrain, opts.DefaultTerrain)
	}
	sort.Slice(g.Provinces, func(i, j int) bool { return g.Provinces[i].ID < g.Provinces[j].ID })

	linkSuperRegionContinents(g, continentIDs)
	return res, nil
}

// linkSuperRegionContinents sets each superregion's continent to the one most
// of its provinces belong to.
func linkSuperRegionContinents(g *model.Geography, continentIDs map[string]int) {
	areaRegion := make(map[int]int, len(g.Areas))
	for _, a := range g.Areas {
		areaRegion[a.ID] = a.RegionID
	}
	regionSuper := make(map[int]int, len(g.Regions))
	for _, r := range g.Regions {
		regionSuper[r.ID] = r.SuperRegionID
	}
	continentName := make(map[int]string, len(g.Continents))
	for _, c := range g.Continents {
		continentName[c.ID] = c.Name
	}

	votes := make(map[int]map[string]int)
	for _, p := range g.Provinces {
		if p.ContinentID == 0 {
			continue
		}
		sid := regionSuper[areaRegion[p.AreaID]]
		if votes[sid] == nil {
			votes[sid] = make(map[string]int)
		}
		votes[sid][continentName[p.ContinentID]]++
	}

	for i := range g.SuperRegions {
		s := &g.SuperRegions[i]
		if v := votes[s.ID]; len(v) > 0 {
			s.ContinentID = continentIDs[majority(v)]
			continue
		}
		s.ContinentID = ensureContinent(g, continentIDs, UnassignedContinent)
	}
}

func ensureRegion(g *model.Geography, ids map[string]int, name string) int {
	if id, ok := ids[name]; ok {
		return id
	}
	r := model.Region{ID: len(g.Regions) + 1, Name: name}
	ids[name] = r.ID
	g.Regions = append(g.Regions, r)
	return r.ID
}

func ensureSuperRegion(g *model.Geography, ids map[string]int, name string) int {
	if id, ok := ids[name]; ok {
		return id
	}
	s := model.SuperRegion{ID: len(g.SuperRegions) + 1, Name: name}
	ids[name] = s.ID
	g.SuperRegions = append(g.SuperRegions, s)
	return s.ID
}

func ensureContinent(g *model.Geography, ids map[string]int, name string) int {
	if id, ok := ids[name]; ok {
		return id
	}
	c := model.Continent{ID: len(g.Continents) + 1, Name: name}
	ids[name] = c.ID
	g.Continents = append(g.Continents, c)
	return c.ID
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
