package store

import (
	"path/filepath"
	"testing"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err, "creating store")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGeography() *model.Geography {
	return &model.Geography{
		Continents:   []model.Continent{{ID: 1, Name: "europe"}, {ID: 2, Name: "unassigned_continent"}},
		SuperRegions: []model.SuperRegion{{ID: 1, Name: "europe_superregion", ContinentID: 1}, {ID: 2, Name: "sea_superregion", ContinentID: 2}},
		Regions:      []model.Region{{ID: 1, Name: "scandinavia_region", SuperRegionID: 1}, {ID: 2, Name: "baltic_region", SuperRegionID: 2}},
		Areas: []model.Area{
			{ID: 1, Name: "svealand_area", RegionID: 1},
			{ID: 2, Name: "gotaland_area", RegionID: 1},
			{ID: 3, Name: "baltic_sea_area", RegionID: 2},
		},
		Climates: []model.Climate{{ID: 1, Name: "arctic"}, {ID: 2, Name: "temperate"}},
		Terrains: []model.Terrain{
			{ID: 1, Name: "forest", Properties: []model.Property{{Key: "movement_cost", Value: "1.25"}}},
			{ID: 2, Name: "farmlands"},
			{ID: 3, Name: "ocean", IsWater: true},
		},
		Provinces: []model.Province{
			{ID: 1, Name: "Stockholm", AreaID: 1, ClimateID: 2, TerrainID: 2, ContinentID: 1, Winter: "normal_winter"},
			{ID: 2, Name: "Östergötland", AreaID: 2, ClimateID: 2, TerrainID: 1, ContinentID: 1},
			{ID: 3, Name: "Kalmar", AreaID: 2, ClimateID: 1, TerrainID: 1, ContinentID: 1},
			{ID: 5, Name: "Baltic Sea", AreaID: 3, ClimateID: 2, TerrainID: 3},
		},
		SourceDir:  "/games/eu4",
		ImportedAt: "2026-01-01T00:00:00Z",
	}
}

func TestGeographyRoundTrip(t *testing.T) {
	s := testStore(t)
	assert.False(t, s.HasGeography())

	require.NoError(t, s.WriteGeography(sampleGeography()))
	assert.True(t, s.HasGeography())
	assert.Equal(t, 4, s.ProvinceCount())
	assert.Equal(t, 3, s.TableCount("areas"))
	assert.Equal(t, 0, s.TableCount("meta"), "only hierarchy tables are countable")
	assert.Equal(t, "/games/eu4", s.GetMeta("source_dir"))

	p, err := s.ReadProvince(2)
	require.NoError(t, err)
	assert.Equal(t, "Östergötland", p.Name)
	assert.Equal(t, "gotaland_area", p.Area)
	assert.Equal(t, "scandinavia_region", p.Region)
	assert.Equal(t, "europe_superregion", p.SuperRegion)
	assert.Equal(t, "europe", p.Continent)
	assert.Equal(t, "forest", p.Terrain)
	assert.Equal(t, "temperate", p.Climate)

	sea, err := s.ReadProvince(5)
	require.NoError(t, err)
	assert.True(t, sea.IsWater)
	assert.Equal(t, 0, sea.ContinentID)
	assert.Equal(t, "unassigned_continent", sea.Continent, "falls back to the superregion's continent")

	terrains, err := s.ReadTerrains()
	require.NoError(t, err)
	require.Len(t, terrains, 3)
	assert.Equal(t, []model.Property{{Key: "movement_cost", Value: "1.25"}}, terrains[0].Properties)
	assert.True(t, terrains[2].IsWater)
}

func TestWriteGeographyReplaces(t *testing.T) {
	s := testStore(t)
	g := sampleGeography()
	require.NoError(t, s.WriteGeography(g))
	require.NoError(t, s.SetPrompt(1, "a snowy harbour"))

	g.Provinces = g.Provinces[:2]
	require.NoError(t, s.WriteGeography(g))
	assert.Equal(t, 2, s.ProvinceCount())
	assert.Equal(t, 0, s.PromptCount(), "reimport drops attached metadata")

	require.NoError(t, s.ClearGeography())
	assert.False(t, s.HasGeography())
	assert.Equal(t, "", s.GetMeta("imported_at"))
}

func TestWriteGeographyFailureKeepsPrevious(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteGeography(sampleGeography()))
	require.NoError(t, s.SetPrompt(1, "a snowy harbour"))

	bad := sampleGeography()
	bad.Provinces = append(bad.Provinces, model.Province{ID: 9, Name: "Nowhere", AreaID: 99, ClimateID: 1, TerrainID: 1})
	require.Error(t, s.WriteGeography(bad))

	assert.Equal(t, 4, s.ProvinceCount())
	assert.Equal(t, 1, s.PromptCount())
	assert.Equal(t, "2026-01-01T00:00:00Z", s.GetMeta("imported_at"))
}

func TestReadProvinceNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.ReadProvince(404)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TypeNotFound))

	err = s.SetPrompt(404, "x")
	assert.True(t, apperr.Is(err, apperr.TypeNotFound))
}

func TestReadProvincesFilters(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteGeography(sampleGeography()))
	require.NoError(t, s.SetPrompt(3, "pine forest by the sea"))
	require.NoError(t, s.SetImageURL(3, "https://example.com/3.png"))

	ids := func(ps []model.ProvinceDetail) []int {
		var out []int
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	yes, no := true, false

	all, err := s.ReadProvinces(model.ProvinceFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids(all), "water excluded by default")

	all, err = s.ReadProvinces(model.ProvinceFilter{IncludeWater: true})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5}, ids(all))

	forest, err := s.ReadProvinces(model.ProvinceFilter{Terrain: "forest"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids(forest))

	arctic, err := s.ReadProvinces(model.ProvinceFilter{Climate: "arctic", Continent: "europe"})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids(arctic))

	todo, err := s.ReadProvinces(model.ProvinceFilter{HasPrompt: &no, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(todo))

	done, err := s.ReadProvinces(model.ProvinceFilter{HasImage: &yes})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "https://example.com/3.png", done[0].ImageURL)

	picked, err := s.ReadProvinces(model.ProvinceFilter{IDs: []int{1, 5}, IncludeWater: true})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, ids(picked))

	inArea, err := s.ReadProvinces(model.ProvinceFilter{Area: "gotaland_area", Region: "scandinavia_region"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ids(inArea))
}

func TestCountsAndProgress(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteGeography(sampleGeography()))
	require.NoError(t, s.SetPrompt(1, "p"))
	require.NoError(t, s.SetPrompt(2, "p"))
	require.NoError(t, s.SetImageURL(2, "https://example.com/2.png"))
	require.NoError(t, s.SetDescription(1, "Stockholm is the capital."))

	assert.Equal(t, 2, s.PromptCount())
	assert.Equal(t, 1, s.ImageCount())
	assert.Equal(t, 1, s.DescriptionCount())

	progress, err := s.ProgressByContinent()
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 2, 1}, progress["europe"])
	assert.Equal(t, [3]int{1, 0, 0}, progress["unassigned_continent"])

	names, err := s.ProvinceNames()
	require.NoError(t, err)
	assert.Equal(t, "Kalmar", names[3])
}

func TestHierarchy(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteGeography(sampleGeography()))

	tree, err := s.Hierarchy()
	require.NoError(t, err)
	require.Len(t, tree, 2)

	europe := tree[0]
	assert.Equal(t, "continent", europe.Kind)
	assert.Equal(t, 3, europe.Count)
	require.Len(t, europe.Children, 1)
	scand := europe.Children[0].Children[0]
	assert.Equal(t, "scandinavia_region", scand.Name)
	require.Len(t, scand.Children, 2)
	assert.Equal(t, 2, scand.Children[1].Count)
	assert.Equal(t, 1, tree[1].Count)
}

func TestGenerations(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteGeneration(&model.Generation{
		ID: "b", ProvinceID: 1, Model: "flux", Prompt: "p", Status: "failed", Error: "oom", CreatedAt: "2026-01-02T00:00:00Z",
	}))
	require.NoError(t, s.WriteGeneration(&model.Generation{
		ID: "a", ProvinceID: 1, Model: "flux", Prompt: "p", Status: "succeeded", OutputURL: "https://x/1.png", CreatedAt: "2026-01-01T00:00:00Z",
	}))

	gens, err := s.ReadGenerations(1)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "a", gens[0].ID)
	assert.Equal(t, "oom", gens[1].Error)
	assert.Equal(t, 2, s.GenerationCount(""))
	assert.Equal(t, 1, s.GenerationCount("failed"))
}

func TestScalingFactors(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.WriteOriginalValues("interface/topbar.gui", []model.OriginalValue{
		{Property: "x", Position: 0, Value: 10},
		{Property: "x", Position: 1, Value: 20},
	}))
	counts, err := s.OriginalValueCounts()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["interface/topbar.gui"])

	require.NoError(t, s.WriteScalingFactors([]model.ScalingFactor{
		{FilePath: "a.gui", Property: "x", Resolution: "4k", Mean: 2, Median: 2, Min: 2, Max: 2, Samples: 3},
		{FilePath: "b.gui", Property: "x", Resolution: "4k", Mean: 1, Median: 1, Min: 1, Max: 1, Samples: 1},
		{FilePath: "a.gui", Property: "x", Resolution: "2k", Mean: 1.5, Samples: 1},
	}))

	four, err := s.ReadScalingFactors("4k")
	require.NoError(t, err)
	require.Len(t, four, 2)
	assert.Equal(t, "a.gui", four[0].FilePath)
	assert.Equal(t, 3, four[0].Samples)

	global, err := s.GlobalScalingFactors("4k")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, global["x"], 1e-9)

	perFile, err := s.FileScalingFactors("a.gui", "2k")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 1.5}, perFile)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(t.TempDir(), "postgres", "x.db")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TypeConfig))
}
