package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, withData bool) http.Handler {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err, "creating store")
	t.Cleanup(func() { s.Close() })

	if withData {
		require.NoError(t, s.WriteGeography(&model.Geography{
			Continents:   []model.Continent{{ID: 1, Name: "europe"}},
			SuperRegions: []model.SuperRegion{{ID: 1, Name: "europe_superregion", ContinentID: 1}},
			Regions:      []model.Region{{ID: 1, Name: "scandinavia_region", SuperRegionID: 1}},
			Areas:        []model.Area{{ID: 1, Name: "svealand_area", RegionID: 1}},
			Climates:     []model.Climate{{ID: 1, Name: "temperate"}, {ID: 2, Name: "arctic"}},
			Terrains:     []model.Terrain{{ID: 1, Name: "farmlands"}, {ID: 2, Name: "forest"}, {ID: 3, Name: "ocean", IsWater: true}},
			Provinces: []model.Province{
				{ID: 1, Name: "Stockholm", AreaID: 1, ClimateID: 1, TerrainID: 1, ContinentID: 1},
				{ID: 2, Name: "Uppland", AreaID: 1, ClimateID: 2, TerrainID: 2, ContinentID: 1},
				{ID: 9, Name: "Mälaren", AreaID: 1, ClimateID: 1, TerrainID: 3},
			},
			ImportedAt: "2026-01-01T00:00:00Z",
		}))
		require.NoError(t, s.SetImageURL(1, "https://cdn.example/1.png"))
	}

	h, err := (&Server{Store: s, Origins: []string{"http://localhost:5173"}}).Handler()
	require.NoError(t, err)
	return h
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", url, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "decoding response")
	return v
}

func TestHandleProvinces(t *testing.T) {
	h := testServer(t, true)

	w := get(t, h, "/api/provinces")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	all := decode[[]model.ProvinceDetail](t, w)
	require.Len(t, all, 2, "water provinces are excluded by default")
	assert.Equal(t, "Stockholm", all[0].Name)
	assert.Equal(t, "svealand_area", all[0].Area)

	withImage := decode[[]model.ProvinceDetail](t, get(t, h, "/api/provinces?has_image=true"))
	require.Len(t, withImage, 1)
	assert.Equal(t, "https://cdn.example/1.png", withImage[0].ImageURL)

	arctic := decode[[]model.ProvinceDetail](t, get(t, h, "/api/provinces?climate=arctic&continent=europe"))
	require.Len(t, arctic, 1)
	assert.Equal(t, "Uppland", arctic[0].Name)

	water := decode[[]model.ProvinceDetail](t, get(t, h, "/api/provinces?include_water=1&terrain=ocean"))
	require.Len(t, water, 1)
	assert.True(t, water[0].IsWater)
}

func TestHandleProvincesEmptyIsArray(t *testing.T) {
	h := testServer(t, true)
	w := get(t, h, "/api/provinces?terrain=glacier")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestHandleProvincesBadParams(t *testing.T) {
	h := testServer(t, true)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/provinces?has_image=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/provinces?limit=-2").Code)
}

func TestHandleProvince(t *testing.T) {
	h := testServer(t, true)

	w := get(t, h, "/api/provinces/2")
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[model.ProvinceDetail](t, w)
	assert.Equal(t, "Uppland", p.Name)
	assert.Equal(t, "forest", p.Terrain)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/provinces/404").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/provinces/abc").Code)
}

func TestHandleHierarchy(t *testing.T) {
	h := testServer(t, true)
	tree := decode[[]model.HierarchyNode](t, get(t, h, "/api/hierarchy"))
	require.Len(t, tree, 1)
	assert.Equal(t, "europe", tree[0].Name)
	assert.Equal(t, 3, tree[0].Count)
}

func TestHandleLookupsEmptyStore(t *testing.T) {
	h := testServer(t, false)
	for _, url := range []string{"/api/terrains", "/api/climates", "/api/hierarchy", "/api/provinces"} {
		w := get(t, h, url)
		assert.Equal(t, http.StatusOK, w.Code, url)
		assert.Equal(t, "[]", w.Body.String(), url)
	}
}

func TestHandleStatus(t *testing.T) {
	h := testServer(t, true)
	st := decode[statusResponse](t, get(t, h, "/api/status"))
	assert.Equal(t, 3, st.Provinces)
	assert.Equal(t, 1, st.Images)
	assert.Equal(t, "2026-01-01T00:00:00Z", st.ImportedAt)
}

func TestCORS(t *testing.T) {
	h := testServer(t, false)
	req := httptest.NewRequest("GET", "/api/terrains", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/terrains", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticIndex(t *testing.T) {
	h := testServer(t, false)
	w := get(t, h, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/provinces")
}
