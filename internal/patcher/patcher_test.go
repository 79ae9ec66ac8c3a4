package patcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const terrainTxt = `categories = {
	pti = {
		type = pti
	}
	farmlands = {
		color = { 179 255 64 }
		movement_cost = 1.10
		supply_limit = 5
		terrain_override = { 1 2 3 } # core farms
	}
	hills = {
		color = { 113 176 151 }
		defence = 1
	}
}

terrain = {
	farmlands = { type = farmlands color = { 0 } }
}
`

var targets = []Target{{ProvinceID: 2, Terrain: "farmlands"}, {ProvinceID: 7, Terrain: "hills"}}

func TestPatchTerrain(t *testing.T) {
	out, res, err := PatchTerrain(terrainTxt, "custom", targets)
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Empty(t, res.Warnings)

	assert.Contains(t, out, "terrain_override = { 1 3 } # core farms")
	assert.Contains(t, out, "\tcustom_farmlands_2 = {\n\t\tcolor = { 179 255 64 }\n\t\tmovement_cost = 1.10\n\t\tsupply_limit = 5\n\t\tterrain_override = { 2 } # core farms\n\t}\n")
	assert.Contains(t, out, "\tcustom_hills_7 = {\n\t\tcolor = { 113 176 151 }\n\t\tdefence = 1\n\t\tterrain_override = { 7 }\n\t}\n")
	assert.True(t, strings.HasSuffix(out, "terrain = {\n\tfarmlands = { type = farmlands color = { 0 } }\n}\n"))

	root, err := pdx.Parse(out)
	require.NoError(t, err)
	cats := root.Child("categories")
	require.NotNil(t, cats)
	assert.Len(t, cats.Entries(), 5)
	ids, err := cats.Child("custom_farmlands_2").Child("terrain_override").Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)
}

func TestPatchTerrainIsIdempotent(t *testing.T) {
	once, _, err := PatchTerrain(terrainTxt, "custom", targets)
	require.NoError(t, err)
	twice, res, err := PatchTerrain(once, "custom", targets)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Existing, 2)
}

func TestPatchTerrainUnknownCategory(t *testing.T) {
	out, res, err := PatchTerrain(terrainTxt, "custom", []Target{{ProvinceID: 9, Terrain: "glacier"}})
	require.NoError(t, err)
	assert.Equal(t, terrainTxt, out)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "glacier")

	_, _, err = PatchTerrain("terrain = { }", "custom", targets)
	assert.True(t, apperr.Is(err, apperr.TypeValidation))
}

func TestPatchTerrainMovesDuplicateOverrides(t *testing.T) {
	text := `categories = {
	farmlands = {
		terrain_override = {
			12 13
			112
		}
	}
	hills = {
		terrain_override = { 12 }
	}
}
`
	out, res, err := PatchTerrain(text, "custom", []Target{{ProvinceID: 12, Terrain: "farmlands"}, {ProvinceID: 13, Terrain: "farmlands"}})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	root, err := pdx.Parse(out)
	require.NoError(t, err)
	cats := root.Child("categories")
	owners := map[int][]string{}
	for _, c := range cats.Entries() {
		ov := c.Child("terrain_override")
		if ov == nil {
			continue
		}
		ids, err := ov.Ints()
		require.NoError(t, err)
		for _, id := range ids {
			owners[id] = append(owners[id], c.Key)
		}
	}
	assert.Equal(t, []string{"custom_farmlands_12"}, owners[12])
	assert.Equal(t, []string{"custom_farmlands_13"}, owners[13])
	assert.Equal(t, []string{"farmlands"}, owners[112])
	assert.Contains(t, out, `	hills = {
		terrain_override = { }
	}`)

	again, _, err := PatchTerrain(out, "custom", []Target{{ProvinceID: 12, Terrain: "farmlands"}})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRemoveOverrideKeepsOtherIDs(t *testing.T) {
	body := "\n\tterrain_override = {\n\t\t12 120 # 12 stays in comments\n\t\t212 12\n\t}\n"
	assert.Equal(t, "\n\tterrain_override = {\n\t\t120 # 12 stays in comments\n\t\t212\n\t}\n", removeOverride(body, 12))
}

func TestExistingClones(t *testing.T) {
	out, _, err := PatchTerrain(terrainTxt, "custom", targets)
	require.NoError(t, err)
	clones, err := ExistingClones(out, "custom")
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"farmlands": {"custom_farmlands_2"},
		"hills":     {"custom_hills_7"},
	}, clones)
}

var cloneSet = CloneSet{Prefix: "custom", ByTerrain: map[string][]string{
	"farmlands": {"custom_farmlands_2"},
	"hills":     {"custom_hills_7"},
}}

const scriptTxt = `trigger = {
	has_terrain = farmlands
	NOT = { has_terrain = "hills" } # has_terrain = hills
	OR = { has_terrain = farmlands has_terrain = marsh }
	has_terrain = forest
}
`

func TestRewriteReferences(t *testing.T) {
	out, n := cloneSet.RewriteReferences(scriptTxt)
	assert.Equal(t, 3, n)
	assert.Equal(t, `trigger = {
	OR = { has_terrain = farmlands has_terrain = custom_farmlands_2 }
	NOT = { OR = { has_terrain = hills has_terrain = custom_hills_7 } } # has_terrain = hills
	OR = { OR = { has_terrain = farmlands has_terrain = custom_farmlands_2 } has_terrain = marsh }
	has_terrain = forest
}
`, out)

	again, n := cloneSet.RewriteReferences(out)
	assert.Equal(t, 0, n)
	assert.Equal(t, out, again)
}

func TestRewriteReferencesPicksUpNewClones(t *testing.T) {
	out, _ := cloneSet.RewriteReferences("has_terrain = farmlands\n")
	grown := CloneSet{Prefix: "custom", ByTerrain: map[string][]string{
		"farmlands": {"custom_farmlands_2", "custom_farmlands_9"},
	}}
	out, n := grown.RewriteReferences(out)
	assert.Equal(t, 1, n)
	assert.Equal(t, "OR = { has_terrain = farmlands has_terrain = custom_farmlands_2 has_terrain = custom_farmlands_9 }\n", out)
}

const locYml = "l_english:\n farmlands:0 \"Farmlands\"\n farmlands_desc:0 \"Fertile land\"\n hills: \"Hills\""

func TestDuplicateLocalisation(t *testing.T) {
	out, n := cloneSet.DuplicateLocalisation(locYml)
	assert.Equal(t, 2, n)
	assert.Equal(t, "l_english:\n farmlands:0 \"Farmlands\"\n custom_farmlands_2:0 \"Farmlands\"\n farmlands_desc:0 \"Fertile land\"\n hills: \"Hills\"\n custom_hills_7: \"Hills\"\n", out)

	again, n := cloneSet.DuplicateLocalisation(out)
	assert.Equal(t, 0, n)
	assert.Equal(t, out, again)
}

func writeGame(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"map/terrain.txt":                   []byte(terrainTxt),
		"events/farm_events.txt":            append([]byte("# caf\xe9\n"), scriptTxt...),
		"decisions/none.txt":                []byte("decision = { potential = { always = yes } }\n"),
		"localisation/terrain_l_english.yml": append([]byte{0xEF, 0xBB, 0xBF}, locYml...),
	}
	for rel, data := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return dir
}

func testOptions(game, out string) Options {
	return Options{
		GameDir:         game,
		TerrainFile:     "map/terrain.txt",
		ScriptDirs:      []string{"events", "decisions", "missions"},
		LocalisationDir: "localisation",
		OutputDir:       out,
		Prefix:          "custom",
	}
}

func TestRunWritesOutputTree(t *testing.T) {
	game := writeGame(t)
	out := filepath.Join(t.TempDir(), "patched")
	p, err := New(testOptions(game, out))
	require.NoError(t, err)

	rep, err := p.Run(targets)
	require.NoError(t, err)
	assert.Len(t, rep.Created, 2)
	assert.Contains(t, rep.Warnings, "skipping missing directory missions")
	require.Len(t, rep.Files, 3)
	assert.Equal(t, filepath.Join("map", "terrain.txt"), rep.Files[0].Path)
	assert.Equal(t, FileChange{Path: filepath.Join("events", "farm_events.txt"), Changes: 3}, rep.Files[1])

	events, err := os.ReadFile(filepath.Join(out, "events", "farm_events.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(events), "# caf\xe9\n"), "windows-1252 bytes preserved")
	assert.Contains(t, string(events), "custom_farmlands_2")

	loc, err := os.ReadFile(filepath.Join(out, "localisation", "terrain_l_english.yml"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, loc[:3])

	original, err := os.ReadFile(filepath.Join(game, "map", "terrain.txt"))
	require.NoError(t, err)
	assert.Equal(t, terrainTxt, string(original))
	_, err = os.Stat(filepath.Join(out, "decisions", "none.txt"))
	assert.True(t, os.IsNotExist(err))

	rerun, err := p.Run(targets)
	require.NoError(t, err)
	assert.Empty(t, rerun.Created)
	assert.Len(t, rerun.Existing, 2)
	assert.Empty(t, rerun.Files)
}

func TestRunDryRunAndInPlace(t *testing.T) {
	game := writeGame(t)
	out := filepath.Join(t.TempDir(), "patched")

	opts := testOptions(game, out)
	opts.DryRun = true
	p, err := New(opts)
	require.NoError(t, err)
	rep, err := p.Run(targets)
	require.NoError(t, err)
	assert.Len(t, rep.Files, 3)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	opts = testOptions(game, "")
	opts.InPlace = true
	p, err = New(opts)
	require.NoError(t, err)
	_, err = p.Run(targets)
	require.NoError(t, err)
	patched, err := os.ReadFile(filepath.Join(game, "map", "terrain.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(patched), "custom_hills_7 = {")
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{GameDir: "g", Prefix: "custom"})
	assert.True(t, apperr.Is(err, apperr.TypeConfig))
	_, err = New(Options{OutputDir: "o", Prefix: "custom"})
	assert.True(t, apperr.Is(err, apperr.TypeConfig))
}
