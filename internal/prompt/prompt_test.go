package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	out, err := Format("{name} lies in {area}. {{literal}}", map[string]string{"name": "Stockholm", "area": "Svealand"})
	require.NoError(t, err)
	assert.Equal(t, "Stockholm lies in Svealand. {literal}", out)

	out, err = Format(`{{"prompt": "{ name }"}}`, map[string]string{"name": "Kalmar"})
	require.NoError(t, err)
	assert.Equal(t, `{"prompt": "Kalmar"}`, out)
}

func TestFormatErrors(t *testing.T) {
	for _, tmpl := range []string{"{missing}", "{}", "{open", "close}", "{name:>10}"} {
		_, err := Format(tmpl, map[string]string{"name": "x"})
		require.Error(t, err, tmpl)
		assert.True(t, apperr.Is(err, apperr.TypeValidation), tmpl)
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Svealand", Humanize("svealand_area"))
	assert.Equal(t, "North German", Humanize("north_german_region"))
	assert.Equal(t, "Europe", Humanize("europe_superregion"))
	assert.Equal(t, "Normal Winter", Humanize("normal_winter"))
	assert.Equal(t, "", Humanize(""))
}

func detail() model.ProvinceDetail {
	return model.ProvinceDetail{
		Province:    model.Province{ID: 1, Name: "Stockholm", Winter: "normal_winter"},
		Area:        "svealand_area",
		Region:      "scandinavia_region",
		SuperRegion: "europe_superregion",
		Continent:   "europe",
		Climate:     "temperate",
		Terrain:     "farmlands",
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTOMLAndBuild(t *testing.T) {
	path := writeFile(t, "prompts.toml", `
[province]
content = "{name}: {terrain} in {region}, {climate} ({winter})"

[sys]
role = "system"
content = "Rewrite. Reply {{\"prompt\": ...}}"

[user]
role = "user"
model = "some/model"
content = "{prompt}"
`)
	set, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"province", "sys", "user"}, set.Names())

	b := &Builder{Templates: set, Base: "province", System: "sys", User: "user"}
	base, err := b.Build(detail())
	require.NoError(t, err)
	assert.Equal(t, "Stockholm: Farmlands in Scandinavia, Temperate (Normal Winter)", base)

	sys, user, err := b.Variation(detail(), base)
	require.NoError(t, err)
	assert.Equal(t, `Rewrite. Reply {"prompt": ...}`, sys)
	assert.Equal(t, base, user)
	assert.Equal(t, "some/model", b.Model())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "prompts.yaml", `
province:
  role: user
  content: "{name} in {continent}"
`)
	set, err := LoadTemplates(path)
	require.NoError(t, err)
	out, err := set.Render("province", Vars(detail()))
	require.NoError(t, err)
	assert.Equal(t, "Stockholm in Europe", out)
}

func TestRenderUnknownTemplate(t *testing.T) {
	set := Set{"a": {Content: "x"}}
	_, err := set.Render("b", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TypeNotFound))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "none.toml"))
	assert.True(t, apperr.Is(err, apperr.TypeNotFound))
}

func TestLoadRepoPromptFile(t *testing.T) {
	set, err := LoadTemplates("../../prompts.toml")
	require.NoError(t, err)
	b := &Builder{Templates: set, Base: "province", System: "variation_system", User: "variation_user"}

	base, err := b.Build(detail())
	require.NoError(t, err)
	assert.Contains(t, base, "Stockholm in Svealand, Scandinavia")

	sys, user, err := b.Variation(detail(), base)
	require.NoError(t, err)
	assert.Contains(t, sys, `{"prompt": "..."}`)
	assert.Contains(t, user, "Rewrite this prompt: "+base)
}
