package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[data]
driver = "duckdb"

[game]
dir = "/games/eu4"

[image]
poll_interval = "500ms"
timeout = "1m"

[image.input]
aspect_ratio = "1:1"

[gui.scaled_dirs]
"4k" = "ui/4k"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Data.Driver)
	assert.Equal(t, "eu4.db", cfg.Data.File)
	assert.Equal(t, 500*time.Millisecond, cfg.Image.PollInterval)
	assert.Equal(t, time.Minute, cfg.Image.Timeout)
	assert.Equal(t, "1:1", cfg.Image.Input["aspect_ratio"])
	assert.Equal(t, "ui/4k", cfg.GUI.ScaledDirs["4k"])
	assert.Equal(t, filepath.Join("/games/eu4", "map/area.txt"), cfg.Game.Path(cfg.Game.Areas))
	assert.Equal(t, "/abs/terrain.txt", cfg.Game.Path("/abs/terrain.txt"))
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[data]\ndriver = \"postgres\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TypeConfig))
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.Image.Timeout = time.Second
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.GUI.Factor = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Patch.Prefix = ""
	assert.Error(t, cfg.Validate())
}
