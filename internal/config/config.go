package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
)

// Config holds all user-facing configuration for eu4-modding-tools.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Game     GameConfig     `toml:"game"`
	Import   ImportConfig   `toml:"import"`
	Prompts  PromptsConfig  `toml:"prompts"`
	LLM      LLMConfig      `toml:"llm"`
	Image    ImageConfig    `toml:"image"`
	Patch    PatchConfig    `toml:"patch"`
	GUI      GUIConfig      `toml:"gui"`
	Textures TexturesConfig `toml:"textures"`
	Wiki     WikiConfig     `toml:"wiki"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

type DataConfig struct {
	Dir    string `toml:"dir"`
	Driver string `toml:"driver"`
	File   string `toml:"file"`
}

// GameConfig locates the game (or mod) files. Map paths are relative to Dir.
type GameConfig struct {
	Dir          string `toml:"dir"`
	Definitions  string `toml:"definitions"`
	Positions    string `toml:"positions"`
	Areas        string `toml:"areas"`
	Regions      string `toml:"regions"`
	SuperRegions string `toml:"superregions"`
	Continents   string `toml:"continents"`
	Climate      string `toml:"climate"`
	Terrain      string `toml:"terrain"`
	ProvincesBMP string `toml:"provinces_bmp"`
	TerrainBMP   string `toml:"terrain_bmp"`
}

// Path joins a map-relative path onto the game directory.
func (g GameConfig) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(g.Dir, rel)
}

type ImportConfig struct {
	ClimateKeys     []string `toml:"climate_keys"`
	WinterKeys      []string `toml:"winter_keys"`
	MonsoonKeys     []string `toml:"monsoon_keys"`
	ContinentIgnore []string `toml:"continent_ignore"`
	DefaultClimate  string   `toml:"default_climate"`
	DefaultTerrain  string   `toml:"default_terrain"`
	UseBitmaps      bool     `toml:"use_bitmaps"`
}

type PromptsConfig struct {
	File            string  `toml:"file"`
	Template        string  `toml:"template"`
	UseLLM          bool    `toml:"use_llm"`
	VariationSystem string  `toml:"variation_system"`
	VariationUser   string  `toml:"variation_user"`
	IncludeWater    bool    `toml:"include_water"`
	RateLimit       float64 `toml:"rate_limit"`
}

type LLMConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	APIKeyEnv   string  `toml:"api_key_env"`
	TrackCost   bool    `toml:"track_cost"`
}

type ImageConfig struct {
	Endpoint     string         `toml:"endpoint"`
	Model        string         `toml:"model"`
	UpscaleModel string         `toml:"upscale_model"`
	APIKeyEnv    string         `toml:"api_key_env"`
	Input        map[string]any `toml:"input"`
	UpscaleInput map[string]any `toml:"upscale_input"`
	PollInterval time.Duration  `toml:"poll_interval"`
	Timeout      time.Duration  `toml:"timeout"`
	RateLimit    float64        `toml:"rate_limit"`
	Download     bool           `toml:"download"`
	OutputDir    string         `toml:"output_dir"`
}

type PatchConfig struct {
	Prefix          string   `toml:"prefix"`
	OutputDir       string   `toml:"output_dir"`
	ScriptDirs      []string `toml:"script_dirs"`
	LocalisationDir string   `toml:"localisation_dir"`
}

type GUIConfig struct {
	OriginalDir string            `toml:"original_dir"`
	ScaledDirs  map[string]string `toml:"scaled_dirs"`
	OutputDir   string            `toml:"output_dir"`
	Resolution  string            `toml:"resolution"`
	Factor      float64           `toml:"factor"`
	Extensions  []string          `toml:"extensions"`
	Workers     int               `toml:"workers"`
}

type TexturesConfig struct {
	Texconv  string   `toml:"texconv"`
	Options  []string `toml:"options"`
	From     string   `toml:"from"`
	To       string   `toml:"to"`
	ErrorDir string   `toml:"error_dir"`
	Factor   float64  `toml:"factor"`
	Filter   string   `toml:"filter"`
	Workers  int      `toml:"workers"`
}

type WikiConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Defaults returns a Config populated with built-in default values.
func Defaults() *Config {
	return &Config{
		Data: DataConfig{Dir: "data", Driver: "sqlite", File: "eu4.db"},
		Game: GameConfig{
			Dir:          ".",
			Definitions:  "map/definition.csv",
			Positions:    "map/positions.txt",
			Areas:        "map/area.txt",
			Regions:      "map/region.txt",
			SuperRegions: "map/superregion.txt",
			Continents:   "map/continent.txt",
			Climate:      "map/climate.txt",
			Terrain:      "map/terrain.txt",
			ProvincesBMP: "map/provinces.bmp",
			TerrainBMP:   "map/terrain.bmp",
		},
		Import: ImportConfig{
			ClimateKeys:     []string{"impassable", "arctic", "arid", "tropical"},
			WinterKeys:      []string{"mild_winter", "normal_winter", "severe_winter"},
			MonsoonKeys:     []string{"mild_monsoon", "normal_monsoon", "severe_monsoon"},
			ContinentIgnore: []string{"island_check_provinces", "new_world"},
			DefaultClimate:  "temperate",
			DefaultTerrain:  "grasslands",
			UseBitmaps:      true,
		},
		Prompts: PromptsConfig{
			File:            "prompts.toml",
			Template:        "province",
			VariationSystem: "variation_system",
			VariationUser:   "variation_user",
			RateLimit:       1.0,
		},
		LLM: LLMConfig{
			Endpoint:    "https://openrouter.ai/api/v1",
			Model:       "meta-llama/llama-3.1-70b-instruct",
			MaxTokens:   500,
			Temperature: 0.9,
			APIKeyEnv:   "OPENROUTER_API_KEY",
		},
		Image: ImageConfig{
			Endpoint:     "https://api.replicate.com/v1",
			Model:        "black-forest-labs/flux-schnell",
			UpscaleModel: "nightmareai/real-esrgan:350d32041630ffbe63c8352783a26d94126809164e54085352f8326e53999085",
			APIKeyEnv:    "REPLICATE_API_KEY",
			Input:        map[string]any{"aspect_ratio": "16:9", "output_format": "png"},
			UpscaleInput: map[string]any{"scale": 2, "face_enhance": false},
			PollInterval: 2 * time.Second,
			Timeout:      5 * time.Minute,
			RateLimit:    0.5,
			Download:     true,
			OutputDir:    "images",
		},
		Patch: PatchConfig{
			Prefix:          "custom",
			OutputDir:       "patched",
			ScriptDirs:      []string{"common", "events", "decisions", "missions"},
			LocalisationDir: "localisation",
		},
		GUI: GUIConfig{
			OriginalDir: "gui/original",
			ScaledDirs:  map[string]string{"2k": "gui/2k", "4k": "gui/4k"},
			OutputDir:   "gui/output",
			Resolution:  "4k",
			Factor:      2.0,
			Extensions:  []string{".gui", ".gfx"},
		},
		Textures: TexturesConfig{
			Texconv:  "texconv",
			Options:  []string{"-y"},
			From:     "dds",
			To:       "png",
			ErrorDir: "textures/errors",
			Factor:   0.6,
			Filter:   "catmullrom",
		},
		Wiki:   WikiConfig{BaseURL: "https://eu4.paradoxwikis.com", RateLimit: 1.0},
		Server: ServerConfig{Host: "localhost", Port: 8080, CORSOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads a TOML config file. If the file does not exist, built-in
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	switch c.Data.Driver {
	case "sqlite", "duckdb":
	default:
		return apperr.Configf("data.driver must be sqlite or duckdb, got %q", c.Data.Driver)
	}
	if c.Image.PollInterval <= 0 {
		return apperr.Configf("image.poll_interval must be positive")
	}
	if c.Image.Timeout < c.Image.PollInterval {
		return apperr.Configf("image.timeout (%s) is shorter than image.poll_interval (%s)", c.Image.Timeout, c.Image.PollInterval)
	}
	if c.GUI.Workers < 0 || c.Textures.Workers < 0 {
		return apperr.Configf("worker counts must not be negative")
	}
	if c.GUI.Factor <= 0 || c.Textures.Factor <= 0 {
		return apperr.Configf("scaling factors must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		return apperr.Configf("llm.max_tokens must be positive")
	}
	if c.Patch.Prefix == "" {
		return apperr.Configf("patch.prefix must not be empty")
	}
	return nil
}

// String summarises where the config points, for verbose output.
func (c *Config) String() string {
	return fmt.Sprintf("game=%s data=%s (%s)", c.Game.Dir, c.Data.Dir, c.Data.Driver)
}
