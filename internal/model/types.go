package model

// Continent is the top of the geographic hierarchy.
type Continent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SuperRegion groups regions. Its continent is derived from the provinces beneath it.
type SuperRegion struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	ContinentID int    `json:"continent_id"`
}

type Region struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	SuperRegionID int    `json:"super_region_id"`
}

type Area struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RegionID int    `json:"region_id"`
}

type Climate struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Terrain is a terrain category from terrain.txt. Properties holds the
// category's scalar modifiers (movement_cost, defence, ...) in file order.
type Terrain struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	IsWater    bool       `json:"is_water"`
	Properties []Property `json:"properties,omitempty"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Province is the smallest map unit. ID is the game's own province number.
type Province struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	AreaID      int    `json:"area_id"`
	ClimateID   int    `json:"climate_id"`
	TerrainID   int    `json:"terrain_id"`
	ContinentID int    `json:"continent_id,omitempty"`
	Winter      string `json:"winter,omitempty"`
	Monsoon     string `json:"monsoon,omitempty"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ProvinceDetail is a province joined with the names of everything it belongs to.
type ProvinceDetail struct {
	Province
	Area        string `json:"area"`
	Region      string `json:"region"`
	SuperRegion string `json:"superregion"`
	Continent   string `json:"continent"`
	Climate     string `json:"climate"`
	Terrain     string `json:"terrain"`
	IsWater     bool   `json:"is_water"`
}

// ProvinceFilter narrows ReadProvinces. Zero values match everything.
type ProvinceFilter struct {
	Terrain      string
	Climate      string
	Area         string
	Region       string
	Continent    string
	HasPrompt    *bool
	HasImage     *bool
	HasDesc      *bool
	IncludeWater bool
	IDs          []int
	Limit        int
}

// Geography is the full result of one import.
type Geography struct {
	Continents   []Continent   `json:"continents"`
	SuperRegions []SuperRegion `json:"superregions"`
	Regions      []Region      `json:"regions"`
	Areas        []Area        `json:"areas"`
	Climates     []Climate     `json:"climates"`
	Terrains     []Terrain     `json:"terrains"`
	Provinces    []Province    `json:"provinces"`
	SourceDir    string        `json:"source_dir"`
	ImportedAt   string        `json:"imported_at"`
}

// Generation records one image-generation attempt for a province.
type Generation struct {
	ID         string `json:"id"`
	ProvinceID int    `json:"province_id"`
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	Status     string `json:"status"`
	OutputURL  string `json:"output_url,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ScalingFactor summarises scaled/original ratios of one GUI property.
type ScalingFactor struct {
	FilePath   string  `json:"file_path"`
	Property   string  `json:"property"`
	Resolution string  `json:"resolution"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Samples    int     `json:"samples"`
}

// OriginalValue is one positional value read from an unscaled GUI file.
type OriginalValue struct {
	FilePath string `json:"file_path"`
	Property string `json:"property"`
	Position int    `json:"position"`
	Value    int    `json:"value"`
}

// HierarchyNode is one level of the continent tree served by the web API.
type HierarchyNode struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Children []HierarchyNode `json:"children,omitempty"`
	Count    int             `json:"province_count"`
}
