package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
)

// geographyTables lists the hierarchy tables children first.
var geographyTables = []string{"provinces", "areas", "regions", "super_regions", "continents", "climates", "terrains"}

// HasGeography reports whether an import has been stored.
func (s *Store) HasGeography() bool {
	return s.ProvinceCount() > 0
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ClearGeography deletes every imported row together with attached prompts,
// images and descriptions. Each delete commits on its own so that DuckDB sees
// the child rows gone before the parent delete is checked.
func (s *Store) ClearGeography() error {
	return clearGeography(s.DB)
}

func clearGeography(ex execer) error {
	for _, tbl := range geographyTables {
		if _, err := ex.Exec(fmt.Sprintf("DELETE FROM %s", tbl)); err != nil {
			return fmt.Errorf("clearing %s: %w", tbl, err)
		}
	}
	_, err := ex.Exec("DELETE FROM meta WHERE key IN ('imported_at', 'source_dir')")
	return err
}

// WriteGeography replaces the stored geography with g. On SQLite the old rows
// are deleted in the same transaction, so a failed write keeps them.
func (s *Store) WriteGeography(g *model.Geography) error {
	if s.Driver == "duckdb" {
		if err := s.ClearGeography(); err != nil {
			return err
		}
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.Driver != "duckdb" {
		if err := clearGeography(tx); err != nil {
			return err
		}
	}

	for _, c := range g.Continents {
		if _, err := tx.Exec("INSERT INTO continents (id, name) VALUES (?, ?)", c.ID, c.Name); err != nil {
			return fmt.Errorf("inserting continent %s: %w", c.Name, err)
		}
	}
	for _, sr := range g.SuperRegions {
		if _, err := tx.Exec("INSERT INTO super_regions (id, name, continent_id) VALUES (?, ?, ?)", sr.ID, sr.Name, sr.ContinentID); err != nil {
			return fmt.Errorf("inserting superregion %s: %w", sr.Name, err)
		}
	}
	for _, r := range g.Regions {
		if _, err := tx.Exec("INSERT INTO regions (id, name, super_region_id) VALUES (?, ?, ?)", r.ID, r.Name, r.SuperRegionID); err != nil {
			return fmt.Errorf("inserting region %s: %w", r.Name, err)
		}
	}
	for _, a := range g.Areas {
		if _, err := tx.Exec("INSERT INTO areas (id, name, region_id) VALUES (?, ?, ?)", a.ID, a.Name, a.RegionID); err != nil {
			return fmt.Errorf("inserting area %s: %w", a.Name, err)
		}
	}
	for _, c := range g.Climates {
		if _, err := tx.Exec("INSERT INTO climates (id, name) VALUES (?, ?)", c.ID, c.Name); err != nil {
			return fmt.Errorf("inserting climate %s: %w", c.Name, err)
		}
	}
	for _, t := range g.Terrains {
		props, _ := json.Marshal(t.Properties)
		if _, err := tx.Exec("INSERT INTO terrains (id, name, is_water, properties) VALUES (?, ?, ?, ?)", t.ID, t.Name, t.IsWater, string(props)); err != nil {
			return fmt.Errorf("inserting terrain %s: %w", t.Name, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO provinces (id, name, area_id, climate_id, terrain_id, continent_id, winter, monsoon, description, prompt, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range g.Provinces {
		if _, err := stmt.Exec(p.ID, p.Name, p.AreaID, p.ClimateID, p.TerrainID, nullInt(p.ContinentID),
			nullString(p.Winter), nullString(p.Monsoon), nullString(p.Description), nullString(p.Prompt), nullString(p.ImageURL)); err != nil {
			return fmt.Errorf("inserting province %d: %w", p.ID, err)
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('imported_at', ?)", g.ImportedAt); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('source_dir', ?)", g.SourceDir); err != nil {
		return err
	}

	return tx.Commit()
}

const provinceSelect = `SELECT p.id, p.name, p.area_id, p.climate_id, p.terrain_id,
		COALESCE(p.continent_id, 0), COALESCE(p.winter, ''), COALESCE(p.monsoon, ''),
		COALESCE(p.description, ''), COALESCE(p.prompt, ''), COALESCE(p.image_url, ''),
		a.name, r.name, sr.name, COALESCE(c.name, sc.name, ''), cl.name, t.name, t.is_water
	FROM provinces p
	JOIN areas a ON a.id = p.area_id
	JOIN regions r ON r.id = a.region_id
	JOIN super_regions sr ON sr.id = r.super_region_id
	LEFT JOIN continents c ON c.id = p.continent_id
	LEFT JOIN continents sc ON sc.id = sr.continent_id
	JOIN climates cl ON cl.id = p.climate_id
	JOIN terrains t ON t.id = p.terrain_id`

func scanProvince(sc interface{ Scan(...any) error }) (model.ProvinceDetail, error) {
	var d model.ProvinceDetail
	err := sc.Scan(&d.ID, &d.Name, &d.AreaID, &d.ClimateID, &d.TerrainID,
		&d.ContinentID, &d.Winter, &d.Monsoon, &d.Description, &d.Prompt, &d.ImageURL,
		&d.Area, &d.Region, &d.SuperRegion, &d.Continent, &d.Climate, &d.Terrain, &d.IsWater)
	return d, err
}

// ReadProvince loads one province with its joined names.
func (s *Store) ReadProvince(id int) (*model.ProvinceDetail, error) {
	d, err := scanProvince(s.DB.QueryRow(provinceSelect+" WHERE p.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("province %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadProvinces loads provinces matching f, ordered by id.
func (s *Store) ReadProvinces(f model.ProvinceFilter) ([]model.ProvinceDetail, error) {
	var where []string
	var args []any
	eq := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	eq("t.name", f.Terrain)
	eq("cl.name", f.Climate)
	eq("a.name", f.Area)
	eq("r.name", f.Region)
	eq("COALESCE(c.name, sc.name, '')", f.Continent)

	has := func(col string, want *bool) {
		if want == nil {
			return
		}
		if *want {
			where = append(where, "COALESCE("+col+", '') <> ''")
		} else {
			where = append(where, "COALESCE("+col+", '') = ''")
		}
	}
	has("p.prompt", f.HasPrompt)
	has("p.image_url", f.HasImage)
	has("p.description", f.HasDesc)

	if !f.IncludeWater {
		where = append(where, "t.is_water = false")
	}
	if len(f.IDs) > 0 {
		marks := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, "p.id IN ("+strings.Join(marks, ", ")+")")
	}

	q := provinceSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.DB.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProvinceDetail
	for rows.Next() {
		d, err := scanProvince(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ProvinceNames returns every province's name keyed by id.
func (s *Store) ProvinceNames() (map[int]string, error) {
	rows, err := s.DB.Query("SELECT id, name FROM provinces")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// SetPrompt attaches a generated prompt to a province.
func (s *Store) SetPrompt(id int, prompt string) error {
	return s.setProvinceColumn("prompt", id, prompt)
}

// SetImageURL attaches a generated image reference to a province.
func (s *Store) SetImageURL(id int, url string) error {
	return s.setProvinceColumn("image_url", id, url)
}

// SetDescription attaches a wiki description to a province.
func (s *Store) SetDescription(id int, desc string) error {
	return s.setProvinceColumn("description", id, desc)
}

func (s *Store) setProvinceColumn(col string, id int, value string) error {
	res, err := s.DB.Exec(fmt.Sprintf("UPDATE provinces SET %s = ? WHERE id = ?", col), nullString(value), id)
	if err != nil {
		return fmt.Errorf("updating %s of province %d: %w", col, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFoundf("province %d not found", id)
	}
	return nil
}

// ReadContinents loads all continents ordered by id.
func (s *Store) ReadContinents() ([]model.Continent, error) {
	rows, err := s.DB.Query("SELECT id, name FROM continents ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Continent
	for rows.Next() {
		var c model.Continent
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadSuperRegions loads all superregions ordered by id.
func (s *Store) ReadSuperRegions() ([]model.SuperRegion, error) {
	rows, err := s.DB.Query("SELECT id, name, continent_id FROM super_regions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SuperRegion
	for rows.Next() {
		var sr model.SuperRegion
		if err := rows.Scan(&sr.ID, &sr.Name, &sr.ContinentID); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// ReadRegions loads all regions ordered by id.
func (s *Store) ReadRegions() ([]model.Region, error) {
	rows, err := s.DB.Query("SELECT id, name, super_region_id FROM regions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.ID, &r.Name, &r.SuperRegionID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadAreas loads all areas ordered by id.
func (s *Store) ReadAreas() ([]model.Area, error) {
	rows, err := s.DB.Query("SELECT id, name, region_id FROM areas ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.Name, &a.RegionID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReadClimates loads all climates ordered by id.
func (s *Store) ReadClimates() ([]model.Climate, error) {
	rows, err := s.DB.Query("SELECT id, name FROM climates ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Climate
	for rows.Next() {
		var c model.Climate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReadTerrains loads all terrain categories ordered by id.
func (s *Store) ReadTerrains() ([]model.Terrain, error) {
	rows, err := s.DB.Query("SELECT id, name, is_water, properties FROM terrains ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Terrain
	for rows.Next() {
		var t model.Terrain
		var props sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.IsWater, &props); err != nil {
			return nil, err
		}
		if props.Valid {
			json.Unmarshal([]byte(props.String), &t.Properties)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Hierarchy builds the continent > superregion > region > area tree with
// province counts at each level.
func (s *Store) Hierarchy() ([]model.HierarchyNode, error) {
	continents, err := s.ReadContinents()
	if err != nil {
		return nil, err
	}
	supers, err := s.ReadSuperRegions()
	if err != nil {
		return nil, err
	}
	regions, err := s.ReadRegions()
	if err != nil {
		return nil, err
	}
	areas, err := s.ReadAreas()
	if err != nil {
		return nil, err
	}
	areaCounts, err := s.countBy("SELECT area_id, COUNT(*) FROM provinces GROUP BY area_id")
	if err != nil {
		return nil, err
	}

	regionAreas := make(map[int][]model.HierarchyNode)
	for _, a := range areas {
		regionAreas[a.RegionID] = append(regionAreas[a.RegionID], model.HierarchyNode{
			ID: a.ID, Name: a.Name, Kind: "area", Count: areaCounts[a.ID],
		})
	}
	superRegions := make(map[int][]model.HierarchyNode)
	for _, r := range regions {
		n := model.HierarchyNode{ID: r.ID, Name: r.Name, Kind: "region", Children: regionAreas[r.ID]}
		n.Count = sumCounts(n.Children)
		superRegions[r.SuperRegionID] = append(superRegions[r.SuperRegionID], n)
	}
	continentSupers := make(map[int][]model.HierarchyNode)
	for _, sr := range supers {
		n := model.HierarchyNode{ID: sr.ID, Name: sr.Name, Kind: "superregion", Children: superRegions[sr.ID]}
		n.Count = sumCounts(n.Children)
		continentSupers[sr.ContinentID] = append(continentSupers[sr.ContinentID], n)
	}

	var out []model.HierarchyNode
	for _, c := range continents {
		n := model.HierarchyNode{ID: c.ID, Name: c.Name, Kind: "continent", Children: continentSupers[c.ID]}
		n.Count = sumCounts(n.Children)
		out = append(out, n)
	}
	return out, nil
}

func sumCounts(nodes []model.HierarchyNode) int {
	total := 0
	for _, n := range nodes {
		total += n.Count
	}
	return total
}

func (s *Store) countBy(query string) (map[int]int, error) {
	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]int)
	for rows.Next() {
		var k, n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

// ProvinceCount returns the number of imported provinces.
func (s *Store) ProvinceCount() int {
	return s.count("SELECT COUNT(*) FROM provinces")
}

// PromptCount returns the number of provinces with a prompt.
func (s *Store) PromptCount() int {
	return s.count("SELECT COUNT(*) FROM provinces WHERE COALESCE(prompt, '') <> ''")
}

// ImageCount returns the number of provinces with an image.
func (s *Store) ImageCount() int {
	return s.count("SELECT COUNT(*) FROM provinces WHERE COALESCE(image_url, '') <> ''")
}

// DescriptionCount returns the number of provinces with a wiki description.
func (s *Store) DescriptionCount() int {
	return s.count("SELECT COUNT(*) FROM provinces WHERE COALESCE(description, '') <> ''")
}

// TableCount returns the row count of one hierarchy table.
func (s *Store) TableCount(table string) int {
	for _, t := range geographyTables {
		if t == table {
			return s.count(fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		}
	}
	return 0
}

// ProgressByContinent returns per-continent province, prompt and image counts.
func (s *Store) ProgressByContinent() (map[string][3]int, error) {
	rows, err := s.DB.Query(`SELECT COALESCE(c.name, sc.name, ''),
			COUNT(*),
			CAST(SUM(CASE WHEN COALESCE(p.prompt, '') <> '' THEN 1 ELSE 0 END) AS BIGINT),
			CAST(SUM(CASE WHEN COALESCE(p.image_url, '') <> '' THEN 1 ELSE 0 END) AS BIGINT)
		FROM provinces p
		JOIN areas a ON a.id = p.area_id
		JOIN regions r ON r.id = a.region_id
		JOIN super_regions sr ON sr.id = r.super_region_id
		LEFT JOIN continents c ON c.id = p.continent_id
		LEFT JOIN continents sc ON sc.id = sr.continent_id
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][3]int)
	for rows.Next() {
		var name string
		var total, prompts, images int
		if err := rows.Scan(&name, &total, &prompts, &images); err != nil {
			return nil, err
		}
		out[name] = [3]int{total, prompts, images}
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}
