package store

import (
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
)

// WriteGeneration inserts or replaces one image-generation record.
func (s *Store) WriteGeneration(g *model.Generation) error {
	_, err := s.DB.Exec(`INSERT OR REPLACE INTO generations (id, province_id, model, prompt, status, output_url, local_path, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.ProvinceID, g.Model, g.Prompt, g.Status,
		nullString(g.OutputURL), nullString(g.LocalPath), nullString(g.Error), g.CreatedAt)
	return err
}

// ReadGenerations loads the generation history of a province, oldest first.
func (s *Store) ReadGenerations(provinceID int) ([]model.Generation, error) {
	rows, err := s.DB.Query(`SELECT id, province_id, model, prompt, status,
			COALESCE(output_url, ''), COALESCE(local_path, ''), COALESCE(error, ''), created_at
		FROM generations WHERE province_id = ? ORDER BY created_at, id`, provinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Generation
	for rows.Next() {
		var g model.Generation
		if err := rows.Scan(&g.ID, &g.ProvinceID, &g.Model, &g.Prompt, &g.Status,
			&g.OutputURL, &g.LocalPath, &g.Error, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GenerationCount returns the number of generation attempts with the given
// status, or all attempts when status is empty.
func (s *Store) GenerationCount(status string) int {
	if status == "" {
		return s.count("SELECT COUNT(*) FROM generations")
	}
	return s.count("SELECT COUNT(*) FROM generations WHERE status = ?", status)
}
