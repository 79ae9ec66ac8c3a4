package store

import (
	"fmt"

	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
)

// WriteOriginalValues replaces the stored positional values of one GUI file.
func (s *Store) WriteOriginalValues(filePath string, values []model.OriginalValue) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM gui_original_values WHERE file_path = ?", filePath); err != nil {
		return err
	}
	for _, v := range values {
		if _, err := tx.Exec("INSERT INTO gui_original_values (file_path, property, ordinal, value) VALUES (?, ?, ?, ?)",
			filePath, v.Property, v.Position, v.Value); err != nil {
			return fmt.Errorf("inserting %s %s[%d]: %w", filePath, v.Property, v.Position, err)
		}
	}
	return tx.Commit()
}

// OriginalValueCounts returns the number of stored values per GUI file.
func (s *Store) OriginalValueCounts() (map[string]int, error) {
	rows, err := s.DB.Query("SELECT file_path, COUNT(*) FROM gui_original_values GROUP BY file_path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var path string
		var n int
		if err := rows.Scan(&path, &n); err != nil {
			return nil, err
		}
		out[path] = n
	}
	return out, rows.Err()
}

// WriteScalingFactors upserts calibrated factors.
func (s *Store) WriteScalingFactors(factors []model.ScalingFactor) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range factors {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO gui_scaling_factors
				(file_path, property, resolution, mean, median, std_dev, min, max, samples)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.FilePath, f.Property, f.Resolution, f.Mean, f.Median, f.StdDev, f.Min, f.Max, f.Samples); err != nil {
			return fmt.Errorf("inserting factor %s %s: %w", f.FilePath, f.Property, err)
		}
	}
	return tx.Commit()
}

// ReadScalingFactors loads all factors for a resolution ordered by file and property.
func (s *Store) ReadScalingFactors(resolution string) ([]model.ScalingFactor, error) {
	rows, err := s.DB.Query(`SELECT file_path, property, resolution, mean, median, std_dev, min, max, samples
		FROM gui_scaling_factors WHERE resolution = ? ORDER BY file_path, property`, resolution)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScalingFactor
	for rows.Next() {
		var f model.ScalingFactor
		if err := rows.Scan(&f.FilePath, &f.Property, &f.Resolution, &f.Mean, &f.Median, &f.StdDev, &f.Min, &f.Max, &f.Samples); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GlobalScalingFactors averages the per-file mean factor of each property.
func (s *Store) GlobalScalingFactors(resolution string) (map[string]float64, error) {
	rows, err := s.DB.Query(`SELECT property, AVG(mean) FROM gui_scaling_factors
		WHERE resolution = ? GROUP BY property`, resolution)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var prop string
		var mean float64
		if err := rows.Scan(&prop, &mean); err != nil {
			return nil, err
		}
		out[prop] = mean
	}
	return out, rows.Err()
}

// FileScalingFactors returns the mean factor per property calibrated for one file.
func (s *Store) FileScalingFactors(filePath, resolution string) (map[string]float64, error) {
	rows, err := s.DB.Query(`SELECT property, mean FROM gui_scaling_factors
		WHERE file_path = ? AND resolution = ?`, filePath, resolution)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var prop string
		var mean float64
		if err := rows.Scan(&prop, &mean); err != nil {
			return nil, err
		}
		out[prop] = mean
	}
	return out, rows.Err()
}
