package guiscale

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
)

// Report is the JSON summary of the calibrated factors for one resolution.
type Report struct {
	Resolution  string                           `json:"resolution"`
	GeneratedAt time.Time                        `json:"generated_at"`
	Global      map[string]float64               `json:"global"`
	Files       map[string]map[string]FactorStat `json:"files"`
}

// FactorStat is one file/property entry of a Report.
type FactorStat struct {
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// NewReport groups factors by file and property.
func NewReport(resolution string, factors []model.ScalingFactor, global map[string]float64) *Report {
	r := &Report{
		Resolution:  resolution,
		GeneratedAt: time.Now().UTC(),
		Global:      global,
		Files:       make(map[string]map[string]FactorStat),
	}
	if r.Global == nil {
		r.Global = map[string]float64{}
	}
	for _, f := range factors {
		props := r.Files[f.FilePath]
		if props == nil {
			props = make(map[string]FactorStat)
			r.Files[f.FilePath] = props
		}
		props[f.Property] = FactorStat{Mean: f.Mean, Median: f.Median, StdDev: f.StdDev, Min: f.Min, Max: f.Max, Samples: f.Samples}
	}
	return r
}

// ReportPath is the file name a report for resolution is written to in dir.
func ReportPath(dir, resolution string) string {
	return filepath.Join(dir, resolution+"_scaling_report.json")
}

// Write stores the report as indented JSON at ReportPath(dir, r.Resolution).
func (r *Report) Write(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.WrapIO("creating "+dir, err)
	}
	path := ReportPath(dir, r.Resolution)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", apperr.WrapIO("writing "+path, err)
	}
	return path, nil
}
