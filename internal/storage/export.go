package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/krotov/internal/pulse"
)

type ExportData struct {
	Run       RunMetadata  `json:"run"`
	Midpoints []float64    `json:"midpoints"`
	Controls  pulse.Table  `json:"controls"`
	History   []HistoryRow `json:"history"`
}

// Export gathers everything stored for a run.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	times, table, err := s.LoadPulses(runID)
	if err != nil {
		return nil, err
	}
	hist, err := s.LoadHistory(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: *meta, Midpoints: times, Controls: table, History: hist}, nil
}

func (d *ExportData) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

func (d *ExportData) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return d.WriteJSON(file)
}
