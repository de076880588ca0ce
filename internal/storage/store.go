package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/san-kum/krotov/internal/checkpoint"
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/pulse"
)

const (
	metadataFile   = "metadata.json"
	pulsesFile     = "pulses.csv"
	historyFile    = "history.csv"
	checkpointFile = "checkpoint.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

var ErrInvalidID = errors.New("storage: invalid run id")

// Dir returns the directory of a run. The id must be a single path element
// naming an entry inside the store.
func (s *Store) Dir(runID string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) file(runID, name string) (string, error) {
	dir, err := s.Dir(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Model       string             `json:"model"`
	Timestamp   time.Time          `json:"timestamp"`
	Functional  string             `json:"functional"`
	Propagator  string             `json:"propagator"`
	Scheme      string             `json:"scheme"`
	Lambda      float64            `json:"lambda"`
	Steps       int                `json:"steps"`
	Duration    float64            `json:"duration"`
	Iterations  int                `json:"iterations"`
	Value       float64            `json:"value"`
	Reason      string             `json:"reason"`
	Message     string             `json:"message,omitempty"`
	ResumedFrom string             `json:"resumed_from,omitempty"`
	Elapsed     time.Duration      `json:"elapsed"`
	Metrics     map[string]float64 `json:"metrics"`
	// Config is the run configuration, kept so the run can be resumed.
	Config *config.Config `json:"config,omitempty"`
}

// NewID returns a fresh run id for model.
func NewID(model string) string {
	return fmt.Sprintf("%s_%s", model, xid.New().String())
}

// HistoryRow is one line of history.csv. The first row is the guess.
type HistoryRow struct {
	Iteration    int           `json:"iteration"`
	Value        float64       `json:"value"`
	Delta        float64       `json:"delta"`
	Total        float64       `json:"total"`
	Propagations int64         `json:"propagations"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Save writes a finished run and returns its id. An empty meta.ID gets a new
// id. Fields of meta that the result determines are filled in from res.
func (s *Store) Save(meta RunMetadata, res *krotov.Result) (string, error) {
	runID := meta.ID
	if runID == "" {
		runID = NewID(meta.Model)
	}
	runDir, err := s.Dir(runID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Steps = res.Grid.Steps()
	meta.Duration = res.Grid.Duration()
	meta.Iterations = res.Iterations
	meta.Value = res.Value
	meta.Reason = res.Reason.String()
	meta.Message = res.Message
	meta.Elapsed = res.Duration()
	if meta.Metrics == nil {
		meta.Metrics = map[string]float64{}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writePulses(filepath.Join(runDir, pulsesFile), res); err != nil {
		return "", err
	}
	if err := writeHistory(filepath.Join(runDir, historyFile), res); err != nil {
		return "", err
	}
	if err := checkpoint.Save(filepath.Join(runDir, checkpointFile), checkpoint.FromResult(res)); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writePulses(path string, res *krotov.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	names := res.Controls.Names()
	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	for n, t := range res.Grid.Midpoints() {
		row := []string{formatFloat(t)}
		for _, name := range names {
			row = append(row, formatFloat(res.Controls[name][n]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeHistory(path string, res *krotov.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"iteration", "value", "delta", "total", "propagations", "elapsed_ms"}); err != nil {
		return err
	}
	records := res.History
	if res.Guess != nil {
		records = append([]krotov.IterationRecord{*res.Guess}, records...)
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Iteration),
			formatFloat(rec.Value),
			formatFloat(rec.Delta),
			formatFloat(rec.Total),
			strconv.FormatInt(rec.Propagations, 10),
			formatFloat(float64(rec.Elapsed) / float64(time.Millisecond)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns all runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	path, err := s.file(runID, metadataFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadPulses returns the interval midpoints and the control values on them.
func (s *Store) LoadPulses(runID string) ([]float64, pulse.Table, error) {
	path, err := s.file(runID, pulsesFile)
	if err != nil {
		return nil, nil, err
	}
	records, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: %s has no header", pulsesFile)
	}

	header := records[0]
	times := make([]float64, 0, len(records)-1)
	table := make(pulse.Table, len(header)-1)
	for _, name := range header[1:] {
		table[name] = make([]float64, 0, len(records)-1)
	}

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, nil, fmt.Errorf("storage: %s row %d has %d fields, want %d", pulsesFile, i+1, len(record), len(header))
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s row %d: %w", pulsesFile, i+1, err)
		}
		times = append(times, t)
		for j, name := range header[1:] {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s row %d: %w", pulsesFile, i+1, err)
			}
			table[name] = append(table[name], v)
		}
	}
	return times, table, nil
}

func (s *Store) LoadHistory(runID string) ([]HistoryRow, error) {
	path, err := s.file(runID, historyFile)
	if err != nil {
		return nil, err
	}
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []HistoryRow{}, nil
	}

	rows := make([]HistoryRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 6 {
			return nil, fmt.Errorf("storage: %s row %d has %d fields", historyFile, i+1, len(record))
		}
		var row HistoryRow
		var ms float64
		row.Iteration, err = strconv.Atoi(record[0])
		if err == nil {
			row.Value, err = strconv.ParseFloat(record[1], 64)
		}
		if err == nil {
			row.Delta, err = strconv.ParseFloat(record[2], 64)
		}
		if err == nil {
			row.Total, err = strconv.ParseFloat(record[3], 64)
		}
		if err == nil {
			row.Propagations, err = strconv.ParseInt(record[4], 10, 64)
		}
		if err == nil {
			ms, err = strconv.ParseFloat(record[5], 64)
		}
		if err != nil {
			return nil, fmt.Errorf("storage: %s row %d: %w", historyFile, i+1, err)
		}
		row.Elapsed = time.Duration(ms * float64(time.Millisecond))
		rows = append(rows, row)
	}
	return rows, nil
}

// Checkpoint loads the resume point saved with a run.
func (s *Store) Checkpoint(runID string) (*checkpoint.Checkpoint, error) {
	path, err := s.file(runID, checkpointFile)
	if err != nil {
		return nil, err
	}
	return checkpoint.Load(path)
}
