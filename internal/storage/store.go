// Package storage persists runs as a directory holding metadata.json and
// trajectory.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/dynopt/internal/config"
	"github.com/san-kum/dynopt/internal/problem"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Integrator string             `json:"integrator"`
	Control    string             `json:"control"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Horizon    int                `json:"horizon"`
	NX         int                `json:"nx"`
	NU         int                `json:"nu"`
	TotalCost  float64            `json:"total_cost"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Trajectory is the content of trajectory.csv. The terminal node has no
// control, so Controls is one shorter than States.
type Trajectory struct {
	States   [][]float64
	Controls [][]float64
	Costs    []float64
}

// NewMetadata describes a run of cfg that produced res.
func NewMetadata(cfg *config.Config, res problem.Result, metrics map[string]float64) RunMetadata {
	meta := RunMetadata{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		Control:    cfg.Control,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Horizon:    cfg.Horizon,
		TotalCost:  res.Total,
		Metrics:    metrics,
	}
	if len(res.States) > 0 {
		meta.NX = res.States[0].Len()
	}
	if len(res.Controls) > 0 {
		meta.NU = res.Controls[0].Len()
	}
	return meta
}

// Save writes a new run and returns its ID. meta.ID and meta.Timestamp are
// filled in by Save.
func (s *Store) Save(meta RunMetadata, res problem.Result) (string, error) {
	meta.Timestamp = s.now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, meta.Timestamp.UnixNano())
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), res); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
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

func writeTrajectory(path string, res problem.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(res.States) == 0 {
		w.Flush()
		return w.Error()
	}

	nx := res.States[0].Len()
	nu := 0
	if len(res.Controls) > 0 {
		nu = res.Controls[0].Len()
	}

	header := []string{"node"}
	for i := 0; i < nx; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < nu; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	header = append(header, "cost")
	if err := w.Write(header); err != nil {
		return err
	}

	for k, x := range res.States {
		row := []string{strconv.Itoa(k)}
		for i := 0; i < nx; i++ {
			row = append(row, formatFloat(x.AtVec(i)))
		}
		for i := 0; i < nu; i++ {
			if k < len(res.Controls) && i < res.Controls[k].Len() {
				row = append(row, formatFloat(res.Controls[k].AtVec(i)))
			} else {
				row = append(row, "")
			}
		}
		cost := ""
		if k < len(res.Costs) {
			cost = formatFloat(res.Costs[k])
		}
		row = append(row, cost)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
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
	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Timestamp.Compare(b.Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	traj := &Trajectory{}
	if len(records) < 2 {
		return traj, nil
	}

	nx, nu := 0, 0
	for _, col := range records[0] {
		switch {
		case strings.HasPrefix(col, "x"):
			nx++
		case strings.HasPrefix(col, "u"):
			nu++
		}
	}

	parse := func(fields []string) ([]float64, error) {
		out := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	for line, record := range records[1:] {
		x, err := parse(record[1 : 1+nx])
		if err != nil {
			return nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
		}
		traj.States = append(traj.States, x)

		if fields := record[1+nx : 1+nx+nu]; nu > 0 && fields[0] != "" {
			u, err := parse(fields)
			if err != nil {
				return nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
			}
			traj.Controls = append(traj.Controls, u)
		}

		if c := record[1+nx+nu]; c != "" {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
			}
			traj.Costs = append(traj.Costs, v)
		}
	}
	return traj, nil
}

// Column returns component i of every state.
func (t *Trajectory) Column(i int) []float64 {
	out := make([]float64, 0, len(t.States))
	for _, x := range t.States {
		if i < len(x) {
			out = append(out, x[i])
		}
	}
	return out
}
