// Package baseline provides profile baseline save/load and drift detection.
package baseline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const ext = ".json"

// Baseline is a snapshot of the per-frame sample distribution of a profile.
type Baseline struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Hostname  string                 `json:"hostname"`
	Source    string                 `json:"source,omitempty"`
	Total     uint64                 `json:"total"`
	Frames    []flamegraph.FrameStat `json:"frames"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// DefaultDir returns the default baseline storage directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".foldjson", "baselines")
	}
	return filepath.Join(home, ".foldjson", "baselines")
}

// New creates a baseline holding every frame of t.
func New(name string, t *flamegraph.Tree) *Baseline {
	hostname, _ := os.Hostname()
	s := flamegraph.Summarize(t, -1)
	return &Baseline{
		Name:      name,
		Timestamp: time.Now(),
		Hostname:  hostname,
		Total:     s.Total,
		Frames:    s.Top,
	}
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return errors.Errorf("invalid baseline name %q", name)
	}
	return nil
}

// Save writes the baseline to dir/<name>.json.
func (b *Baseline) Save(dir string) error {
	if err := validName(b.Name); err != nil {
		return err
	}
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "cannot create baseline directory")
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal baseline")
	}
	path := filepath.Join(dir, b.Name+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "cannot write baseline")
	}
	return nil
}

// Load reads a baseline saved under name.
func Load(name, dir string) (*Baseline, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = DefaultDir()
	}
	data, err := os.ReadFile(filepath.Join(dir, name+ext))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read baseline %q", name)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(err, "cannot parse baseline")
	}
	return &b, nil
}

// List returns all saved baseline names, sorted.
func List(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cannot list baselines")
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names, nil
}
