// Package inventory reads activities, exchanges and characterization
// factors from YAML files and writes them into the store.
//
// A file looks like:
//
//	activities:
//	  - code: steel
//	    name: Steel production
//	    unit: kg
//	    inputs:
//	      - {code: elec, amount: 0.5}
//	    emissions:
//	      - {code: co2, amount: 3}
//	  - code: co2
//	    name: Carbon Dioxide
//	    type: emission
//	factors:
//	  - {method: GCC, flow: co2, factor: 1}
package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"wiser/scope/internal/db"
)

// Amount references another activity by code.
type Amount struct {
	Code   string  `yaml:"code"`
	Amount float64 `yaml:"amount"`
}

// Activity is one activity entry of an inventory file.
type Activity struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type,omitempty"`
	Location   string   `yaml:"location,omitempty"`
	Unit       string   `yaml:"unit,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Inputs     []Amount `yaml:"inputs,omitempty"`
	Emissions  []Amount `yaml:"emissions,omitempty"`
}

// Factor characterizes a flow under a method.
type Factor struct {
	Method string  `yaml:"method"`
	Flow   string  `yaml:"flow"`
	Factor float64 `yaml:"factor"`
}

// File is the parsed content of one inventory file.
type File struct {
	Path       string     `yaml:"-"`
	Activities []Activity `yaml:"activities"`
	Factors    []Factor   `yaml:"factors"`
}

// Parse decodes one inventory file.
func Parse(path string, data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path
	for i, a := range f.Activities {
		if a.Code == "" {
			return nil, fmt.Errorf("%s: activity %d has no code", path, i+1)
		}
	}
	return &f, nil
}

// LoadFS reads every file in fsys matching one of the patterns. Patterns use
// doublestar syntax, so "**/*.yml" matches at any depth. Files are returned
// in path order, each at most once.
func LoadFS(fsys fs.FS, patterns ...string) ([]*File, error) {
	seen := map[string]bool{}
	var paths []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("matching %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)

	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		f, err := Parse(p, data)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Store is the part of the inventory store Apply writes to.
// *db.DB satisfies it.
type Store interface {
	EnsureActivity(code, name string, opts db.CreateActivityOpts) (int64, bool, error)
	GetActivityByCode(code string) (*db.Activity, error)
	CreateExchange(consumerID, producerID int64, exchangeType string, amount float64) (int64, error)
	SetCharacterizationFactor(method string, flowID int64, factor float64) error
}

// Stats counts what Apply wrote.
type Stats struct {
	Files      int `json:"files"`
	Activities int `json:"activities"`
	Exchanges  int `json:"exchanges"`
	Factors    int `json:"factors"`
}

// Apply writes files into the store. All activities are created first so
// exchanges may reference activities defined in any of the files. Activities
// that already exist keep their stored attributes.
func Apply(store Store, files []*File) (Stats, error) {
	stats := Stats{Files: len(files)}
	for _, f := range files {
		for _, a := range f.Activities {
			name := a.Name
			if name == "" {
				name = a.Code
			}
			_, created, err := store.EnsureActivity(a.Code, name, db.CreateActivityOpts{
				Type:       a.Type,
				Location:   a.Location,
				Unit:       a.Unit,
				Categories: a.Categories,
			})
			if err != nil {
				return stats, fmt.Errorf("%s: %w", f.Path, err)
			}
			if created {
				stats.Activities++
			}
		}
	}

	ids := map[string]int64{}
	resolve := func(path, code string) (int64, error) {
		if id, ok := ids[code]; ok {
			return id, nil
		}
		a, err := store.GetActivityByCode(code)
		if errors.Is(err, db.ErrNotFound) {
			return 0, fmt.Errorf("%s: unknown activity %q", path, code)
		}
		if err != nil {
			return 0, err
		}
		ids[code] = a.ID
		return a.ID, nil
	}

	for _, f := range files {
		for _, a := range f.Activities {
			consumer, err := resolve(f.Path, a.Code)
			if err != nil {
				return stats, err
			}
			for _, group := range []struct {
				typ     string
				amounts []Amount
			}{
				{db.ExchangeTechnosphere, a.Inputs},
				{db.ExchangeBiosphere, a.Emissions},
			} {
				for _, in := range group.amounts {
					producer, err := resolve(f.Path, in.Code)
					if err != nil {
						return stats, err
					}
					if _, err := store.CreateExchange(consumer, producer, group.typ, in.Amount); err != nil {
						return stats, fmt.Errorf("%s: %w", f.Path, err)
					}
					stats.Exchanges++
				}
			}
		}
		for _, fc := range f.Factors {
			flow, err := resolve(f.Path, fc.Flow)
			if err != nil {
				return stats, err
			}
			if err := store.SetCharacterizationFactor(fc.Method, flow, fc.Factor); err != nil {
				return stats, err
			}
			stats.Factors++
		}
	}
	return stats, nil
}
