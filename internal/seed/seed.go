// Package seed loads a YAML description of a network and replays it through
// the network manager, so seeded lines obey the same section rules as edits
// made over HTTP.
//
//	stations: [Gangnam, Yangjae]
//	lines:
//	  - name: Shinbundang
//	    color: red
//	    sections:
//	      - {up: Gangnam, down: Yangjae, distance: 3}
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"subway-network/internal/network"
	"subway-network/internal/subway"
)

type Fixture struct {
	Stations []string `yaml:"stations"`
	Lines    []Line   `yaml:"lines"`
}

type Line struct {
	Name     string    `yaml:"name"`
	Color    string    `yaml:"color"`
	Sections []Section `yaml:"sections"`
}

type Section struct {
	Up       string `yaml:"up"`
	Down     string `yaml:"down"`
	Distance int    `yaml:"distance"`
}

// Summary counts what Apply created and what it found already present.
type Summary struct {
	StationsCreated int
	LinesCreated    int
	SectionsAdded   int
	LinesSkipped    int
}

func LoadFile(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	f, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a fixture, rejecting unknown keys.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, err
	}
	for i, l := range f.Lines {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("line %d: name is required", i)
		}
		if len(l.Sections) == 0 {
			return nil, fmt.Errorf("line %q: at least one section is required", l.Name)
		}
	}
	return &f, nil
}

// Apply creates missing stations and lines. Lines whose name already exists
// are left alone, which makes re-seeding a running database harmless.
func Apply(ctx context.Context, m *network.Manager, f *Fixture, log *slog.Logger) (Summary, error) {
	var sum Summary

	existing, err := m.Stations(ctx)
	if err != nil {
		return sum, err
	}
	byName := make(map[string]subway.Station, len(existing))
	for _, st := range existing {
		byName[st.Name] = st
	}
	station := func(name string) (subway.Station, error) {
		name, err := subway.NormalizeName("seed.station", name)
		if err != nil {
			return subway.Station{}, err
		}
		if st, ok := byName[name]; ok {
			return st, nil
		}
		st, err := m.CreateStation(ctx, name)
		if err != nil {
			return subway.Station{}, err
		}
		byName[name] = st
		sum.StationsCreated++
		return st, nil
	}

	for _, name := range f.Stations {
		if _, err := station(name); err != nil {
			return sum, err
		}
	}

	lines, err := m.Lines(ctx)
	if err != nil {
		return sum, err
	}
	known := make(map[string]bool, len(lines))
	for _, l := range lines {
		known[l.Name] = true
	}

	for _, l := range f.Lines {
		if known[strings.TrimSpace(l.Name)] {
			log.Info("seed line exists, skipping", "line", l.Name)
			sum.LinesSkipped++
			continue
		}
		var lineID int64
		for i, sec := range l.Sections {
			up, err := station(sec.Up)
			if err != nil {
				return sum, fmt.Errorf("line %q section %d: %w", l.Name, i, err)
			}
			down, err := station(sec.Down)
			if err != nil {
				return sum, fmt.Errorf("line %q section %d: %w", l.Name, i, err)
			}
			if i == 0 {
				created, err := m.CreateLine(ctx, l.Name, l.Color, up.ID, down.ID, sec.Distance)
				if err != nil {
					return sum, fmt.Errorf("line %q: %w", l.Name, err)
				}
				lineID = created.ID
				sum.LinesCreated++
				continue
			}
			if _, err := m.AddSection(ctx, lineID, up.ID, down.ID, sec.Distance); err != nil {
				return sum, fmt.Errorf("line %q section %d (%s-%s): %w", l.Name, i, up.Name, down.Name, err)
			}
			sum.SectionsAdded++
		}
		log.Info("seeded line", "line", l.Name, "sections", len(l.Sections))
	}
	return sum, nil
}
