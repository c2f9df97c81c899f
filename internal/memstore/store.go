// Package memstore keeps stations and lines in process memory. It backs
// DATABASE_URL=memory and the tests of packages above the store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"subway-network/internal/subway"
)

type lineRow struct {
	id       int64
	name     string
	color    string
	sections []subway.Section
}

type Store struct {
	mu          sync.RWMutex
	stations    map[int64]subway.Station
	lines       map[int64]*lineRow
	nextStation int64
	nextLine    int64
	nextSection int64
}

func New() *Store {
	return &Store{
		stations: make(map[int64]subway.Station),
		lines:    make(map[int64]*lineRow),
	}
}

func (s *Store) CreateStation(_ context.Context, name string) (subway.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stations {
		if st.Name == name {
			return subway.Station{}, subway.Errorf("memstore.create_station", subway.KindDuplicateName, "station %q exists", name)
		}
	}
	s.nextStation++
	st := subway.Station{ID: s.nextStation, Name: name}
	s.stations[st.ID] = st
	return st, nil
}

func (s *Store) LoadStation(_ context.Context, id int64) (subway.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return subway.Station{}, subway.Errorf("memstore.load_station", subway.KindNotFound, "station %d", id)
	}
	return st, nil
}

func (s *Store) ListStations(_ context.Context) ([]subway.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]subway.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RenameStation(_ context.Context, id int64, name string) (subway.Station, error) {
	const op = "memstore.rename_station"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stations[id]; !ok {
		return subway.Station{}, subway.Errorf(op, subway.KindNotFound, "station %d", id)
	}
	for _, st := range s.stations {
		if st.Name == name && st.ID != id {
			return subway.Station{}, subway.Errorf(op, subway.KindDuplicateName, "station %q exists", name)
		}
	}
	st := subway.Station{ID: id, Name: name}
	s.stations[id] = st
	// sections embed station values
	for _, l := range s.lines {
		for i := range l.sections {
			if l.sections[i].Up.ID == id {
				l.sections[i].Up = st
			}
			if l.sections[i].Down.ID == id {
				l.sections[i].Down = st
			}
		}
	}
	return st, nil
}

func (s *Store) DeleteStation(_ context.Context, id int64) error {
	const op = "memstore.delete_station"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stations[id]; !ok {
		return subway.Errorf(op, subway.KindNotFound, "station %d", id)
	}
	for _, l := range s.lines {
		for _, sec := range l.sections {
			if sec.Up.ID == id || sec.Down.ID == id {
				return subway.Errorf(op, subway.KindStationInUse, "station %d is on line %d", id, l.id)
			}
		}
	}
	delete(s.stations, id)
	return nil
}

func (s *Store) CreateLine(_ context.Context, line subway.Line) (subway.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.name == line.Name {
			return subway.Line{}, subway.Errorf("memstore.create_line", subway.KindDuplicateName, "line %q exists", line.Name)
		}
	}
	s.nextLine++
	row := &lineRow{id: s.nextLine, name: line.Name, color: line.Color}
	row.sections = s.assignIDs(row.id, line.Sections.All())
	s.lines[row.id] = row
	return row.toLine()
}

func (s *Store) LoadLine(_ context.Context, id int64) (subway.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.lines[id]
	if !ok {
		return subway.Line{}, subway.Errorf("memstore.load_line", subway.KindNotFound, "line %d", id)
	}
	return row.toLine()
}

func (s *Store) LoadAllLines(_ context.Context) ([]subway.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]subway.Line, 0, len(s.lines))
	for _, row := range s.lines {
		l, err := row.toLine()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateLine(_ context.Context, id int64, name, color string) (subway.Line, error) {
	const op = "memstore.update_line"
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.lines[id]
	if !ok {
		return subway.Line{}, subway.Errorf(op, subway.KindNotFound, "line %d", id)
	}
	for _, l := range s.lines {
		if l.name == name && l.id != id {
			return subway.Line{}, subway.Errorf(op, subway.KindDuplicateName, "line %q exists", name)
		}
	}
	row.name, row.color = name, color
	return row.toLine()
}

func (s *Store) DeleteLine(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		return subway.Errorf("memstore.delete_line", subway.KindNotFound, "line %d", id)
	}
	delete(s.lines, id)
	return nil
}

func (s *Store) SaveSections(_ context.Context, lineID int64, sections subway.Sections) (subway.Sections, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.lines[lineID]
	if !ok {
		return subway.Sections{}, subway.Errorf("memstore.save_sections", subway.KindNotFound, "line %d", lineID)
	}
	row.sections = s.assignIDs(lineID, sections.All())
	return subway.NewSections(row.sections...)
}

// assignIDs stamps the line id on every section and gives new ones an id.
// Callers hold s.mu.
func (s *Store) assignIDs(lineID int64, list []subway.Section) []subway.Section {
	for i := range list {
		list[i].LineID = lineID
		if list[i].ID == 0 {
			s.nextSection++
			list[i].ID = s.nextSection
		}
	}
	return list
}

func (r *lineRow) toLine() (subway.Line, error) {
	secs, err := subway.NewSections(r.sections...)
	if err != nil {
		return subway.Line{}, err
	}
	return subway.Line{ID: r.id, Name: r.name, Color: r.color, Sections: secs}, nil
}
