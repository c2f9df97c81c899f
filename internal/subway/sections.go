package subway

// Sections is the route of one line: a chain of sections forming a single
// simple path. The chain is kept in travel order, from the terminal that is
// nobody's Down station to the terminal that is nobody's Up station.
//
// A Sections value is never modified in place. Add and Remove return a new
// value and leave the receiver untouched, so a caller can swap the whole
// aggregate on success and keep the old one on failure.
type Sections struct {
	list []Section
}

// NewSections orders an unordered set of sections into a chain.
func NewSections(list ...Section) (Sections, error) {
	sorted, err := Sort(list)
	if err != nil {
		return Sections{}, err
	}
	return Sections{list: sorted}, nil
}

// Sort returns list in travel order. It fails with KindInvalidTopology when
// the set is empty, holds a section without a positive distance, or does not
// form one simple chain.
func Sort(list []Section) ([]Section, error) {
	const op = "sections.sort"
	if len(list) == 0 {
		return nil, Errorf(op, KindInvalidTopology, "no sections")
	}

	byUp := make(map[int64]Section, len(list))
	downs := make(map[int64]struct{}, len(list))
	for _, sec := range list {
		if sec.Up.ID == sec.Down.ID {
			return nil, Errorf(op, KindInvalidTopology, "section %d loops on station %d", sec.ID, sec.Up.ID)
		}
		if sec.Distance <= 0 {
			return nil, Errorf(op, KindInvalidTopology, "section %d has distance %d", sec.ID, sec.Distance)
		}
		if _, dup := byUp[sec.Up.ID]; dup {
			return nil, Errorf(op, KindInvalidTopology, "chain branches at station %d", sec.Up.ID)
		}
		if _, dup := downs[sec.Down.ID]; dup {
			return nil, Errorf(op, KindInvalidTopology, "chain merges at station %d", sec.Down.ID)
		}
		byUp[sec.Up.ID] = sec
		downs[sec.Down.ID] = struct{}{}
	}

	var first Section
	starts := 0
	for _, sec := range list {
		if _, ok := downs[sec.Up.ID]; !ok {
			first = sec
			starts++
		}
	}
	if starts != 1 {
		return nil, Errorf(op, KindInvalidTopology, "expected one start terminal, found %d", starts)
	}

	sorted := make([]Section, 0, len(list))
	for cur, ok := first, true; ok; cur, ok = byUp[cur.Down.ID] {
		sorted = append(sorted, cur)
	}
	if len(sorted) != len(list) {
		return nil, Errorf(op, KindInvalidTopology, "chain covers %d of %d sections", len(sorted), len(list))
	}
	return sorted, nil
}

func (s Sections) Len() int { return len(s.list) }

// All returns a copy of the sections in travel order.
func (s Sections) All() []Section {
	out := make([]Section, len(s.list))
	copy(out, s.list)
	return out
}

// Stations returns the stations of the line in travel order. Its length is
// always Len()+1 for a non-empty chain.
func (s Sections) Stations() []Station {
	if len(s.list) == 0 {
		return nil
	}
	out := make([]Station, 0, len(s.list)+1)
	out = append(out, s.list[0].Up)
	for _, sec := range s.list {
		out = append(out, sec.Down)
	}
	return out
}

func (s Sections) Contains(stationID int64) bool {
	for _, sec := range s.list {
		if sec.Up.ID == stationID || sec.Down.ID == stationID {
			return true
		}
	}
	return false
}

func (s Sections) TotalDistance() int {
	total := 0
	for _, sec := range s.list {
		total += sec.Distance
	}
	return total
}

// Add inserts sec into the chain. Exactly one of its stations must already be
// on the line. When the known station sits inside the chain the neighbouring
// section is split and sec.Distance must be shorter than it; when the known
// station is a terminal the chain is extended. A section that loops or has no
// positive distance is rejected with KindInvalidArgument before any of that.
func (s Sections) Add(sec Section) (Sections, error) {
	const op = "sections.add"
	if err := sec.validate(op); err != nil {
		return s, err
	}
	hasUp, hasDown := s.Contains(sec.Up.ID), s.Contains(sec.Down.ID)
	switch {
	case hasUp && hasDown:
		return s, Errorf(op, KindDuplicateConnection, "stations %d and %d are already on the line", sec.Up.ID, sec.Down.ID)
	case !hasUp && !hasDown:
		return s, Errorf(op, KindDisconnectedInsertion, "neither station %d nor %d is on the line", sec.Up.ID, sec.Down.ID)
	}

	for i, cur := range s.list {
		if hasUp && cur.Up.ID == sec.Up.ID {
			if sec.Distance >= cur.Distance {
				return s, Errorf(op, KindDistanceExceedsSegment, "distance %d does not fit in section %d-%d of %d", sec.Distance, cur.Up.ID, cur.Down.ID, cur.Distance)
			}
			rest := Section{LineID: cur.LineID, Up: sec.Down, Down: cur.Down, Distance: cur.Distance - sec.Distance}
			return s.splice(i, sec, rest), nil
		}
		if hasDown && cur.Down.ID == sec.Down.ID {
			if sec.Distance >= cur.Distance {
				return s, Errorf(op, KindDistanceExceedsSegment, "distance %d does not fit in section %d-%d of %d", sec.Distance, cur.Up.ID, cur.Down.ID, cur.Distance)
			}
			head := Section{LineID: cur.LineID, Up: cur.Up, Down: sec.Up, Distance: cur.Distance - sec.Distance}
			return s.splice(i, head, sec), nil
		}
	}

	n := len(s.list)
	switch {
	case hasDown && s.list[0].Up.ID == sec.Down.ID:
		next := make([]Section, 0, n+1)
		next = append(next, sec)
		return Sections{list: append(next, s.list...)}, nil
	case hasUp && s.list[n-1].Down.ID == sec.Up.ID:
		next := make([]Section, 0, n+1)
		next = append(next, s.list...)
		return Sections{list: append(next, sec)}, nil
	}
	return s, Errorf(op, KindDisconnectedInsertion, "no attachment point for %d-%d", sec.Up.ID, sec.Down.ID)
}

// Remove takes a station out of the line. A terminal drops its single
// section; an interior station merges its two sections into one whose
// distance is their sum. A line never shrinks below one section.
func (s Sections) Remove(stationID int64) (Sections, error) {
	const op = "sections.remove"
	if !s.Contains(stationID) {
		return s, Errorf(op, KindStationNotOnLine, "station %d", stationID)
	}
	n := len(s.list)
	if n < 2 {
		return s, Errorf(op, KindMinimumSectionViolation, "line has %d section", n)
	}

	switch {
	case s.list[0].Up.ID == stationID:
		return Sections{list: cloneSections(s.list[1:])}, nil
	case s.list[n-1].Down.ID == stationID:
		return Sections{list: cloneSections(s.list[:n-1])}, nil
	}

	for i := 0; i+1 < n; i++ {
		before, after := s.list[i], s.list[i+1]
		if before.Down.ID != stationID {
			continue
		}
		merged := Section{
			LineID:   before.LineID,
			Up:       before.Up,
			Down:     after.Down,
			Distance: before.Distance + after.Distance,
		}
		next := make([]Section, 0, n-1)
		next = append(next, s.list[:i]...)
		next = append(next, merged)
		next = append(next, s.list[i+2:]...)
		return Sections{list: next}, nil
	}
	return s, Errorf(op, KindInvalidTopology, "station %d is on the line but not in the chain", stationID)
}

// splice replaces the section at i with the given ones.
func (s Sections) splice(i int, with ...Section) Sections {
	next := make([]Section, 0, len(s.list)-1+len(with))
	next = append(next, s.list[:i]...)
	next = append(next, with...)
	next = append(next, s.list[i+1:]...)
	return Sections{list: next}
}

func cloneSections(list []Section) []Section {
	out := make([]Section, len(list))
	copy(out, list)
	return out
}
