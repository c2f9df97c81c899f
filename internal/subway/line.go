package subway

// Line is a named route. It exclusively owns its Sections.
type Line struct {
	ID       int64
	Name     string
	Color    string
	Sections Sections
}

// NewLine creates a line whose route is the single section first.
func NewLine(id int64, name, color string, first Section) (Line, error) {
	n, err := NormalizeName("line.new", name)
	if err != nil {
		return Line{}, err
	}
	first.LineID = id
	if err := first.validate("line.new"); err != nil {
		return Line{}, err
	}
	secs, err := NewSections(first)
	if err != nil {
		return Line{}, err
	}
	return Line{ID: id, Name: n, Color: color, Sections: secs}, nil
}

// AddSection inserts sec into the route. On failure the line is unchanged.
func (l *Line) AddSection(sec Section) error {
	sec.LineID = l.ID
	next, err := l.Sections.Add(sec)
	if err != nil {
		return err
	}
	l.Sections = next
	return nil
}

// RemoveStation takes the station out of the route. On failure the line is
// unchanged.
func (l *Line) RemoveStation(stationID int64) error {
	next, err := l.Sections.Remove(stationID)
	if err != nil {
		return err
	}
	l.Sections = next
	return nil
}
