package subway

// Section is one track segment of a line, directed from Up to Down.
// Distance is the physical length and is always positive.
type Section struct {
	ID       int64
	LineID   int64
	Up       Station
	Down     Station
	Distance int
}

// NewSection validates the endpoints and distance of a segment that is about
// to be handed to a Sections aggregate.
func NewSection(lineID int64, up, down Station, distance int) (Section, error) {
	sec := Section{LineID: lineID, Up: up, Down: down, Distance: distance}
	if err := sec.validate("section.new"); err != nil {
		return Section{}, err
	}
	return sec, nil
}

func (s Section) validate(op string) error {
	if s.Up.ID == s.Down.ID {
		return Errorf(op, KindInvalidArgument, "up and down station are both %d", s.Up.ID)
	}
	if s.Distance <= 0 {
		return Errorf(op, KindInvalidArgument, "distance must be positive, got %d", s.Distance)
	}
	return nil
}
