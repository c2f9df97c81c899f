package subway

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	// Sections.Add
	KindDuplicateConnection    Kind = "duplicate_connection"
	KindDisconnectedInsertion  Kind = "disconnected_insertion"
	KindDistanceExceedsSegment Kind = "distance_exceeds_segment"

	// Sections.Remove
	KindStationNotOnLine        Kind = "station_not_on_line"
	KindMinimumSectionViolation Kind = "minimum_section_violation"

	// path finding
	KindSameSourceAndTarget Kind = "same_source_and_target"
	KindStationNotFound     Kind = "station_not_found"
	KindNoPathExists        Kind = "no_path_exists"

	// chain could not be ordered
	KindInvalidTopology Kind = "invalid_topology"

	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindDuplicateName   Kind = "duplicate_name"
	KindStationInUse    Kind = "station_in_use"
)

// Error carries the operation that failed and its kind.
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf builds an *Error with a formatted message.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
