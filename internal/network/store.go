package network

import (
	"context"

	"subway-network/internal/subway"
)

// Store is the persistence collaborator. Implementations report missing rows
// with subway.KindNotFound, name clashes with subway.KindDuplicateName and
// deleting a station that a section still uses with subway.KindStationInUse.
type Store interface {
	CreateStation(ctx context.Context, name string) (subway.Station, error)
	LoadStation(ctx context.Context, id int64) (subway.Station, error)
	ListStations(ctx context.Context) ([]subway.Station, error)
	RenameStation(ctx context.Context, id int64, name string) (subway.Station, error)
	DeleteStation(ctx context.Context, id int64) error

	// CreateLine persists a new line and returns it with ids assigned.
	CreateLine(ctx context.Context, line subway.Line) (subway.Line, error)
	LoadLine(ctx context.Context, id int64) (subway.Line, error)
	// LoadAllLines returns every line from one consistent snapshot.
	LoadAllLines(ctx context.Context) ([]subway.Line, error)
	UpdateLine(ctx context.Context, id int64, name, color string) (subway.Line, error)
	DeleteLine(ctx context.Context, id int64) error
	// SaveSections replaces the line's route and returns it with ids assigned.
	SaveSections(ctx context.Context, lineID int64, sections subway.Sections) (subway.Sections, error)
}
