package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"subway-network/internal/subway"
)

func (s *Store) CreateStation(ctx context.Context, name string) (subway.Station, error) {
	const op = "db.create_station"
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`INSERT INTO stations (name) VALUES ($1) RETURNING id`), name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return subway.Station{}, subway.Errorf(op, subway.KindDuplicateName, "station %q exists", name)
		}
		return subway.Station{}, fmt.Errorf("%s: %w", op, err)
	}
	return subway.Station{ID: id, Name: name}, nil
}

func (s *Store) LoadStation(ctx context.Context, id int64) (subway.Station, error) {
	const op = "db.load_station"
	st := subway.Station{}
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name FROM stations WHERE id = $1`), id).Scan(&st.ID, &st.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return subway.Station{}, notFound(op, "station", id)
	}
	if err != nil {
		return subway.Station{}, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

func (s *Store) ListStations(ctx context.Context) ([]subway.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db.list_stations: %w", err)
	}
	defer rows.Close()

	out := []subway.Station{}
	for rows.Next() {
		var st subway.Station
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) RenameStation(ctx context.Context, id int64, name string) (subway.Station, error) {
	const op = "db.rename_station"
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE stations SET name = $1 WHERE id = $2`), name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return subway.Station{}, subway.Errorf(op, subway.KindDuplicateName, "station %q exists", name)
		}
		return subway.Station{}, fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subway.Station{}, notFound(op, "station", id)
	}
	return subway.Station{ID: id, Name: name}, nil
}

// DeleteStation removes a station that no line runs through.
func (s *Store) DeleteStation(ctx context.Context, id int64) error {
	const op = "db.delete_station"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var lineID int64
	err = tx.QueryRowContext(ctx, s.rebind(`
		SELECT line_id FROM sections
		WHERE up_station_id = $1 OR down_station_id = $1
		LIMIT 1`), id).Scan(&lineID)
	switch {
	case err == nil:
		return subway.Errorf(op, subway.KindStationInUse, "station %d is on line %d", id, lineID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM stations WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(op, "station", id)
	}
	return tx.Commit()
}
