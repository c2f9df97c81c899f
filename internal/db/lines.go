package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"subway-network/internal/subway"
)

const sectionColumns = `
	SELECT s.id, s.line_id, s.distance, u.id, u.name, d.id, d.name
	FROM sections s
	JOIN stations u ON u.id = s.up_station_id
	JOIN stations d ON d.id = s.down_station_id`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanSections(rows *sql.Rows) (map[int64][]subway.Section, error) {
	defer rows.Close()
	byLine := make(map[int64][]subway.Section)
	for rows.Next() {
		var sec subway.Section
		if err := rows.Scan(&sec.ID, &sec.LineID, &sec.Distance,
			&sec.Up.ID, &sec.Up.Name, &sec.Down.ID, &sec.Down.Name); err != nil {
			return nil, err
		}
		byLine[sec.LineID] = append(byLine[sec.LineID], sec)
	}
	return byLine, rows.Err()
}

func (s *Store) CreateLine(ctx context.Context, line subway.Line) (subway.Line, error) {
	const op = "db.create_line"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(`INSERT INTO lines (name, color) VALUES ($1, $2) RETURNING id`),
		line.Name, line.Color).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return subway.Line{}, subway.Errorf(op, subway.KindDuplicateName, "line %q exists", line.Name)
		}
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	saved, err := s.insertSections(ctx, tx, id, line.Sections.All())
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	line.ID = id
	line.Sections = saved
	return line, nil
}

func (s *Store) LoadLine(ctx context.Context, id int64) (subway.Line, error) {
	const op = "db.load_line"
	tx, err := s.db.BeginTx(ctx, s.snapshotOpts())
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	line := subway.Line{}
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id, name, color FROM lines WHERE id = $1`), id).
		Scan(&line.ID, &line.Name, &line.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return subway.Line{}, notFound(op, "line", id)
	}
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := tx.QueryContext(ctx, s.rebind(sectionColumns+` WHERE s.line_id = $1`), id)
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	byLine, err := scanSections(rows)
	if err != nil {
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	if line.Sections, err = subway.NewSections(byLine[id]...); err != nil {
		return subway.Line{}, err
	}
	return line, tx.Commit()
}

// LoadAllLines reads every line and its sections from one snapshot, so the
// routing graph never mixes two versions of a line.
func (s *Store) LoadAllLines(ctx context.Context) ([]subway.Line, error) {
	const op = "db.load_all_lines"
	tx, err := s.db.BeginTx(ctx, s.snapshotOpts())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, name, color FROM lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var lines []subway.Line
	for rows.Next() {
		var l subway.Line
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	secRows, err := tx.QueryContext(ctx, sectionColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byLine, err := scanSections(secRows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range lines {
		if lines[i].Sections, err = subway.NewSections(byLine[lines[i].ID]...); err != nil {
			return nil, err
		}
	}
	return lines, tx.Commit()
}

func (s *Store) UpdateLine(ctx context.Context, id int64, name, color string) (subway.Line, error) {
	const op = "db.update_line"
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE lines SET name = $1, color = $2 WHERE id = $3`), name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			return subway.Line{}, subway.Errorf(op, subway.KindDuplicateName, "line %q exists", name)
		}
		return subway.Line{}, fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subway.Line{}, notFound(op, "line", id)
	}
	return s.LoadLine(ctx, id)
}

func (s *Store) DeleteLine(ctx context.Context, id int64) error {
	const op = "db.delete_line"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sections WHERE line_id = $1`), id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM lines WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(op, "line", id)
	}
	return tx.Commit()
}

// SaveSections replaces the stored route of a line in one transaction.
// Sections that already carry an id keep it.
func (s *Store) SaveSections(ctx context.Context, lineID int64, sections subway.Sections) (subway.Sections, error) {
	const op = "db.save_sections"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return subway.Sections{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	lock := `SELECT id FROM lines WHERE id = $1`
	if s.dialect == Postgres {
		lock += ` FOR UPDATE`
	}
	var id int64
	err = tx.QueryRowContext(ctx, s.rebind(lock), lineID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return subway.Sections{}, notFound(op, "line", lineID)
	}
	if err != nil {
		return subway.Sections{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sections WHERE line_id = $1`), lineID); err != nil {
		return subway.Sections{}, fmt.Errorf("%s: %w", op, err)
	}
	saved, err := s.insertSections(ctx, tx, lineID, sections.All())
	if err != nil {
		return subway.Sections{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return subway.Sections{}, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

func (s *Store) insertSections(ctx context.Context, q queryer, lineID int64, list []subway.Section) (subway.Sections, error) {
	withID := s.rebind(`INSERT INTO sections (id, line_id, up_station_id, down_station_id, distance)
		VALUES ($1, $2, $3, $4, $5)`)
	withoutID := s.rebind(`INSERT INTO sections (line_id, up_station_id, down_station_id, distance)
		VALUES ($1, $2, $3, $4) RETURNING id`)
	for i := range list {
		sec := &list[i]
		sec.LineID = lineID
		if sec.ID != 0 {
			if _, err := q.ExecContext(ctx, withID, sec.ID, lineID, sec.Up.ID, sec.Down.ID, sec.Distance); err != nil {
				return subway.Sections{}, err
			}
			continue
		}
		if err := q.QueryRowContext(ctx, withoutID, lineID, sec.Up.ID, sec.Down.ID, sec.Distance).Scan(&sec.ID); err != nil {
			return subway.Sections{}, err
		}
	}
	return subway.NewSections(list...)
}
