package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subway-network/internal/network"
	"subway-network/internal/subway"
)

var _ network.Store = (*Store)(nil)

// stores returns the backends to run against: always an in-memory SQLite
// database, plus PostgreSQL when SUBWAY_TEST_DATABASE_URL is set.
func stores(t *testing.T) map[string]*Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]*Store{}

	lite, err := Open("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, lite.Migrate(ctx))
	t.Cleanup(func() { lite.Close() })
	out["sqlite"] = lite

	if dsn := os.Getenv("SUBWAY_TEST_DATABASE_URL"); dsn != "" {
		pg, err := Open(dsn)
		require.NoError(t, err)
		require.NoError(t, pg.Ping(ctx))
		require.NoError(t, pg.Migrate(ctx))
		_, err = pg.db.ExecContext(ctx, `TRUNCATE sections, lines, stations RESTART IDENTITY`)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		out["postgres"] = pg
	}
	return out
}

func newLine(t *testing.T, s *Store, name string, up, down subway.Station, distance int) subway.Line {
	t.Helper()
	first, err := subway.NewSection(0, up, down, distance)
	require.NoError(t, err)
	line, err := subway.NewLine(0, name, "green", first)
	require.NoError(t, err)
	line, err = s.CreateLine(context.Background(), line)
	require.NoError(t, err)
	return line
}

func TestStations(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, err := s.CreateStation(ctx, "Seolleung")
			require.NoError(t, err)
			assert.NotZero(t, a.ID)

			_, err = s.CreateStation(ctx, "Seolleung")
			assert.True(t, subway.IsKind(err, subway.KindDuplicateName), "got %v", err)

			b, err := s.CreateStation(ctx, "Hanti")
			require.NoError(t, err)

			got, err := s.LoadStation(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, b, got)

			_, err = s.LoadStation(ctx, 9999)
			assert.True(t, subway.IsKind(err, subway.KindNotFound))

			_, err = s.RenameStation(ctx, b.ID, "Seolleung")
			assert.True(t, subway.IsKind(err, subway.KindDuplicateName), "got %v", err)
			_, err = s.RenameStation(ctx, 9999, "Nowhere")
			assert.True(t, subway.IsKind(err, subway.KindNotFound))

			renamed, err := s.RenameStation(ctx, b.ID, "Hanti Station")
			require.NoError(t, err)

			list, err := s.ListStations(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff([]subway.Station{a, renamed}, list); diff != "" {
				t.Errorf("stations mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, s.DeleteStation(ctx, a.ID))
			assert.True(t, subway.IsKind(s.DeleteStation(ctx, a.ID), subway.KindNotFound))
		})
	}
}

func TestLinesAndSections(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, _ := s.CreateStation(ctx, "Wangsimni")
			b, _ := s.CreateStation(ctx, "Jukjeon")
			c, _ := s.CreateStation(ctx, "Suwon")

			line := newLine(t, s, "Suin-Bundang", a, c, 30)
			require.NotZero(t, line.ID)
			first := line.Sections.All()[0]
			require.NotZero(t, first.ID)

			_, err := s.CreateLine(ctx, subway.Line{Name: "Suin-Bundang", Sections: line.Sections})
			assert.True(t, subway.IsKind(err, subway.KindDuplicateName), "got %v", err)

			err = s.DeleteStation(ctx, a.ID)
			assert.True(t, subway.IsKind(err, subway.KindStationInUse), "got %v", err)

			require.NoError(t, line.AddSection(subway.Section{Up: a, Down: b, Distance: 12}))
			saved, err := s.SaveSections(ctx, line.ID, line.Sections)
			require.NoError(t, err)
			ids := map[int64]bool{}
			for _, sec := range saved.All() {
				assert.NotZero(t, sec.ID)
				assert.Equal(t, line.ID, sec.LineID)
				ids[sec.ID] = true
			}
			assert.Len(t, ids, 2)

			loaded, err := s.LoadLine(ctx, line.ID)
			require.NoError(t, err)
			assert.Equal(t, []subway.Station{a, b, c}, loaded.Sections.Stations())
			assert.Equal(t, 30, loaded.Sections.TotalDistance())

			renamed, err := s.RenameStation(ctx, b.ID, "Jukjeon (DKU)")
			require.NoError(t, err)
			loaded, err = s.LoadLine(ctx, line.ID)
			require.NoError(t, err)
			assert.Equal(t, renamed, loaded.Sections.Stations()[1])

			updated, err := s.UpdateLine(ctx, line.ID, "Suin-Bundang", "yellow")
			require.NoError(t, err)
			assert.Equal(t, "yellow", updated.Color)
			assert.Equal(t, 2, updated.Sections.Len())

			_, err = s.UpdateLine(ctx, 9999, "x", "y")
			assert.True(t, subway.IsKind(err, subway.KindNotFound))
			_, err = s.SaveSections(ctx, 9999, line.Sections)
			assert.True(t, subway.IsKind(err, subway.KindNotFound))

			require.NoError(t, s.DeleteLine(ctx, line.ID))
			_, err = s.LoadLine(ctx, line.ID)
			assert.True(t, subway.IsKind(err, subway.KindNotFound))
			assert.True(t, subway.IsKind(s.DeleteLine(ctx, line.ID), subway.KindNotFound))
			require.NoError(t, s.DeleteStation(ctx, a.ID))
		})
	}
}

func TestLoadAllLines(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, _ := s.CreateStation(ctx, "Gyodae")
			b, _ := s.CreateStation(ctx, "Gangnam")
			c, _ := s.CreateStation(ctx, "Yangjae")
			d, _ := s.CreateStation(ctx, "Nambu Bus Terminal")

			two := newLine(t, s, "Line 2", a, b, 10)
			three := newLine(t, s, "Line 3", d, c, 7)
			require.NoError(t, three.AddSection(subway.Section{Up: a, Down: d, Distance: 4}))
			_, err := s.SaveSections(ctx, three.ID, three.Sections)
			require.NoError(t, err)

			lines, err := s.LoadAllLines(ctx)
			require.NoError(t, err)
			require.Len(t, lines, 2)
			assert.Equal(t, two.ID, lines[0].ID)
			assert.Equal(t, []subway.Station{a, b}, lines[0].Sections.Stations())
			assert.Equal(t, []subway.Station{a, d, c}, lines[1].Sections.Stations())
			assert.Equal(t, 11, lines[1].Sections.TotalDistance())
		})
	}
}

func TestRebind(t *testing.T) {
	lite := &Store{dialect: SQLite}
	pg := &Store{dialect: Postgres}
	q := `SELECT * FROM sections WHERE up_station_id = $1 OR down_station_id = $1 AND line_id = $12`
	assert.Equal(t, `SELECT * FROM sections WHERE up_station_id = ?1 OR down_station_id = ?1 AND line_id = ?12`, lite.rebind(q))
	assert.Equal(t, q, pg.rebind(q))
}
