package subway

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stA = Station{ID: 1, Name: "A"}
	stB = Station{ID: 2, Name: "B"}
	stC = Station{ID: 3, Name: "C"}
	stD = Station{ID: 4, Name: "D"}
	stE = Station{ID: 5, Name: "E"}
	stZ = Station{ID: 26, Name: "Z"}
)

func sec(up, down Station, distance int) Section {
	return Section{Up: up, Down: down, Distance: distance}
}

func mustSections(t *testing.T, list ...Section) Sections {
	t.Helper()
	s, err := NewSections(list...)
	require.NoError(t, err)
	return s
}

func names(stations []Station) []string {
	out := make([]string, len(stations))
	for i, st := range stations {
		out[i] = st.Name
	}
	return out
}

type hop struct {
	Up, Down string
	Distance int
}

func hops(s Sections) []hop {
	var out []hop
	for _, sec := range s.All() {
		out = append(out, hop{sec.Up.Name, sec.Down.Name, sec.Distance})
	}
	return out
}

// assertChain checks that the sections and the station view agree.
func assertChain(t *testing.T, s Sections) {
	t.Helper()
	stations := s.Stations()
	require.Len(t, stations, s.Len()+1)

	seen := make(map[int64]bool, len(stations))
	for _, st := range stations {
		require.False(t, seen[st.ID], "station %s repeated", st.Name)
		seen[st.ID] = true
	}
	for i, sec := range s.All() {
		assert.Equal(t, stations[i].ID, sec.Up.ID)
		assert.Equal(t, stations[i+1].ID, sec.Down.ID)
	}
}

func TestSortOrdersShuffledChain(t *testing.T) {
	got, err := Sort([]Section{sec(stC, stD, 3), sec(stA, stB, 1), sec(stB, stC, 2)})
	require.NoError(t, err)

	s := Sections{list: got}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, names(s.Stations())); diff != "" {
		t.Fatalf("stations mismatch (-want +got):\n%s", diff)
	}
}

func TestSortRejectsBrokenChains(t *testing.T) {
	tests := []struct {
		name string
		list []Section
	}{
		{"empty", nil},
		{"self loop", []Section{sec(stA, stA, 1)}},
		{"branch", []Section{sec(stA, stB, 1), sec(stA, stC, 1)}},
		{"merge", []Section{sec(stA, stC, 1), sec(stB, stC, 1)}},
		{"cycle", []Section{sec(stA, stB, 1), sec(stB, stC, 1), sec(stC, stA, 1)}},
		{"disconnected", []Section{sec(stA, stB, 1), sec(stC, stD, 1)}},
		{"tail cycle", []Section{sec(stA, stB, 1), sec(stC, stD, 1), sec(stD, stC, 1)}},
		{"zero distance", []Section{sec(stA, stB, 1), sec(stB, stC, 0)}},
		{"negative distance", []Section{sec(stA, stB, -4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sort(tt.list)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInvalidTopology), "got %v", err)
		})
	}
}

func TestAddExtendsBack(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 10))

	next, err := s.Add(sec(stB, stC, 3))
	require.NoError(t, err)

	assert.Equal(t, []hop{{"A", "B", 10}, {"B", "C", 3}}, hops(next))
	assertChain(t, next)
}

func TestAddSplitsThenExtendsFront(t *testing.T) {
	s := mustSections(t, sec(stA, stD, 10))

	s, err := s.Add(sec(stA, stB, 2))
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "B", 2}, {"B", "D", 8}}, hops(s))

	s, err = s.Add(sec(stE, stA, 5))
	require.NoError(t, err)
	assert.Equal(t, []hop{{"E", "A", 5}, {"A", "B", 2}, {"B", "D", 8}}, hops(s))
	assertChain(t, s)
}

func TestAddSplitsOnDownStation(t *testing.T) {
	s := mustSections(t, sec(stA, stD, 10))

	next, err := s.Add(sec(stC, stD, 4))
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "C", 6}, {"C", "D", 4}}, hops(next))
	assertChain(t, next)
}

func TestAddSplitsInteriorSection(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 5), sec(stB, stD, 7))

	next, err := s.Add(sec(stB, stC, 3))
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "B", 5}, {"B", "C", 3}, {"C", "D", 4}}, hops(next))
	assertChain(t, next)
}

func TestAddFailures(t *testing.T) {
	base := []Section{sec(stA, stD, 10)}
	tests := []struct {
		name string
		add  Section
		kind Kind
	}{
		{"both stations known", sec(stA, stD, 3), KindDuplicateConnection},
		{"both stations known reversed", sec(stD, stA, 3), KindDuplicateConnection},
		{"no station known", sec(stZ, stB, 3), KindDisconnectedInsertion},
		{"split equal distance", sec(stA, stB, 10), KindDistanceExceedsSegment},
		{"split longer distance", sec(stB, stD, 11), KindDistanceExceedsSegment},
		{"split zero distance", sec(stA, stB, 0), KindInvalidArgument},
		{"split negative distance", sec(stB, stD, -2), KindInvalidArgument},
		{"extend back negative distance", sec(stD, stE, -5), KindInvalidArgument},
		{"extend front zero distance", sec(stE, stA, 0), KindInvalidArgument},
		{"self loop on terminal", sec(stD, stD, 3), KindInvalidArgument},
		{"self loop off line", sec(stZ, stZ, 3), KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSections(t, base...)
			next, err := s.Add(tt.add)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, hops(s), hops(next), "failed add must not change the chain")
		})
	}
}

func TestAddDoesNotMutateReceiver(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 5), sec(stB, stD, 7))
	before := hops(s)

	_, err := s.Add(sec(stB, stC, 3))
	require.NoError(t, err)
	_, err = s.Remove(stB.ID)
	require.NoError(t, err)

	assert.Equal(t, before, hops(s))
}

func TestRemoveInteriorMerges(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 2), sec(stB, stC, 2), sec(stC, stD, 2))

	s, err := s.Remove(stB.ID)
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "C", 4}, {"C", "D", 2}}, hops(s))
	assertChain(t, s)

	s, err = s.Remove(stD.ID)
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "C", 4}}, hops(s))

	_, err = s.Remove(stC.ID)
	assert.True(t, IsKind(err, KindMinimumSectionViolation), "got %v", err)
}

func TestRemoveTerminals(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 2), sec(stB, stC, 3))

	front, err := s.Remove(stA.ID)
	require.NoError(t, err)
	assert.Equal(t, []hop{{"B", "C", 3}}, hops(front))

	back, err := s.Remove(stC.ID)
	require.NoError(t, err)
	assert.Equal(t, []hop{{"A", "B", 2}}, hops(back))
}

func TestRemoveUnknownStation(t *testing.T) {
	s := mustSections(t, sec(stA, stB, 2), sec(stB, stC, 3))

	_, err := s.Remove(stZ.ID)
	assert.True(t, IsKind(err, KindStationNotOnLine), "got %v", err)
}

func TestDistanceIsConserved(t *testing.T) {
	s := mustSections(t, sec(stA, stD, 20))
	adds := []Section{
		sec(stA, stB, 4),
		sec(stC, stD, 6),
		sec(stE, stA, 5),
		sec(stD, stZ, 1),
	}
	for _, a := range adds {
		before := s.TotalDistance()
		next, err := s.Add(a)
		require.NoError(t, err)
		grew := next.TotalDistance() - before
		if a.Up.ID == stE.ID || a.Down.ID == stZ.ID {
			assert.Equal(t, a.Distance, grew, "extension adds its own distance")
		} else {
			assert.Equal(t, 0, grew, "split keeps the segment length")
		}
		assertChain(t, next)
		s = next
	}

	for _, id := range []int64{stB.ID, stC.ID} {
		before := s.TotalDistance()
		next, err := s.Remove(id)
		require.NoError(t, err)
		assert.Equal(t, before, next.TotalDistance(), "merge keeps the total")
		assertChain(t, next)
		s = next
	}
}

func TestAddThenRemoveRoundTrips(t *testing.T) {
	tests := []struct {
		name    string
		add     Section
		newStop Station
	}{
		{"split on up", sec(stA, stB, 3), stB},
		{"split on down", sec(stB, stD, 3), stB},
		{"extend front", sec(stE, stA, 3), stE},
		{"extend back", sec(stD, stE, 3), stE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSections(t, sec(stA, stC, 5), sec(stC, stD, 10))
			added, err := s.Add(tt.add)
			require.NoError(t, err)
			restored, err := added.Remove(tt.newStop.ID)
			require.NoError(t, err)
			assert.Equal(t, hops(s), hops(restored))
		})
	}
}
