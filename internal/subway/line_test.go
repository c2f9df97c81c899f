package subway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLine(t *testing.T) {
	first, err := NewSection(0, stA, stB, 10)
	require.NoError(t, err)

	l, err := NewLine(7, "  Shinbundang  ", "bg-red-600", first)
	require.NoError(t, err)
	assert.Equal(t, "Shinbundang", l.Name)
	assert.Equal(t, 1, l.Sections.Len())
	assert.Equal(t, int64(7), l.Sections.All()[0].LineID)

	_, err = NewLine(7, "   ", "red", first)
	assert.True(t, IsKind(err, KindInvalidArgument))

	for _, bad := range []Section{{Up: stA, Down: stB}, {Up: stA, Down: stB, Distance: -3}, {Up: stA, Down: stA, Distance: 3}} {
		_, err = NewLine(7, "Line 7", "red", bad)
		assert.True(t, IsKind(err, KindInvalidArgument), "got %v", err)
	}
}

func TestNewSectionValidates(t *testing.T) {
	_, err := NewSection(1, stA, stA, 3)
	assert.True(t, IsKind(err, KindInvalidArgument))

	_, err = NewSection(1, stA, stB, 0)
	assert.True(t, IsKind(err, KindInvalidArgument))

	s, err := NewSection(1, stA, stB, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Distance)
}

func TestLineEditsKeepLineOnFailure(t *testing.T) {
	first, _ := NewSection(0, stA, stD, 10)
	l, err := NewLine(3, "Line 3", "orange", first)
	require.NoError(t, err)

	require.NoError(t, l.AddSection(Section{Up: stA, Down: stB, Distance: 2}))
	for _, s := range l.Sections.All() {
		assert.Equal(t, int64(3), s.LineID)
	}

	err = l.AddSection(Section{Up: stZ, Down: stE, Distance: 1})
	assert.True(t, IsKind(err, KindDisconnectedInsertion))
	assert.Equal(t, 2, l.Sections.Len())

	err = l.AddSection(Section{Up: stD, Down: stE, Distance: -5})
	assert.True(t, IsKind(err, KindInvalidArgument))
	err = l.AddSection(Section{Up: stA, Down: stC, Distance: 0})
	assert.True(t, IsKind(err, KindInvalidArgument))
	assert.Equal(t, 2, l.Sections.Len())
	assert.Equal(t, 10, l.Sections.TotalDistance())

	require.NoError(t, l.RemoveStation(stB.ID))
	err = l.RemoveStation(stA.ID)
	assert.True(t, IsKind(err, KindMinimumSectionViolation))
	assert.Equal(t, 10, l.Sections.TotalDistance())
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	root := errors.New("disk on fire")
	err := fmt.Errorf("save line: %w", &Error{Op: "store.save", Kind: KindNotFound, Err: root})

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, root))
	assert.Contains(t, err.Error(), "store.save: not_found: disk on fire")
	assert.Equal(t, Kind(""), KindOf(root))
	assert.False(t, IsKind(nil, KindNotFound))
}
