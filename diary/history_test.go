package diary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/diary"
	"github.com/zlnvch/heartfolio/models"
)

func snap(ids ...string) diary.Snapshot {
	s := diary.Snapshot{}
	for _, id := range ids {
		s.Elements = append(s.Elements, models.DiaryElement{Id: id})
	}
	return s
}

func TestHistory_DropsOldest(t *testing.T) {
	var h diary.History
	for i := 0; i < diary.HistoryLimit+3; i++ {
		h.Push(snap(string(rune('a' + i))))
	}
	assert.Equal(t, diary.HistoryLimit, h.Len())

	var last diary.Snapshot
	for h.CanUndo() {
		var ok bool
		last, ok = h.Undo(diary.Snapshot{})
		require.True(t, ok)
	}
	// The first three pushes fell off the bottom
	assert.Equal(t, "d", last.Elements[0].Id)
}

func TestHistory_SnapshotsDoNotAlias(t *testing.T) {
	var h diary.History
	w := 10.0
	s := diary.Snapshot{Elements: []models.DiaryElement{{Id: "a", Width: &w}}}
	h.Push(s)
	*s.Elements[0].Width = 99
	s.Elements[0].Id = "b"

	prev, ok := h.Undo(diary.Snapshot{})
	require.True(t, ok)
	assert.Equal(t, "a", prev.Elements[0].Id)
	assert.Equal(t, 10.0, *prev.Elements[0].Width)
}

func TestHistory_RedoClearedByPush(t *testing.T) {
	var h diary.History
	h.Push(snap("a"))
	_, ok := h.Undo(snap("a", "b"))
	require.True(t, ok)
	require.True(t, h.CanRedo())

	next, ok := h.Redo(snap("a"))
	require.True(t, ok)
	assert.Len(t, next.Elements, 2)

	_, ok = h.Undo(next)
	require.True(t, ok)
	h.Push(snap("c"))
	assert.False(t, h.CanRedo())
	_, ok = h.Redo(diary.Snapshot{})
	assert.False(t, ok)
}
