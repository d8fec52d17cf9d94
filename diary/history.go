package diary

import "github.com/zlnvch/heartfolio/models"

// HistoryLimit is how many undo steps a page keeps.
const HistoryLimit = 20

// Snapshot is the full visible state of a page at one point in time.
type Snapshot struct {
	Elements []models.DiaryElement
	Paths    []models.DiaryElement
}

func cloneAll(items []models.DiaryElement) []models.DiaryElement {
	out := make([]models.DiaryElement, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Elements: cloneAll(s.Elements), Paths: cloneAll(s.Paths)}
}

// History is a bounded undo stack plus a redo stack. When full, the oldest
// snapshot is dropped.
type History struct {
	undo []Snapshot
	redo []Snapshot
}

// Push records the state before a mutation and invalidates redo.
func (h *History) Push(s Snapshot) {
	h.undo = append(h.undo, s.clone())
	if len(h.undo) > HistoryLimit {
		h.undo = append([]Snapshot(nil), h.undo[len(h.undo)-HistoryLimit:]...)
	}
	h.redo = nil
}

// Undo returns the state to restore and remembers current for redo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.clone())
	return prev.clone(), true
}

func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.clone())
	return next.clone(), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) Len() int { return len(h.undo) }
