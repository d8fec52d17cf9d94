package diary

import (
	"log"

	"github.com/zlnvch/heartfolio/gesture"
	"github.com/zlnvch/heartfolio/models"
)

func transformOf(el models.DiaryElement) gesture.Transform {
	t := gesture.Transform{X: el.X, Y: el.Y, Rotation: el.Rotation, Scale: el.Scale}
	if el.Width != nil {
		t.Width = *el.Width
	}
	if el.Height != nil {
		t.Height = *el.Height
	}
	return t
}

func resizingOf(kind models.ElementType) gesture.Resizing {
	switch kind {
	case models.ElementImage, models.ElementSticker:
		return gesture.KeepAspect
	case models.ElementText, models.ElementSticky:
		return gesture.WidthOnly
	}
	return gesture.NotResizable
}

func (p *Page) emit(ev Event) {
	if p.opts.OnEvent != nil {
		p.opts.OnEvent(ev)
	}
}

// Binding returns the gesture binding of a placed element, creating it on
// first use. Strokes are not draggable.
func (p *Page) Binding(id string) (*gesture.Binding, error) {
	if b, ok := p.bindings[id]; ok {
		return b, nil
	}
	i, ok := p.find(id)
	if !ok {
		return nil, ErrNotFound
	}
	el := p.elements[i]

	b := gesture.NewBinding(transformOf(el), gesture.Options{
		Resizing:  resizingOf(el.Type),
		ImageMenu: el.Type == models.ElementImage,
		Tappable:  el.Type.HasText(),
		OnCommit: func(c gesture.Commit) {
			updated, err := p.ApplyCommit(id, c)
			if err != nil {
				log.Printf("Dropping gesture commit for element %s: %v", id, err)
				return
			}
			p.emit(Event{Type: EventCommitted, ElementId: id, Element: &updated})
		},
		OnTap: func() {
			p.emit(Event{Type: EventEditRequested, ElementId: id})
		},
		OnSelect: func(a gesture.Affordances) {
			p.emit(Event{Type: EventSelected, ElementId: id, Affordances: &a})
		},
		OnDeselect: func() {
			p.emit(Event{Type: EventDeselected, ElementId: id})
		},
	})
	p.bindings[id] = b
	return b, nil
}

// Gesture feeds one wire event to an element's binding.
func (p *Page) Gesture(id string, ev gesture.Event) error {
	b, err := p.Binding(id)
	if err != nil {
		return err
	}
	return b.Handle(ev)
}

// DeselectAll handles a tap on the empty canvas.
func (p *Page) DeselectAll() {
	for _, b := range p.bindings {
		b.Deselect()
	}
}

// syncBindings realigns bindings after the element set was replaced.
func (p *Page) syncBindings() {
	for id, b := range p.bindings {
		i, ok := p.find(id)
		if !ok {
			delete(p.bindings, id)
			continue
		}
		b.Cancel()
		b.Sync(transformOf(p.elements[i]))
	}
}
