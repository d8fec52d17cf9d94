package diary

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/zlnvch/heartfolio/gesture"
	"github.com/zlnvch/heartfolio/models"
)

var (
	ErrEmptyText    = errors.New("text is empty")
	ErrMissingImage = errors.New("image reference is empty")
	ErrNotFound     = errors.New("element not found")
	ErrWrongKind    = errors.New("operation not supported for this element")
	ErrNotDrawing   = errors.New("draw mode is off")
	ErrUnknownTool  = errors.New("unknown drawing tool")
)

type Tool string

const (
	ToolPen    Tool = "pen"
	ToolPencil Tool = "pencil"
)

type ToolPreset struct {
	Width   float64
	Opacity float64
}

var toolPresets = map[Tool]ToolPreset{
	ToolPen:    {Width: 4, Opacity: 1},
	ToolPencil: {Width: 2, Opacity: 0.6},
}

const (
	InkColor = "#000000"
	// Largest side of a newly placed image
	maxImageSide = 300.0
)

var Fonts = []string{"PatrickHand_400Regular", "IndieFlower_400Regular", "System"}

// Persistence receives the page's writes. Calls must not block: the page
// runs on the session goroutine and never waits for storage.
type Persistence interface {
	SaveElement(element models.DiaryElement)
	DeleteElement(id string)
	// ReplaceElements overwrites the entry's whole element set
	ReplaceElements(elements []models.DiaryElement)
}

// Style is the user's choice in the add/edit dialog. ImageWidth and
// ImageHeight are the picked image's pixel size.
type Style struct {
	FontFamily  string  `json:"fontFamily,omitempty"`
	FontWeight  string  `json:"fontWeight,omitempty"`
	Color       string  `json:"color,omitempty"`
	ImageWidth  float64 `json:"imageWidth,omitempty"`
	ImageHeight float64 `json:"imageHeight,omitempty"`
}

type EventType string

const (
	EventEditRequested EventType = "edit_requested"
	EventSelected      EventType = "selected"
	EventDeselected    EventType = "deselected"
	EventCommitted     EventType = "committed"
)

// Event reports gesture outcomes the client has to react to.
type Event struct {
	Type        EventType            `json:"type"`
	ElementId   string               `json:"elementId"`
	Affordances *gesture.Affordances `json:"affordances,omitempty"`
	Element     *models.DiaryElement `json:"element,omitempty"`
}

type Options struct {
	CanvasWidth  float64
	CanvasHeight float64
	OnEvent      func(Event)
	// Random source for placement jitter, in [0,1)
	Random func() float64
}

// Page is the edit model of one open diary entry. It is owned by a single
// session and is not safe for concurrent use.
type Page struct {
	entryId  string
	elements []models.DiaryElement
	paths    []models.DiaryElement
	history  History
	persist  Persistence
	opts     Options
	bindings map[string]*gesture.Binding

	drawMode bool
	tool     Tool
	stroke   []models.Point
	drawing  bool
}

func NewPage(entryId string, stored []models.DiaryElement, persist Persistence, opts Options) *Page {
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	p := &Page{
		entryId:  entryId,
		elements: []models.DiaryElement{},
		paths:    []models.DiaryElement{},
		persist:  persist,
		opts:     opts,
		bindings: make(map[string]*gesture.Binding),
		tool:     ToolPen,
	}
	for _, el := range stored {
		if el.Type == models.ElementPath {
			p.paths = append(p.paths, el.Clone())
		} else {
			p.elements = append(p.elements, el.Clone())
		}
	}
	return p
}

func (p *Page) EntryId() string { return p.entryId }

// Elements returns copies of the placed elements followed by the strokes.
func (p *Page) Elements() []models.DiaryElement {
	return append(cloneAll(p.elements), cloneAll(p.paths)...)
}

func (p *Page) snapshot() Snapshot {
	return Snapshot{Elements: p.elements, Paths: p.paths}
}

func (p *Page) CanUndo() bool { return p.history.CanUndo() }

func (p *Page) CanRedo() bool { return p.history.CanRedo() }

func newElementId(kind models.ElementType) string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the system random source does
		id = uuid.Must(uuid.NewV4())
	}
	return string(kind) + "_" + id.String()
}

// jitter returns a value in [-spread, spread).
func (p *Page) jitter(spread float64) float64 {
	return p.opts.Random()*2*spread - spread
}

// fitImage scales a picked image down so its larger side is at most 300,
// keeping the aspect ratio.
func fitImage(w, h float64) (float64, float64) {
	if w <= maxImageSide && h <= maxImageSide {
		return w, h
	}
	aspect := w / h
	if aspect > 1 {
		return maxImageSide, maxImageSide / aspect
	}
	return maxImageSide * aspect, maxImageSide
}

// AddElement places a new text, sticky, sticker or image element.
func (p *Page) AddElement(kind models.ElementType, content string, style Style) (models.DiaryElement, error) {
	el := models.DiaryElement{
		Id:            newElementId(kind),
		EntryId:       p.entryId,
		Type:          kind,
		SchemaVersion: models.DiaryElementSchema.Version(),
	}

	switch {
	case kind.HasText():
		content = strings.TrimSpace(content)
		if content == "" {
			return models.DiaryElement{}, ErrEmptyText
		}
		el.Content = content
		el.FontFamily = style.FontFamily
		if el.FontFamily == "" {
			el.FontFamily = Fonts[0]
		}
		el.Color = style.Color
		if el.Color == "" {
			el.Color = defaultColor(kind)
		}
		el.FontWeight = "normal"
		if kind == models.ElementSticker {
			el.X = p.opts.CanvasWidth/2 - 50
			el.Y = p.opts.CanvasHeight/2 - 50
			el.Scale = 2
		} else {
			el.X, el.Y = 50, 100
			el.Rotation = p.jitter(3)
			el.Scale = 1
		}
	case kind == models.ElementImage:
		if strings.TrimSpace(content) == "" {
			return models.DiaryElement{}, ErrMissingImage
		}
		el.Content = content
		el.X, el.Y = 50, 150
		el.Rotation = p.jitter(5)
		el.Scale = 1
		if style.ImageWidth > 0 && style.ImageHeight > 0 {
			w, h := fitImage(style.ImageWidth, style.ImageHeight)
			el.Width, el.Height = &w, &h
		}
	default:
		return models.DiaryElement{}, ErrWrongKind
	}

	p.history.Push(p.snapshot())
	p.elements = append(p.elements, el)
	p.persist.SaveElement(el.Clone())
	return el.Clone(), nil
}

func defaultColor(kind models.ElementType) string {
	if kind == models.ElementText {
		return "#333333"
	}
	return "#FFD1DC"
}

func (p *Page) SetDrawMode(on bool) {
	p.drawMode = on
	if !on {
		p.stroke = nil
		p.drawing = false
	}
}

func (p *Page) DrawMode() bool { return p.drawMode }

func (p *Page) SetTool(tool Tool) error {
	if _, ok := toolPresets[tool]; !ok {
		return ErrUnknownTool
	}
	p.tool = tool
	return nil
}

func (p *Page) Tool() Tool { return p.tool }

func (p *Page) BeginStroke(x, y float64) error {
	if !p.drawMode {
		return ErrNotDrawing
	}
	p.drawing = true
	p.stroke = []models.Point{{X: x, Y: y}}
	return nil
}

func (p *Page) ExtendStroke(x, y float64) error {
	if !p.drawMode || !p.drawing {
		return ErrNotDrawing
	}
	p.stroke = append(p.stroke, models.Point{X: x, Y: y})
	return nil
}

// CurrentStroke is the in-progress stroke for live rendering.
func (p *Page) CurrentStroke() []models.Point {
	return append([]models.Point(nil), p.stroke...)
}

// EndStroke turns the captured points into a path element. Strokes with
// fewer than two points are dropped without a trace.
func (p *Page) EndStroke() (models.DiaryElement, bool) {
	points := p.stroke
	p.stroke = nil
	drawing := p.drawing
	p.drawing = false
	if !drawing || len(points) < 2 {
		return models.DiaryElement{}, false
	}

	preset := toolPresets[p.tool]
	opacity := preset.Opacity
	path := models.DiaryElement{
		Id:          newElementId(models.ElementPath),
		EntryId:     p.entryId,
		Type:        models.ElementPath,
		Scale:       1,
		Color:       InkColor,
		Points:      points,
		StrokeWidth: preset.Width,
		Opacity:     &opacity,

		SchemaVersion: models.DiaryElementSchema.Version(),
	}

	p.history.Push(p.snapshot())
	p.paths = append(p.paths, path)
	p.persist.SaveElement(path.Clone())
	return path.Clone(), true
}

func (p *Page) restore(s Snapshot) {
	p.elements = s.Elements
	p.paths = s.Paths
	p.stroke = nil
	p.drawing = false
	p.syncBindings()
	p.persist.ReplaceElements(p.Elements())
}

// Undo restores the previous snapshot and persists the whole restored set.
func (p *Page) Undo() bool {
	prev, ok := p.history.Undo(p.snapshot())
	if !ok {
		return false
	}
	p.restore(prev)
	return true
}

func (p *Page) Redo() bool {
	next, ok := p.history.Redo(p.snapshot())
	if !ok {
		return false
	}
	p.restore(next)
	return true
}

func (p *Page) find(id string) (int, bool) {
	for i := range p.elements {
		if p.elements[i].Id == id {
			return i, true
		}
	}
	return -1, false
}

func (p *Page) Element(id string) (models.DiaryElement, bool) {
	i, ok := p.find(id)
	if !ok {
		return models.DiaryElement{}, false
	}
	return p.elements[i].Clone(), true
}

// EditElement replaces the text and style of a text-bearing element.
func (p *Page) EditElement(id string, content string, style Style) (models.DiaryElement, error) {
	i, ok := p.find(id)
	if !ok {
		return models.DiaryElement{}, ErrNotFound
	}
	if !p.elements[i].Type.HasText() {
		return models.DiaryElement{}, ErrWrongKind
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.DiaryElement{}, ErrEmptyText
	}

	p.history.Push(p.snapshot())
	el := p.elements[i].Clone()
	el.Content = content
	if style.FontFamily != "" {
		el.FontFamily = style.FontFamily
	}
	if style.Color != "" {
		el.Color = style.Color
	}
	if style.FontWeight != "" {
		el.FontWeight = style.FontWeight
	}
	p.elements[i] = el
	p.persist.SaveElement(el.Clone())
	return el.Clone(), nil
}

// update applies an in-place change that bypasses history.
func (p *Page) update(id string, change func(el *models.DiaryElement) error) (models.DiaryElement, error) {
	i, ok := p.find(id)
	if !ok {
		return models.DiaryElement{}, ErrNotFound
	}
	el := p.elements[i].Clone()
	if err := change(&el); err != nil {
		return models.DiaryElement{}, err
	}
	p.elements[i] = el
	p.persist.SaveElement(el.Clone())
	return el.Clone(), nil
}

// ApplyCommit stores the result of a completed gesture. Gesture commits
// do not enter history.
func (p *Page) ApplyCommit(id string, c gesture.Commit) (models.DiaryElement, error) {
	return p.update(id, func(el *models.DiaryElement) error {
		t := c.Transform
		if c.Channel == gesture.Resize {
			w := t.Width
			el.Width = &w
			if el.Type == models.ElementImage || el.Type == models.ElementSticker {
				h := t.Height
				el.Height = &h
			}
			return nil
		}
		el.X, el.Y = t.X, t.Y
		el.Rotation = t.Rotation
		el.Scale = t.Scale
		return nil
	})
}

// DeleteElement removes an element or stroke.
func (p *Page) DeleteElement(id string) error {
	if i, ok := p.find(id); ok {
		p.history.Push(p.snapshot())
		p.elements = append(append([]models.DiaryElement{}, p.elements[:i]...), p.elements[i+1:]...)
		delete(p.bindings, id)
		p.persist.DeleteElement(id)
		return nil
	}
	for i := range p.paths {
		if p.paths[i].Id == id {
			p.history.Push(p.snapshot())
			p.paths = append(append([]models.DiaryElement{}, p.paths[:i]...), p.paths[i+1:]...)
			p.persist.DeleteElement(id)
			return nil
		}
	}
	return ErrNotFound
}

// BringToFront puts an image above every other element.
func (p *Page) BringToFront(id string) (models.DiaryElement, error) {
	maxZ := 0
	for _, el := range p.elements {
		if el.ZIndex != nil && *el.ZIndex > maxZ {
			maxZ = *el.ZIndex
		}
	}
	return p.update(id, func(el *models.DiaryElement) error {
		if el.Type != models.ElementImage {
			return ErrWrongKind
		}
		z := maxZ + 1
		el.ZIndex = &z
		return nil
	})
}

func (p *Page) ToggleShadow(id string) (models.DiaryElement, error) {
	return p.update(id, func(el *models.DiaryElement) error {
		if el.Type != models.ElementImage {
			return ErrWrongKind
		}
		el.HasShadow = !el.HasShadow
		return nil
	})
}

// CycleFont moves a text element to the next handwriting font.
func (p *Page) CycleFont(id string) (models.DiaryElement, error) {
	return p.update(id, func(el *models.DiaryElement) error {
		if el.Type != models.ElementText {
			return ErrWrongKind
		}
		next := 0
		for i, f := range Fonts {
			if f == el.FontFamily {
				next = (i + 1) % len(Fonts)
				break
			}
		}
		// An unset font counts as the first one
		if el.FontFamily == "" {
			next = 1
		}
		el.FontFamily = Fonts[next]
		return nil
	})
}
