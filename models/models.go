package models

type User struct {
	Id           string
	Email        string
	Provider     string
	ProviderId   string
	PasswordHash string
	Created      int64
}

const DefaultAlbum = "Uncategorized"

type Magnet struct {
	Id       string  `json:"id"`
	Color    string  `json:"color"`
	Icon     string  `json:"icon"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// Memory is a polaroid photo pinned to an album.
type Memory struct {
	Id            string  `json:"id"`
	Uri           string  `json:"uri"`
	Caption       string  `json:"memory"`
	Date          string  `json:"date"`
	Rotation      float64 `json:"rotation"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Magnet        *Magnet `json:"magnet,omitempty"`
	Album         string  `json:"album"`
	SchemaVersion int     `json:"schemaVersion"`
}

func (m Memory) Key() string { return m.Id }

// PaperBit is a sticky note or sticker floating over an album's grid.
type PaperBit struct {
	Id            string   `json:"id"`
	Text          string   `json:"text"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Rotation      float64  `json:"rotation"`
	Color         string   `json:"color"`
	Width         float64  `json:"width"`
	Height        *float64 `json:"height,omitempty"`
	Album         string   `json:"album"`
	IsSticker     bool     `json:"isSticker,omitempty"`
	ImageUri      string   `json:"imageUri,omitempty"`
	SchemaVersion int      `json:"schemaVersion"`
}

func (b PaperBit) Key() string { return b.Id }

type TodoItem struct {
	Id            string  `json:"id"`
	Text          string  `json:"text"`
	Completed     bool    `json:"completed"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Color         string  `json:"color"`
	Rotation      float64 `json:"rotation"`
	SchemaVersion int     `json:"schemaVersion"`
}

func (t TodoItem) Key() string { return t.Id }

type DiaryEntry struct {
	Id            string `json:"id"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	Color         string `json:"color"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (e DiaryEntry) Key() string { return e.Id }

type ElementType string

const (
	ElementImage   ElementType = "image"
	ElementText    ElementType = "text"
	ElementSticky  ElementType = "sticky"
	ElementSticker ElementType = "sticker"
	ElementPath    ElementType = "path"
)

// HasText reports whether elements of this type carry user-entered text.
func (t ElementType) HasText() bool {
	return t == ElementText || t == ElementSticky || t == ElementSticker
}

func (t ElementType) Valid() bool {
	switch t {
	case ElementImage, ElementText, ElementSticky, ElementSticker, ElementPath:
		return true
	}
	return false
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DiaryElement is one object on a diary page. Points, StrokeWidth and
// Opacity are only meaningful for paths. A nil Width/Height means the
// client's default size.
type DiaryElement struct {
	Id            string      `json:"id"`
	EntryId       string      `json:"entryId"`
	Type          ElementType `json:"type"`
	Content       string      `json:"content"`
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	Rotation      float64     `json:"rotation"`
	Scale         float64     `json:"scale"`
	FontFamily    string      `json:"fontFamily,omitempty"`
	FontWeight    string      `json:"fontWeight,omitempty"`
	Color         string      `json:"color,omitempty"`
	Points        []Point     `json:"points,omitempty"`
	StrokeWidth   float64     `json:"strokeWidth,omitempty"`
	Opacity       *float64    `json:"opacity,omitempty"`
	Width         *float64    `json:"width,omitempty"`
	Height        *float64    `json:"height,omitempty"`
	HasShadow     bool        `json:"hasShadow,omitempty"`
	ZIndex        *int        `json:"zIndex,omitempty"`
	SchemaVersion int         `json:"schemaVersion"`
}

func (e DiaryElement) Key() string { return e.Id }

// Clone returns a deep copy so history snapshots never alias live slices
// and pointers.
func (e DiaryElement) Clone() DiaryElement {
	c := e
	if e.Points != nil {
		c.Points = append([]Point(nil), e.Points...)
	}
	if e.Opacity != nil {
		v := *e.Opacity
		c.Opacity = &v
	}
	if e.Width != nil {
		v := *e.Width
		c.Width = &v
	}
	if e.Height != nil {
		v := *e.Height
		c.Height = &v
	}
	if e.ZIndex != nil {
		v := *e.ZIndex
		c.ZIndex = &v
	}
	return c
}

// Profile is the home screen header. It lives in scoped UI-state keys rather
// than a collection.
type Profile struct {
	Nickname string `json:"nickname"`
	Bio      string `json:"bio"`
	Banner   string `json:"banner"`
}

type HomeSticker struct {
	Id       string  `json:"id"`
	Text     string  `json:"text"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	IsCircle bool    `json:"isCircle,omitempty"`
	// "text" or "sticker"
	Type string `json:"type,omitempty"`
}

type DecoPosition struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

var (
	MagnetColors = []string{"#FF5252", "#448AFF", "#FFEB3B", "#69F0AE", "#E040FB", "#FFAB40"}
	MagnetIcons  = []string{"📌", "⭐", "❤️", "😊", "🧲", "🌸", "🔥", "✨"}
	PaperColors  = []string{"#FFF9C4", "#F8BBD0", "#DCEDC8", "#B3E5FC", "#E1BEE7", "#FFFFFF"}
)
