package service

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/objects"
)

var (
	ErrMissingImage    = errors.New("image reference is empty")
	ErrAlbumRequired   = errors.New("album is required")
	ErrUnknownBitKind  = errors.New("unknown paper bit kind")
	ErrPaperBitMissing = errors.New("paper bit not found")
)

// MagnetChoice places a magnet on a new polaroid. X and Y are percentages
// of the photo frame. An empty Icon or Color is picked at random.
type MagnetChoice struct {
	Icon  string  `json:"icon"`
	Color string  `json:"color"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type MemoryInput struct {
	Uri     string        `json:"uri"`
	Caption string        `json:"memory"`
	Album   string        `json:"album"`
	Magnet  *MagnetChoice `json:"magnet,omitempty"`
}

// checkImageRef accepts external URIs, but object names must sit in the
// user's own prefix.
func checkImageRef(userId string, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return ErrMissingImage
	}
	if strings.HasPrefix(ref, "users/") && !objects.OwnedBy(ref, userId) {
		return ErrNotOwned
	}
	return nil
}

// SaveMemory pins a new polaroid to an album with a slight random tilt and
// offset.
func (s *Service) SaveMemory(ctx context.Context, userId string, in MemoryInput) (models.Memory, error) {
	if err := checkImageRef(userId, in.Uri); err != nil {
		return models.Memory{}, err
	}
	if utf8.RuneCountInString(in.Caption) > maxTextLength {
		return models.Memory{}, ErrTextTooLong
	}
	album, err := albumOrDefault(in.Album)
	if err != nil {
		return models.Memory{}, err
	}

	memory := models.Memory{
		Id:       newId(),
		Uri:      in.Uri,
		Caption:  strings.TrimSpace(in.Caption),
		Date:     today(),
		Rotation: math.Floor(s.spread(12)),
		X:        math.Floor(s.spread(40)),
		Y:        math.Floor(s.spread(20)),
		Album:    album,

		SchemaVersion: models.MemorySchema.Version(),
	}

	if in.Magnet != nil {
		if err := finite(in.Magnet.X, in.Magnet.Y); err != nil {
			return models.Memory{}, err
		}
		magnet := &models.Magnet{
			Id:       newId(),
			Icon:     in.Magnet.Icon,
			Color:    in.Magnet.Color,
			X:        in.Magnet.X,
			Y:        in.Magnet.Y,
			Rotation: s.spread(30),
		}
		if magnet.Icon == "" {
			magnet.Icon = s.pick(models.MagnetIcons)
		}
		if magnet.Color == "" {
			magnet.Color = s.pick(models.MagnetColors)
		}
		if err := ValidateColor(magnet.Color); err != nil {
			return models.Memory{}, err
		}
		memory.Magnet = magnet
	}

	if err := s.Repos.Memories.Save(ctx, userId, memory); err != nil {
		return models.Memory{}, err
	}
	return memory, nil
}

// ListMemories returns the user's memories, newest first, optionally only
// those of one album.
func (s *Service) ListMemories(ctx context.Context, userId string, album string) ([]models.Memory, error) {
	if album == "" {
		return s.Repos.Memories.GetAll(ctx, userId)
	}
	return s.Repos.Memories.GetWhere(ctx, userId, "album", album)
}

// DeleteMemory removes a memory and, best effort, the uploaded photo.
func (s *Service) DeleteMemory(ctx context.Context, userId string, id string) error {
	memories, err := s.Repos.Memories.GetAll(ctx, userId)
	if err != nil {
		return err
	}
	if err := s.Repos.Memories.Delete(ctx, userId, id); err != nil {
		return err
	}
	for _, m := range memories {
		if m.Id == id && s.Images != nil && objects.OwnedBy(m.Uri, userId) {
			if err := s.Images.DeleteImage(ctx, m.Uri); err != nil {
				log.Printf("Failed to delete image %s of memory %s: %v", m.Uri, id, err)
			}
		}
	}
	return nil
}

func (s *Service) Albums(ctx context.Context, userId string) ([]string, error) {
	return s.Repos.Albums(ctx, userId)
}

func (s *Service) RenameAlbum(ctx context.Context, userId string, oldName string, newName string) error {
	if utf8.RuneCountInString(strings.TrimSpace(newName)) > maxAlbumLength {
		return ErrTextTooLong
	}
	return s.Repos.RenameAlbum(ctx, userId, oldName, newName)
}

type PaperBitKind string

const (
	BitNote         PaperBitKind = "note"
	BitSticker      PaperBitKind = "sticker"
	BitImageSticker PaperBitKind = "image"
)

// PaperBitInput describes a new paper bit. CanvasWidth is the width of the
// client's album view, used to center the bit. For image stickers Text is
// the image reference and ImageWidth/ImageHeight its pixel size.
type PaperBitInput struct {
	Kind        PaperBitKind `json:"kind"`
	Text        string       `json:"text"`
	Color       string       `json:"color"`
	Album       string       `json:"album"`
	CanvasWidth float64      `json:"canvasWidth"`
	ImageWidth  float64      `json:"imageWidth"`
	ImageHeight float64      `json:"imageHeight"`
}

// noteWidth grows with the text: 12 per character, clamped to [150, 300].
func noteWidth(text string) float64 {
	return math.Max(math.Min(float64(utf8.RuneCountInString(text))*12, 300), 150)
}

func (s *Service) AddPaperBit(ctx context.Context, userId string, in PaperBitInput) (models.PaperBit, error) {
	if err := finite(in.CanvasWidth, in.ImageWidth, in.ImageHeight); err != nil {
		return models.PaperBit{}, err
	}
	bit := models.PaperBit{Id: newId(), SchemaVersion: models.PaperBitSchema.Version()}

	switch in.Kind {
	case BitNote, "":
		text, err := cleanText(in.Text, maxTextLength)
		if err != nil {
			return models.PaperBit{}, err
		}
		album, err := albumOrDefault(in.Album)
		if err != nil {
			return models.PaperBit{}, err
		}
		color := in.Color
		if color == "" {
			color = s.pick(models.PaperColors)
		}
		if err := ValidateColor(color); err != nil {
			return models.PaperBit{}, err
		}
		bit.Text = text
		bit.X, bit.Y = in.CanvasWidth/2-75, 100
		bit.Rotation = s.spread(10)
		bit.Color = color
		bit.Width = noteWidth(text)
		bit.Album = album

	case BitSticker:
		text, err := cleanText(in.Text, maxTextLength)
		if err != nil {
			return models.PaperBit{}, err
		}
		album := strings.TrimSpace(in.Album)
		if album == "" {
			return models.PaperBit{}, ErrAlbumRequired
		}
		bit.Text = text
		bit.X, bit.Y = in.CanvasWidth/2-50, 150
		bit.Color = "transparent"
		bit.Width = 100
		bit.Album = album
		bit.IsSticker = true

	case BitImageSticker:
		if err := checkImageRef(userId, in.Text); err != nil {
			return models.PaperBit{}, err
		}
		album := strings.TrimSpace(in.Album)
		if album == "" {
			return models.PaperBit{}, ErrAlbumRequired
		}
		bit.ImageUri = in.Text
		bit.X, bit.Y = in.CanvasWidth/2-75, 150
		bit.Rotation = s.spread(10)
		bit.Color = "transparent"
		bit.Width = 150
		if in.ImageWidth > 0 && in.ImageHeight > 0 {
			h := 150 * in.ImageHeight / in.ImageWidth
			bit.Height = &h
		}
		bit.Album = album
		bit.IsSticker = true

	default:
		return models.PaperBit{}, ErrUnknownBitKind
	}

	if err := s.Repos.PaperBits.Save(ctx, userId, bit); err != nil {
		return models.PaperBit{}, err
	}
	return bit, nil
}

func (s *Service) ListPaperBits(ctx context.Context, userId string, album string) ([]models.PaperBit, error) {
	if album == "" {
		return s.Repos.PaperBits.GetAll(ctx, userId)
	}
	return s.Repos.PaperBits.GetWhere(ctx, userId, "album", album)
}

// PaperBitChange is a partial update. Nil fields are left alone.
type PaperBitChange struct {
	Text     *string  `json:"text,omitempty"`
	Color    *string  `json:"color,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
}

// UpdatePaperBit edits, moves or resizes a paper bit.
func (s *Service) UpdatePaperBit(ctx context.Context, userId string, id string, change PaperBitChange) (models.PaperBit, error) {
	bits, err := s.Repos.PaperBits.GetAll(ctx, userId)
	if err != nil {
		return models.PaperBit{}, err
	}
	idx := -1
	for i := range bits {
		if bits[i].Id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.PaperBit{}, ErrPaperBitMissing
	}
	bit := bits[idx]

	if change.Text != nil {
		text, err := cleanText(*change.Text, maxTextLength)
		if err != nil {
			return models.PaperBit{}, err
		}
		bit.Text = text
	}
	if change.Color != nil {
		if err := ValidateColor(*change.Color); err != nil {
			return models.PaperBit{}, err
		}
		bit.Color = *change.Color
	}
	for _, f := range []struct {
		src *float64
		dst *float64
	}{{change.X, &bit.X}, {change.Y, &bit.Y}, {change.Rotation, &bit.Rotation}, {change.Width, &bit.Width}} {
		if f.src == nil {
			continue
		}
		if err := finite(*f.src); err != nil {
			return models.PaperBit{}, err
		}
		*f.dst = *f.src
	}
	if change.Width != nil {
		bit.Width = math.Max(50, bit.Width)
	}
	if change.Height != nil {
		if err := finite(*change.Height); err != nil {
			return models.PaperBit{}, err
		}
		h := math.Max(1, *change.Height)
		bit.Height = &h
	}

	if err := s.Repos.PaperBits.Save(ctx, userId, bit); err != nil {
		return models.PaperBit{}, err
	}
	return bit, nil
}

func (s *Service) DeletePaperBit(ctx context.Context, userId string, id string) error {
	return s.Repos.PaperBits.Delete(ctx, userId, id)
}
