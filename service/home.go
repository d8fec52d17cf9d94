package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/zlnvch/heartfolio/models"
)

// UI-state keys of the home screen, scoped per user.
const (
	keyNickname = "userNickname"
	keyBio      = "userBio"
	keyBanner   = "userBanner"
	keyStickers = "dynamicStickers"
	keyDeco     = "decoPositions"

	// App-wide, not scoped
	keyTheme = "app_theme"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

const (
	defaultNickname = "Sweetie"
	defaultBio      = "Welcome to my Heartfolio! 🌸"
	defaultBanner   = "https://images.unsplash.com/photo-1542332213-31f87348057f?q=80&w=2670&auto=format&fit=crop"

	maxNicknameLength = 40
	maxBioLength      = 200
	maxHomeStickers   = 100
)

var (
	ErrInvalidTheme = errors.New("theme must be light or dark")
	ErrTooMany      = errors.New("too many stickers")
	ErrUnknownDeco  = errors.New("unknown decoration")
)

func defaultDeco() map[string]models.DecoPosition {
	return map[string]models.DecoPosition{
		"cat":   {X: -40, Y: 160, Scale: 1},
		"heart": {X: 100, Y: 130, Scale: 1},
	}
}

type HomeData struct {
	Profile  models.Profile                 `json:"profile"`
	Stickers []models.HomeSticker           `json:"stickers"`
	Deco     map[string]models.DecoPosition `json:"deco"`
}

// GetHome reads the home screen, filling in defaults for anything unset.
// Unreadable JSON is logged and replaced by the default.
func (s *Service) GetHome(ctx context.Context, userId string) HomeData {
	home := HomeData{
		Profile:  models.Profile{Nickname: defaultNickname, Bio: defaultBio, Banner: defaultBanner},
		Stickers: []models.HomeSticker{},
		Deco:     defaultDeco(),
	}
	if v, ok := s.Workspace.Get(ctx, userId, keyNickname); ok && v != "" {
		home.Profile.Nickname = v
	}
	if v, ok := s.Workspace.Get(ctx, userId, keyBio); ok && v != "" {
		home.Profile.Bio = v
	}
	if v, ok := s.Workspace.Get(ctx, userId, keyBanner); ok && v != "" {
		home.Profile.Banner = v
	}
	if v, ok := s.Workspace.Get(ctx, userId, keyStickers); ok {
		var stickers []models.HomeSticker
		if err := json.Unmarshal([]byte(v), &stickers); err != nil {
			log.Printf("Ignoring unreadable home stickers of user %s: %v", userId, err)
		} else if stickers != nil {
			home.Stickers = stickers
		}
	}
	if v, ok := s.Workspace.Get(ctx, userId, keyDeco); ok {
		var deco map[string]models.DecoPosition
		if err := json.Unmarshal([]byte(v), &deco); err != nil {
			log.Printf("Ignoring unreadable deco positions of user %s: %v", userId, err)
		} else {
			for name, pos := range deco {
				home.Deco[name] = pos
			}
		}
	}
	return home
}

type ProfileChange struct {
	Nickname *string `json:"nickname,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Banner   *string `json:"banner,omitempty"`
}

func (s *Service) SaveProfile(ctx context.Context, userId string, change ProfileChange) error {
	if change.Nickname != nil {
		nick, err := cleanText(*change.Nickname, maxNicknameLength)
		if err != nil {
			return err
		}
		if err := s.Workspace.Set(ctx, userId, keyNickname, nick); err != nil {
			return err
		}
	}
	if change.Bio != nil {
		if utf8.RuneCountInString(*change.Bio) > maxBioLength {
			return ErrTextTooLong
		}
		if err := s.Workspace.Set(ctx, userId, keyBio, *change.Bio); err != nil {
			return err
		}
	}
	if change.Banner != nil {
		if err := checkImageRef(userId, *change.Banner); err != nil {
			return err
		}
		if err := s.Workspace.Set(ctx, userId, keyBanner, *change.Banner); err != nil {
			return err
		}
	}
	return nil
}

// SaveHomeStickers replaces the whole sticker list.
func (s *Service) SaveHomeStickers(ctx context.Context, userId string, stickers []models.HomeSticker) error {
	if len(stickers) > maxHomeStickers {
		return ErrTooMany
	}
	for i := range stickers {
		st := &stickers[i]
		if st.Id == "" {
			st.Id = newId()
		}
		if err := finite(st.X, st.Y, st.Scale, st.Rotation); err != nil {
			return err
		}
		if st.Scale == 0 {
			st.Scale = 1
		}
		if utf8.RuneCountInString(st.Text) > maxTextLength {
			return ErrTextTooLong
		}
		if st.Color != "" {
			if err := ValidateColor(st.Color); err != nil {
				return err
			}
		}
	}
	b, err := json.Marshal(stickers)
	if err != nil {
		return err
	}
	return s.Workspace.Set(ctx, userId, keyStickers, string(b))
}

// MoveDeco stores the position of one built-in decoration.
func (s *Service) MoveDeco(ctx context.Context, userId string, name string, pos models.DecoPosition) error {
	if _, ok := defaultDeco()[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownDeco, name)
	}
	if err := finite(pos.X, pos.Y, pos.Scale, pos.Rotation); err != nil {
		return err
	}
	deco := s.GetHome(ctx, userId).Deco
	deco[name] = pos
	b, err := json.Marshal(deco)
	if err != nil {
		return err
	}
	return s.Workspace.Set(ctx, userId, keyDeco, string(b))
}

func (s *Service) Theme(ctx context.Context) string {
	if v, ok := s.Workspace.GetShared(ctx, keyTheme); ok && v == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (s *Service) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	return s.Workspace.SetShared(ctx, keyTheme, theme)
}
