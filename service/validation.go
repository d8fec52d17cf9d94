package service

import (
	"errors"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zlnvch/heartfolio/models"
)

var (
	ErrEmptyText    = errors.New("text is empty")
	ErrTextTooLong  = errors.New("text is too long")
	ErrInvalidColor = errors.New("invalid color")
	ErrInvalidId    = errors.New("invalid id")
	ErrInvalidNum   = errors.New("coordinates must be finite numbers")
	ErrNotOwned     = errors.New("image does not belong to user")
)

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Ids are generated by clients as well as by us, so accept anything that
// is short and cannot break a key or a document path.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const (
	maxTextLength  = 2000
	maxTitleLength = 120
	maxAlbumLength = 60
)

func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at:], ".")
}

// ValidateColor accepts #RRGGBB and "transparent", which stickers use.
func ValidateColor(color string) error {
	if color == "transparent" || hexColorRegex.MatchString(color) {
		return nil
	}
	return ErrInvalidColor
}

func ValidateId(id string) error {
	if !idRegex.MatchString(id) {
		return ErrInvalidId
	}
	return nil
}

// cleanText trims text and enforces a length limit in runes.
func cleanText(text string, max int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > max {
		return "", ErrTextTooLong
	}
	return text, nil
}

func finite(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidNum
		}
	}
	return nil
}

// albumOrDefault trims an album name, falling back to the default album.
func albumOrDefault(album string) (string, error) {
	album = strings.TrimSpace(album)
	if album == "" {
		return models.DefaultAlbum, nil
	}
	if utf8.RuneCountInString(album) > maxAlbumLength {
		return "", ErrTextTooLong
	}
	return album, nil
}
