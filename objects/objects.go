package objects

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ImageStore holds user-uploaded pictures. Objects live under
// users/{userId}/{folder}/ so one prefix covers everything a user owns.
type ImageStore interface {
	PutImage(ctx context.Context, userId string, folder string, filename string, r io.Reader, size int64, contentType string) (string, error)
	ImageURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteImage(ctx context.Context, objectName string) error
	DeleteUserImages(ctx context.Context, userId string) (int, error)
}

const (
	FolderGallery = "gallery"
	FolderDiary   = "diary"
	FolderBanner  = "banner"
)

var (
	ErrInvalidFolder = errors.New("invalid image folder")
	ErrNotAnImage    = errors.New("content type is not an image")
)

func ValidFolder(folder string) bool {
	switch folder {
	case FolderGallery, FolderDiary, FolderBanner:
		return true
	}
	return false
}

func UserPrefix(userId string) string {
	return "users/" + userId + "/"
}

// ObjectName builds the storage path for an upload. The original filename
// only contributes its extension.
func ObjectName(userId string, folder string, id string, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return UserPrefix(userId) + folder + "/" + id + ext
}

// OwnedBy reports whether an object name sits inside the user's prefix.
func OwnedBy(objectName string, userId string) bool {
	clean := path.Clean(objectName)
	return clean == objectName && strings.HasPrefix(clean, UserPrefix(userId))
}
