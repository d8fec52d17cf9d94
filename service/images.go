package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/zlnvch/heartfolio/objects"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 10 << 20

var (
	ErrImageTooLarge  = errors.New("image is too large")
	ErrImagesDisabled = errors.New("image storage is not configured")
	imageURLExpiry    = 15 * time.Minute
)

// UploadImage stores a picture under the user's prefix and returns the
// object name used as a memory uri or element content.
func (s *Service) UploadImage(ctx context.Context, userId string, folder string, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if s.Images == nil {
		return "", ErrImagesDisabled
	}
	if !objects.ValidFolder(folder) {
		return "", objects.ErrInvalidFolder
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", objects.ErrNotAnImage
	}
	if size <= 0 || size > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	return s.Images.PutImage(ctx, userId, folder, filename, r, size, contentType)
}

// ImageURL returns a short-lived download link for one of the user's images.
func (s *Service) ImageURL(ctx context.Context, userId string, objectName string) (string, error) {
	if s.Images == nil {
		return "", ErrImagesDisabled
	}
	if !objects.OwnedBy(objectName, userId) {
		return "", ErrNotOwned
	}
	return s.Images.ImageURL(ctx, objectName, imageURLExpiry)
}
