package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/service"
)

func TestSaveMemory_Defaults(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	memory, err := f.svc.SaveMemory(ctx, "u1", service.MemoryInput{
		Uri:     "users/u1/gallery/beach.jpg",
		Caption: "  sunny day ",
		Magnet:  &service.MagnetChoice{X: 10, Y: 20},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, memory.Id)
	assert.Equal(t, "sunny day", memory.Caption)
	assert.Equal(t, models.DefaultAlbum, memory.Album)
	assert.NotEmpty(t, memory.Date)
	assert.Equal(t, 0.0, memory.Rotation)
	require.NotNil(t, memory.Magnet)
	assert.Equal(t, models.MagnetIcons[4], memory.Magnet.Icon)
	assert.Equal(t, models.MagnetColors[3], memory.Magnet.Color)
	assert.Equal(t, 10.0, memory.Magnet.X)

	listed, err := f.svc.ListMemories(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, memory.Id, listed[0].Id)
	assert.Equal(t, memory.Caption, listed[0].Caption)
	assert.Equal(t, memory.Magnet, listed[0].Magnet)
}

func TestSaveMemory_Rejects(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: " "})
	assert.ErrorIs(t, err, service.ErrMissingImage)

	_, err = f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: "users/u2/gallery/theirs.jpg"})
	assert.ErrorIs(t, err, service.ErrNotOwned)

	_, err = f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: "users/u1/gallery/../../u2/x.jpg"})
	assert.ErrorIs(t, err, service.ErrNotOwned)

	_, err = f.svc.SaveMemory(ctx, "u1", service.MemoryInput{
		Uri:    "file:///legacy.jpg",
		Magnet: &service.MagnetChoice{Color: "red"},
	})
	assert.ErrorIs(t, err, service.ErrInvalidColor)
}

func TestAlbums_ListAndRename(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	for _, album := range []string{"Trip", "Trip", "Home", ""} {
		_, err := f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: "file:///a.jpg", Album: album})
		require.NoError(t, err)
	}
	_, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Kind: service.BitSticker, Text: "⭐", Album: "Trip"})
	require.NoError(t, err)

	albums, err := f.svc.Albums(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Trip", models.DefaultAlbum}, albums)

	trip, err := f.svc.ListMemories(ctx, "u1", "Trip")
	require.NoError(t, err)
	assert.Len(t, trip, 2)

	require.NoError(t, f.svc.RenameAlbum(ctx, "u1", "Trip", " Summer "))

	albums, err = f.svc.Albums(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Summer", models.DefaultAlbum}, albums)

	bits, err := f.svc.ListPaperBits(ctx, "u1", "Summer")
	require.NoError(t, err)
	assert.Len(t, bits, 1)

	err = f.svc.RenameAlbum(ctx, "u1", "Home", strings.Repeat("x", 61))
	assert.ErrorIs(t, err, service.ErrTextTooLong)
}

func TestDeleteMemory_RemovesOwnedImage(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	memory, err := f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: "users/u1/gallery/a.jpg"})
	require.NoError(t, err)
	legacy, err := f.svc.SaveMemory(ctx, "u1", service.MemoryInput{Uri: "file:///b.jpg"})
	require.NoError(t, err)

	f.images.On("DeleteImage", mock.Anything, "users/u1/gallery/a.jpg").Return(errors.New("gone already")).Once()

	require.NoError(t, f.svc.DeleteMemory(ctx, "u1", memory.Id))
	require.NoError(t, f.svc.DeleteMemory(ctx, "u1", legacy.Id))

	left, err := f.svc.ListMemories(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, left)
	f.images.AssertExpectations(t)
}

func TestAddPaperBit_Kinds(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	note, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Text: "hi", CanvasWidth: 400})
	require.NoError(t, err)
	assert.Equal(t, 125.0, note.X)
	assert.Equal(t, 100.0, note.Y)
	assert.Equal(t, 150.0, note.Width)
	assert.Equal(t, models.PaperColors[3], note.Color)
	assert.Equal(t, models.DefaultAlbum, note.Album)
	assert.False(t, note.IsSticker)

	long, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Text: strings.Repeat("a", 20), Color: "#FFFFFF"})
	require.NoError(t, err)
	assert.Equal(t, 240.0, long.Width)
	longer, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Text: strings.Repeat("a", 40)})
	require.NoError(t, err)
	assert.Equal(t, 300.0, longer.Width)

	sticker, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Kind: service.BitSticker, Text: "🌸", Album: "Trip", CanvasWidth: 400})
	require.NoError(t, err)
	assert.True(t, sticker.IsSticker)
	assert.Equal(t, 150.0, sticker.X)
	assert.Equal(t, 100.0, sticker.Width)
	assert.Equal(t, "transparent", sticker.Color)

	image, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{
		Kind: service.BitImageSticker, Text: "users/u1/gallery/s.png", Album: "Trip", ImageWidth: 200, ImageHeight: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "users/u1/gallery/s.png", image.ImageUri)
	require.NotNil(t, image.Height)
	assert.Equal(t, 75.0, *image.Height)

	_, err = f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Kind: service.BitSticker, Text: "🌸"})
	assert.ErrorIs(t, err, service.ErrAlbumRequired)
	_, err = f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Text: "   "})
	assert.ErrorIs(t, err, service.ErrEmptyText)
	_, err = f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Kind: "ribbon", Text: "x"})
	assert.ErrorIs(t, err, service.ErrUnknownBitKind)
}

func TestUpdatePaperBit(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	bit, err := f.svc.AddPaperBit(ctx, "u1", service.PaperBitInput{Text: "hi"})
	require.NoError(t, err)

	x, y, width := 33.0, 44.0, 10.0
	moved, err := f.svc.UpdatePaperBit(ctx, "u1", bit.Id, service.PaperBitChange{X: &x, Y: &y, Width: &width})
	require.NoError(t, err)
	assert.Equal(t, 33.0, moved.X)
	assert.Equal(t, 44.0, moved.Y)
	assert.Equal(t, 50.0, moved.Width)
	assert.Equal(t, "hi", moved.Text)

	bits, err := f.svc.ListPaperBits(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, bits, 1)
	assert.Equal(t, moved, bits[0])

	_, err = f.svc.UpdatePaperBit(ctx, "u1", "nope", service.PaperBitChange{X: &x})
	assert.ErrorIs(t, err, service.ErrPaperBitMissing)

	require.NoError(t, f.svc.DeletePaperBit(ctx, "u1", bit.Id))
	bits, err = f.svc.ListPaperBits(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, bits)
}
