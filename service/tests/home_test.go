package service_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/service"
)

func TestGetHome_Defaults(t *testing.T) {
	f := setupService(t)

	home := f.svc.GetHome(context.Background(), "u1")
	assert.Equal(t, "Sweetie", home.Profile.Nickname)
	assert.Equal(t, "Welcome to my Heartfolio! 🌸", home.Profile.Bio)
	assert.True(t, strings.HasPrefix(home.Profile.Banner, "https://images.unsplash.com/"))
	assert.Empty(t, home.Stickers)
	assert.Equal(t, models.DecoPosition{X: -40, Y: 160, Scale: 1}, home.Deco["cat"])
	assert.Equal(t, models.DecoPosition{X: 100, Y: 130, Scale: 1}, home.Deco["heart"])
}

func TestGetHome_RecoversLegacyKeys(t *testing.T) {
	f := setupService(t)
	f.backend.Data["userNickname"] = "Bunny"
	f.backend.Data["u1_ userBio"] = "old bio"
	f.backend.Data["u1_dynamicStickers"] = "{not json"

	home := f.svc.GetHome(context.Background(), "u1")
	assert.Equal(t, "Bunny", home.Profile.Nickname)
	assert.Equal(t, "old bio", home.Profile.Bio)
	assert.Empty(t, home.Stickers)

	assert.Equal(t, "Bunny", f.backend.Data["u1_userNickname"])
	assert.NotContains(t, f.backend.Data, "userNickname")
	assert.Equal(t, "old bio", f.backend.Data["u1_userBio"])
	assert.NotContains(t, f.backend.Data, "u1_ userBio")
}

func TestSaveProfile(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	nick, bio, banner := " Honey ", "", "users/u1/banner/sky.jpg"
	require.NoError(t, f.svc.SaveProfile(ctx, "u1", service.ProfileChange{Nickname: &nick, Bio: &bio, Banner: &banner}))

	home := f.svc.GetHome(ctx, "u1")
	assert.Equal(t, "Honey", home.Profile.Nickname)
	// An empty bio reads back as the default
	assert.Equal(t, "Welcome to my Heartfolio! 🌸", home.Profile.Bio)
	assert.Equal(t, banner, home.Profile.Banner)

	// Other users keep their defaults
	assert.Equal(t, "Sweetie", f.svc.GetHome(ctx, "u2").Profile.Nickname)

	theirs := "users/u2/banner/x.jpg"
	assert.ErrorIs(t, f.svc.SaveProfile(ctx, "u1", service.ProfileChange{Banner: &theirs}), service.ErrNotOwned)
	long := strings.Repeat("b", 201)
	assert.ErrorIs(t, f.svc.SaveProfile(ctx, "u1", service.ProfileChange{Bio: &long}), service.ErrTextTooLong)
}

func TestSaveHomeStickers(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	stickers := []models.HomeSticker{
		{Text: "hi", Color: "#FF5252", X: 10, Y: 20, Type: "text"},
		{Id: "fixed", Text: "🌸", Scale: 2, Type: "sticker"},
	}
	require.NoError(t, f.svc.SaveHomeStickers(ctx, "u1", stickers))

	home := f.svc.GetHome(ctx, "u1")
	require.Len(t, home.Stickers, 2)
	assert.NotEmpty(t, home.Stickers[0].Id)
	assert.Equal(t, 1.0, home.Stickers[0].Scale)
	assert.Equal(t, "fixed", home.Stickers[1].Id)
	assert.Equal(t, 2.0, home.Stickers[1].Scale)

	var stored []models.HomeSticker
	require.NoError(t, json.Unmarshal([]byte(f.backend.Data["u1_dynamicStickers"]), &stored))
	assert.Len(t, stored, 2)

	err := f.svc.SaveHomeStickers(ctx, "u1", []models.HomeSticker{{Text: "x", Color: "blue"}})
	assert.ErrorIs(t, err, service.ErrInvalidColor)
	err = f.svc.SaveHomeStickers(ctx, "u1", make([]models.HomeSticker, 101))
	assert.ErrorIs(t, err, service.ErrTooMany)
}

func TestMoveDeco(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	require.NoError(t, f.svc.MoveDeco(ctx, "u1", "cat", models.DecoPosition{X: 5, Y: 6, Rotation: 15, Scale: 1.5}))

	home := f.svc.GetHome(ctx, "u1")
	assert.Equal(t, models.DecoPosition{X: 5, Y: 6, Rotation: 15, Scale: 1.5}, home.Deco["cat"])
	assert.Equal(t, models.DecoPosition{X: 100, Y: 130, Scale: 1}, home.Deco["heart"])

	assert.ErrorIs(t, f.svc.MoveDeco(ctx, "u1", "dragon", models.DecoPosition{}), service.ErrUnknownDeco)
}

func TestTheme(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	assert.Equal(t, service.ThemeLight, f.svc.Theme(ctx))
	require.NoError(t, f.svc.SetTheme(ctx, service.ThemeDark))
	assert.Equal(t, service.ThemeDark, f.svc.Theme(ctx))
	assert.Equal(t, service.ThemeDark, f.backend.Data["app_theme"])

	assert.ErrorIs(t, f.svc.SetTheme(ctx, "sepia"), service.ErrInvalidTheme)
}
