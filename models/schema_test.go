package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/models"
)

func TestDecodePaperBit_LegacyDefaults(t *testing.T) {
	legacy := []byte(`{"id":"b1","text":"hi","color":"#FFF9C4","x":null}`)

	bit, migrated, err := models.Decode[models.PaperBit](models.PaperBitSchema, legacy)
	require.NoError(t, err)

	assert.True(t, migrated)
	assert.Equal(t, "b1", bit.Id)
	assert.Equal(t, 150.0, bit.Width)
	assert.Equal(t, 20.0, bit.X)
	assert.Equal(t, 100.0, bit.Y)
	assert.Equal(t, 0.0, bit.Rotation)
	assert.Equal(t, models.DefaultAlbum, bit.Album)
	assert.Equal(t, models.PaperBitSchema.Version(), bit.SchemaVersion)
}

func TestDecodePaperBit_KeepsValidFields(t *testing.T) {
	legacy := []byte(`{"id":"b1","text":"hi","x":5,"y":6,"rotation":-2,"width":90,"album":"Trips"}`)

	bit, migrated, err := models.Decode[models.PaperBit](models.PaperBitSchema, legacy)
	require.NoError(t, err)

	// Version bump alone still counts as a migration
	assert.True(t, migrated)
	assert.Equal(t, 5.0, bit.X)
	assert.Equal(t, 6.0, bit.Y)
	assert.Equal(t, -2.0, bit.Rotation)
	assert.Equal(t, 90.0, bit.Width)
	assert.Equal(t, "Trips", bit.Album)
}

func TestDecodePaperBit_NonNumericPosition(t *testing.T) {
	legacy := []byte(`{"id":"b1","x":"12px","y":true,"rotation":"NaN","width":"wide"}`)

	bit, _, err := models.Decode[models.PaperBit](models.PaperBitSchema, legacy)
	require.NoError(t, err)

	assert.Equal(t, 20.0, bit.X)
	assert.Equal(t, 100.0, bit.Y)
	assert.Equal(t, 0.0, bit.Rotation)
	assert.Equal(t, 150.0, bit.Width)
}

func TestDecode_CurrentVersionUntouched(t *testing.T) {
	bit := models.PaperBit{Id: "b1", Width: 0, X: 0, Y: 0, Album: "", SchemaVersion: models.PaperBitSchema.Version()}
	data, err := json.Marshal(bit)
	require.NoError(t, err)

	decoded, migrated, err := models.Decode[models.PaperBit](models.PaperBitSchema, data)
	require.NoError(t, err)

	assert.False(t, migrated)
	assert.Equal(t, bit, decoded)
}

func TestDecodeMemory_BackfillsAlbum(t *testing.T) {
	memory, migrated, err := models.Decode[models.Memory](models.MemorySchema, []byte(`{"id":"m1","uri":"file://a.jpg","memory":"beach"}`))
	require.NoError(t, err)

	assert.True(t, migrated)
	assert.Equal(t, models.DefaultAlbum, memory.Album)
	assert.Equal(t, "beach", memory.Caption)
}

func TestDecodeDiaryElement_BackfillsScale(t *testing.T) {
	el, migrated, err := models.Decode[models.DiaryElement](models.DiaryElementSchema, []byte(`{"id":"e1","entryId":"d1","type":"text","content":"x"}`))
	require.NoError(t, err)

	assert.True(t, migrated)
	assert.Equal(t, 1.0, el.Scale)
	assert.Nil(t, el.Width)
}

func TestDecodeTodo_NoMigrations(t *testing.T) {
	todo, migrated, err := models.Decode[models.TodoItem](models.TodoSchema, []byte(`{"id":"t1","text":"buy milk","completed":true}`))
	require.NoError(t, err)

	assert.False(t, migrated)
	assert.True(t, todo.Completed)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, _, err := models.Decode[models.PaperBit](models.PaperBitSchema, []byte(`{invalid`))
	assert.Error(t, err)

	_, _, err = models.Decode[models.PaperBit](models.PaperBitSchema, []byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDiaryElementClone_DoesNotAlias(t *testing.T) {
	width := 100.0
	z := 3
	el := models.DiaryElement{Id: "p1", Points: []models.Point{{X: 1, Y: 2}}, Width: &width, ZIndex: &z}

	c := el.Clone()
	c.Points[0].X = 99
	*c.Width = 5
	*c.ZIndex = 7

	assert.Equal(t, 1.0, el.Points[0].X)
	assert.Equal(t, 100.0, *el.Width)
	assert.Equal(t, 3, *el.ZIndex)
}
