package objects_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zlnvch/heartfolio/objects"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "users/u1/gallery/abc.jpg", objects.ObjectName("u1", objects.FolderGallery, "abc", "IMG_001.JPG"))
	assert.Equal(t, "users/u1/diary/abc", objects.ObjectName("u1", objects.FolderDiary, "abc", "noext"))
}

func TestOwnedBy(t *testing.T) {
	assert.True(t, objects.OwnedBy("users/u1/gallery/a.png", "u1"))
	assert.False(t, objects.OwnedBy("users/u2/gallery/a.png", "u1"))
	assert.False(t, objects.OwnedBy("users/u1/../u2/gallery/a.png", "u1"))
	assert.False(t, objects.OwnedBy("users/u10/gallery/a.png", "u1"))
}

func TestValidFolder(t *testing.T) {
	assert.True(t, objects.ValidFolder("gallery"))
	assert.False(t, objects.ValidFolder("../etc"))
}
