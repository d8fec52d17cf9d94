package repository_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/kv"
	kvmocks "github.com/zlnvch/heartfolio/kv/mocks"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/repository"
	"github.com/zlnvch/heartfolio/store"
	storemocks "github.com/zlnvch/heartfolio/store/mocks"
)

type backendCase struct {
	name  string
	setup func() *repository.Repositories
}

func backends() []backendCase {
	return []backendCase{
		{"local", func() *repository.Repositories {
			return repository.NewLocal(kv.NewScopedStore(kvmocks.NewMemoryBackend()))
		}},
		{"remote", func() *repository.Repositories {
			return repository.NewRemote(storemocks.NewMemoryStore())
		}},
	}
}

func element(id string, entryId string) models.DiaryElement {
	return models.DiaryElement{Id: id, EntryId: entryId, Type: models.ElementText, Content: id, Scale: 1}
}

func ids[T interface{ Key() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Key())
	}
	return out
}

func TestCollection_SaveUpserts(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.Todos.Save(ctx, "u1", models.TodoItem{Id: "t1", Text: "milk"}))
			require.NoError(t, repos.Todos.Save(ctx, "u1", models.TodoItem{Id: "t1", Text: "oat milk", Completed: true}))

			todos, err := repos.Todos.GetAll(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, todos, 1)
			assert.Equal(t, "oat milk", todos[0].Text)
			assert.True(t, todos[0].Completed)
			assert.Equal(t, models.TodoSchema.Version(), todos[0].SchemaVersion)
		})
	}
}

func TestCollection_NewestFirst(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			for _, id := range []string{"m1", "m2", "m3"} {
				require.NoError(t, repos.Memories.Save(ctx, "u1", models.Memory{Id: id, Album: "Trips"}))
			}

			memories, err := repos.Memories.GetAll(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"m3", "m2", "m1"}, ids(memories))
		})
	}
}

func TestLocalCollection_ElementsAppend(t *testing.T) {
	repos := repository.NewLocal(kv.NewScopedStore(kvmocks.NewMemoryBackend()))
	ctx := context.Background()

	require.NoError(t, repos.DiaryElements.Save(ctx, "u1", element("a", "e1")))
	require.NoError(t, repos.DiaryElements.Save(ctx, "u1", element("b", "e1")))

	elements, err := repos.ElementsForEntry(ctx, "u1", "e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(elements))
}

func TestCollection_UsersAreIsolated(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.Todos.Save(ctx, "u1", models.TodoItem{Id: "t1"}))

			todos, err := repos.Todos.GetAll(ctx, "u2")
			require.NoError(t, err)
			assert.Empty(t, todos)
		})
	}
}

func TestCollection_RejectsShortStroke(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			stroke := models.DiaryElement{
				Id: "path_1", EntryId: "e1", Type: models.ElementPath,
				Points: []models.Point{{X: 1, Y: 1}},
			}
			assert.ErrorIs(t, repos.DiaryElements.Save(ctx, "u1", stroke), repository.ErrInvalidRecord)
			assert.ErrorIs(t, repos.Todos.Save(ctx, "u1", models.TodoItem{}), repository.ErrMissingId)

			_, err := repos.Todos.GetWhere(ctx, "u1", "album", "x")
			assert.ErrorIs(t, err, repository.ErrUnknownField)
		})
	}
}

func TestRepositories_RenameAlbum(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.Memories.SaveAll(ctx, "u1", []models.Memory{
				{Id: "m1", Album: "Summer"},
				{Id: "m2", Album: "Winter"},
				{Id: "m3", Album: "Summer"},
			}))
			require.NoError(t, repos.PaperBits.SaveAll(ctx, "u1", []models.PaperBit{
				{Id: "b1", Album: "Summer", Width: 150},
				{Id: "b2", Album: "Winter", Width: 150},
			}))

			require.NoError(t, repos.RenameAlbum(ctx, "u1", "Summer", "  Beach  "))

			memories, err := repos.Memories.GetAll(ctx, "u1")
			require.NoError(t, err)
			counts := map[string]int{}
			for _, m := range memories {
				counts[m.Album]++
			}
			assert.Equal(t, map[string]int{"Beach": 2, "Winter": 1}, counts)

			summer, err := repos.PaperBits.GetWhere(ctx, "u1", "album", "Summer")
			require.NoError(t, err)
			assert.Empty(t, summer)
			beach, err := repos.PaperBits.GetWhere(ctx, "u1", "album", "Beach")
			require.NoError(t, err)
			assert.Equal(t, []string{"b1"}, ids(beach))

			albums, err := repos.Albums(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"Beach", "Winter"}, albums)
		})
	}
}

func TestRepositories_RenameAlbumNoop(t *testing.T) {
	repos := repository.NewRemote(storemocks.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, repos.Memories.Save(ctx, "u1", models.Memory{Id: "m1", Album: "A"}))
	require.NoError(t, repos.RenameAlbum(ctx, "u1", "A", "   "))
	require.NoError(t, repos.RenameAlbum(ctx, "u1", "A", "A"))
	assert.ErrorIs(t, repos.RenameAlbum(ctx, "u1", "", "B"), repository.ErrInvalidAlbum)

	albums, err := repos.Albums(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, albums)
}

func TestRepositories_DeleteDiaryEntryCascades(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.DiaryEntries.Save(ctx, "u1", models.DiaryEntry{Id: "e1", Title: "Monday"}))
			require.NoError(t, repos.DiaryEntries.Save(ctx, "u1", models.DiaryEntry{Id: "e2", Title: "Tuesday"}))
			require.NoError(t, repos.DiaryElements.SaveAll(ctx, "u1", []models.DiaryElement{
				element("a", "e1"), element("b", "e1"), element("c", "e2"),
			}))

			require.NoError(t, repos.DeleteDiaryEntry(ctx, "u1", "e1"))

			entries, err := repos.DiaryEntries.GetAll(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"e2"}, ids(entries))

			orphans, err := repos.ElementsForEntry(ctx, "u1", "e1")
			require.NoError(t, err)
			assert.Empty(t, orphans)

			others, err := repos.ElementsForEntry(ctx, "u1", "e2")
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, ids(others))
		})
	}
}

func TestRepositories_ReplaceEntryElements(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.DiaryElements.SaveAll(ctx, "u1", []models.DiaryElement{
				element("a", "e1"), element("b", "e1"), element("c", "e2"),
			}))

			edited := element("b", "e1")
			edited.Content = "edited"
			require.NoError(t, repos.ReplaceEntryElements(ctx, "u1", "e1", []models.DiaryElement{edited, element("d", "e1")}))

			elements, err := repos.ElementsForEntry(ctx, "u1", "e1")
			require.NoError(t, err)
			byId := map[string]models.DiaryElement{}
			for _, e := range elements {
				byId[e.Id] = e
			}
			assert.Len(t, byId, 2)
			assert.Equal(t, "edited", byId["b"].Content)
			assert.Contains(t, byId, "d")

			others, err := repos.ElementsForEntry(ctx, "u1", "e2")
			require.NoError(t, err)
			assert.Len(t, others, 1)

			// Elements of another entry cannot be smuggled in
			err = repos.ReplaceEntryElements(ctx, "u1", "e1", []models.DiaryElement{element("x", "e2")})
			assert.ErrorIs(t, err, repository.ErrInvalidRecord)
		})
	}
}

func TestLocalCollection_BackfillsLegacyRecords(t *testing.T) {
	backend := kvmocks.NewMemoryBackend()
	repos := repository.NewLocal(kv.NewScopedStore(backend))
	ctx := context.Background()

	backend.Data["u1_heartfolio_paper_bits"] = `[{"id":"b1","text":"hi","color":"#FFF9C4"},{"id":"b2","text":"x","width":200,"x":5,"y":6,"rotation":3,"album":"Trips"}]`

	bits, err := repos.PaperBits.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, bits, 2)

	assert.Equal(t, models.DefaultAlbum, bits[0].Album)
	assert.Equal(t, 150.0, bits[0].Width)
	assert.Equal(t, 20.0, bits[0].X)
	assert.Equal(t, 100.0, bits[0].Y)
	assert.Equal(t, 0.0, bits[0].Rotation)

	assert.Equal(t, "Trips", bits[1].Album)
	assert.Equal(t, 200.0, bits[1].Width)
	assert.Equal(t, 5.0, bits[1].X)

	// Written back with the current schema version
	var stored []map[string]any
	require.NoError(t, json.Unmarshal([]byte(backend.Data["u1_heartfolio_paper_bits"]), &stored))
	for _, s := range stored {
		assert.EqualValues(t, models.PaperBitSchema.Version(), s["schemaVersion"])
		assert.NotEmpty(t, s["album"])
	}
}

func TestLocalCollection_LegacyKeyMigratedThenBackfilled(t *testing.T) {
	backend := kvmocks.NewMemoryBackend()
	repos := repository.NewLocal(kv.NewScopedStore(backend))
	ctx := context.Background()

	backend.Data["heartfolio_memories"] = `[{"id":"m1","uri":"a.jpg","memory":"first"}]`

	memories, err := repos.Memories.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, "first", memories[0].Caption)
	assert.Equal(t, models.DefaultAlbum, memories[0].Album)
	assert.NotContains(t, backend.Data, "heartfolio_memories")
	assert.Contains(t, backend.Data, "u1_heartfolio_memories")
}

func TestRemoteCollection_BackfillWritesBackOnce(t *testing.T) {
	docs := storemocks.NewMemoryStore()
	repos := repository.NewRemote(docs)
	ctx := context.Background()

	_, err := docs.PutDocument(ctx, "u1", store.DiaryElements, store.Document{
		Id:    "text_1",
		Data:  []byte(`{"id":"text_1","entryId":"e1","type":"text","content":"hi","x":1,"y":2,"rotation":0}`),
		Index: map[string]string{"entryId": "e1"},
	})
	require.NoError(t, err)
	puts := docs.Puts[store.DiaryElements]

	elements, err := repos.ElementsForEntry(ctx, "u1", "e1")
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, 1.0, elements[0].Scale)
	assert.Equal(t, puts+1, docs.Puts[store.DiaryElements])

	_, err = repos.ElementsForEntry(ctx, "u1", "e1")
	require.NoError(t, err)
	assert.Equal(t, puts+1, docs.Puts[store.DiaryElements])
}

func TestRepositories_DeleteAll(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			repos := bc.setup()
			ctx := context.Background()

			require.NoError(t, repos.Todos.Save(ctx, "u1", models.TodoItem{Id: "t1"}))
			require.NoError(t, repos.Memories.Save(ctx, "u1", models.Memory{Id: "m1"}))
			require.NoError(t, repos.Todos.Save(ctx, "u2", models.TodoItem{Id: "t1"}))

			n, err := repos.DeleteAll(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			todos, err := repos.Todos.GetAll(ctx, "u2")
			require.NoError(t, err)
			assert.Len(t, todos, 1)
		})
	}
}
