package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/service"
)

func TestAddTodo_CenteredOnBoard(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	todo, err := f.svc.AddTodo(ctx, "u1", service.TodoInput{Text: " water plants ", CanvasWidth: 400, CanvasHeight: 800})
	require.NoError(t, err)
	assert.Equal(t, "water plants", todo.Text)
	assert.Equal(t, 125.0, todo.X)
	assert.Equal(t, 300.0, todo.Y)
	assert.Equal(t, 0.0, todo.Rotation)
	assert.Equal(t, models.PaperColors[3], todo.Color)
	assert.False(t, todo.Completed)

	todos, err := f.svc.ListTodos(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, todo.Id, todos[0].Id)

	other, err := f.svc.ListTodos(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAddTodo_Rejects(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddTodo(ctx, "u1", service.TodoInput{Text: ""})
	assert.ErrorIs(t, err, service.ErrEmptyText)
	_, err = f.svc.AddTodo(ctx, "u1", service.TodoInput{Text: "x", Color: "pink"})
	assert.ErrorIs(t, err, service.ErrInvalidColor)
	_, err = f.svc.AddTodo(ctx, "u1", service.TodoInput{Text: "x", CanvasWidth: math.NaN()})
	assert.ErrorIs(t, err, service.ErrInvalidNum)
}

func TestToggleMoveDeleteTodo(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	todo, err := f.svc.AddTodo(ctx, "u1", service.TodoInput{Text: "bake", Color: "#FFB7C5"})
	require.NoError(t, err)

	toggled, err := f.svc.ToggleTodo(ctx, "u1", todo.Id)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	toggled, err = f.svc.ToggleTodo(ctx, "u1", todo.Id)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	moved, err := f.svc.MoveTodo(ctx, "u1", todo.Id, 10, 20, 45)
	require.NoError(t, err)
	assert.Equal(t, 10.0, moved.X)
	assert.Equal(t, 20.0, moved.Y)
	assert.Equal(t, 45.0, moved.Rotation)
	assert.Equal(t, "bake", moved.Text)

	_, err = f.svc.MoveTodo(ctx, "u1", todo.Id, math.Inf(1), 0, 0)
	assert.ErrorIs(t, err, service.ErrInvalidNum)
	_, err = f.svc.ToggleTodo(ctx, "u2", todo.Id)
	assert.ErrorIs(t, err, service.ErrTodoMissing)

	require.NoError(t, f.svc.DeleteTodo(ctx, "u1", todo.Id))
	todos, err := f.svc.ListTodos(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, todos)
}
