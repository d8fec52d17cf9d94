package service

import (
	"context"
	"errors"

	"github.com/zlnvch/heartfolio/models"
)

var ErrTodoMissing = errors.New("todo not found")

type TodoInput struct {
	Text  string `json:"text"`
	Color string `json:"color"`
	// Size of the client's board, used to center the new note
	CanvasWidth  float64 `json:"canvasWidth"`
	CanvasHeight float64 `json:"canvasHeight"`
}

// AddTodo sticks a new note in the middle of the board with a slight tilt.
// Without a color one of the paper colors is picked at random.
func (s *Service) AddTodo(ctx context.Context, userId string, in TodoInput) (models.TodoItem, error) {
	text, err := cleanText(in.Text, maxTextLength)
	if err != nil {
		return models.TodoItem{}, err
	}
	if err := finite(in.CanvasWidth, in.CanvasHeight); err != nil {
		return models.TodoItem{}, err
	}
	color := in.Color
	if color == "" {
		color = s.pick(models.PaperColors)
	}
	if err := ValidateColor(color); err != nil {
		return models.TodoItem{}, err
	}

	todo := models.TodoItem{
		Id:       newId(),
		Text:     text,
		X:        in.CanvasWidth/2 - 75,
		Y:        in.CanvasHeight/2 - 100,
		Color:    color,
		Rotation: s.spread(10),

		SchemaVersion: models.TodoSchema.Version(),
	}
	if err := s.Repos.Todos.Save(ctx, userId, todo); err != nil {
		return models.TodoItem{}, err
	}
	return todo, nil
}

func (s *Service) ListTodos(ctx context.Context, userId string) ([]models.TodoItem, error) {
	return s.Repos.Todos.GetAll(ctx, userId)
}

func (s *Service) updateTodo(ctx context.Context, userId string, id string, change func(*models.TodoItem) error) (models.TodoItem, error) {
	todos, err := s.Repos.Todos.GetAll(ctx, userId)
	if err != nil {
		return models.TodoItem{}, err
	}
	for _, todo := range todos {
		if todo.Id != id {
			continue
		}
		if err := change(&todo); err != nil {
			return models.TodoItem{}, err
		}
		if err := s.Repos.Todos.Save(ctx, userId, todo); err != nil {
			return models.TodoItem{}, err
		}
		return todo, nil
	}
	return models.TodoItem{}, ErrTodoMissing
}

// ToggleTodo flips completion; it is the tap action of a note.
func (s *Service) ToggleTodo(ctx context.Context, userId string, id string) (models.TodoItem, error) {
	return s.updateTodo(ctx, userId, id, func(t *models.TodoItem) error {
		t.Completed = !t.Completed
		return nil
	})
}

// MoveTodo stores the result of a drag or rotate gesture.
func (s *Service) MoveTodo(ctx context.Context, userId string, id string, x, y, rotation float64) (models.TodoItem, error) {
	if err := finite(x, y, rotation); err != nil {
		return models.TodoItem{}, err
	}
	return s.updateTodo(ctx, userId, id, func(t *models.TodoItem) error {
		t.X, t.Y, t.Rotation = x, y, rotation
		return nil
	})
}

func (s *Service) DeleteTodo(ctx context.Context, userId string, id string) error {
	return s.Repos.Todos.Delete(ctx, userId, id)
}
