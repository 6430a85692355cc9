package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/validation"
)

// CreateTask assigns a new task to a user.
func (s *Service) CreateTask(ctx context.Context, id auth.Identity, in TaskInput) (models.Task, error) {
	if err := requireManager(id); err != nil {
		return models.Task{}, err
	}
	if in.Status == "" {
		in.Status = models.TaskPending
	}
	if err := s.validateTask(ctx, in); err != nil {
		return models.Task{}, err
	}

	row := models.Task{
		ID:          s.newID(),
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
		Status:      in.Status,
		Notes:       in.Notes,
		CreatedAt:   s.now().UTC(),
	}
	if err := insertRow(ctx, s, s.tasks, &row, taskRoutes); err != nil {
		return models.Task{}, err
	}
	return row, nil
}

// UpdateTask rewrites a task.
func (s *Service) UpdateTask(ctx context.Context, id auth.Identity, taskID string, in TaskInput) (models.Task, error) {
	if err := requireManager(id); err != nil {
		return models.Task{}, err
	}
	if in.Status == "" {
		in.Status = models.TaskPending
	}
	if err := s.validateTask(ctx, in); err != nil {
		return models.Task{}, err
	}
	return updateRow(ctx, s, s.tasks, taskID, map[string]any{
		"description": in.Description,
		"assigned_to": in.AssignedTo,
		"due_date":    in.DueDate,
		"status":      in.Status,
		"notes":       in.Notes,
	}, taskRoutes)
}

// UpdateTaskStatus moves a task to a new status. Managers may move any task;
// anyone else only the tasks assigned to them.
func (s *Service) UpdateTaskStatus(ctx context.Context, id auth.Identity, taskID string, in TaskStatusInput) (models.Task, error) {
	if err := s.validator.Struct(in); err != nil {
		return models.Task{}, err
	}

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if !id.Is(models.RoleManager) && task.AssignedTo != id.UserID {
		return models.Task{}, ErrForbidden
	}

	patch := map[string]any{"status": in.Status}
	if in.Notes != nil {
		patch["notes"] = *in.Notes
	}
	return updateRow(ctx, s, s.tasks, taskID, patch, taskRoutes)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id auth.Identity, taskID string) error {
	if err := requireManager(id); err != nil {
		return err
	}
	return deleteRow(ctx, s, s.tasks, taskID, taskRoutes)
}

// ListTasks returns every task for managers and the caller's own tasks otherwise.
func (s *Service) ListTasks(ctx context.Context, id auth.Identity) ([]models.Task, error) {
	q := repository.Query{}.OrderBy("due_date", false)
	manager := id.Is(models.RoleManager)
	if !manager {
		q = q.Where("assigned_to", id.UserID)
	}
	return cachedList(ctx, s, cache.RouteTasks, manager, s.tasks, q)
}

func (s *Service) validateTask(ctx context.Context, in TaskInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	if _, err := s.profiles.Get(ctx, in.AssignedTo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validation.Field("assigned_to", "is not a known user")
		}
		return fmt.Errorf("look up assignee: %w", err)
	}
	return nil
}
