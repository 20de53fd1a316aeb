package api

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// TaskService coordinates mutations between the store and the broadcast
// channel. The one rule it enforces: an event is emitted if and only if
// the store reported success, and strictly after it. Failed mutations emit
// nothing and are returned to the caller untouched.
type TaskService struct {
	store  Storage
	events Broadcaster
	log    *log.Logger
}

// NewTaskService wires a coordinator over the given store and broadcaster.
func NewTaskService(store Storage, events Broadcaster, logger *log.Logger) *TaskService {
	return &TaskService{store: store, events: events, log: logger}
}

// ListTasks delegates to the store. Reads never broadcast.
func (s *TaskService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.store.ListTasks(ctx)
}

// GetTask delegates to the store; an absent task yields a nil result.
func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.store.GetTask(ctx, id)
}

// CreateTask commits the new task, then announces it with its generated
// identifier.
func (s *TaskService) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	task, err := s.store.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	s.events.Broadcast(domain.NewTaskAdded(task))
	if s.log != nil {
		s.log.WithFields(log.Fields{"id": task.ID, "category": task.Category}).Info("task created")
	}
	return task, nil
}

// UpdateCategory commits the category change, then announces it.
func (s *TaskService) UpdateCategory(ctx context.Context, id, category string) error {
	if err := s.store.UpdateTaskCategory(ctx, id, category); err != nil {
		return err
	}
	s.events.Broadcast(domain.NewTaskUpdated(id, category))
	if s.log != nil {
		s.log.WithFields(log.Fields{"id": id, "category": category}).Info("task category updated")
	}
	return nil
}

// DeleteTask commits the removal, then announces it.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.events.Broadcast(domain.NewTaskDeleted(id))
	if s.log != nil {
		s.log.WithField("id", id).Info("task deleted")
	}
	return nil
}

// CreateUser stores an opaque profile. User records are independent of the
// task board and never broadcast.
func (s *TaskService) CreateUser(ctx context.Context, profile domain.UserProfile) (string, error) {
	return s.store.CreateUser(ctx, profile)
}
