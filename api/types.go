package api

import (
	"context"

	"taskboard-api/domain"
)

// Storage abstracts the durable task and user collections for handlers.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error)
	UpdateTaskCategory(ctx context.Context, id, category string) error
	DeleteTask(ctx context.Context, id string) error
	CreateUser(ctx context.Context, profile domain.UserProfile) (string, error)
}

// Broadcaster fans a committed mutation out to connected clients. The send
// is fire-and-forget: it returns once the event has been handed off and can
// never fail the enclosing mutation.
type Broadcaster interface {
	Broadcast(ev domain.Event)
}

// MissingFieldError is returned when a required attribute is absent from
// the input.
type MissingFieldError interface {
	error
	MissingField() string
}

// NotFoundError is returned when no task matches the supplied identifier.
type NotFoundError interface {
	error
	NotFound()
}

// InvalidIdentifierError is returned when a supplied task identifier is
// malformed.
type InvalidIdentifierError interface {
	error
	InvalidIdentifier()
}
