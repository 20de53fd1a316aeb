package domain

import "time"

// Task represents a single board item shared by all connected clients.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewTask holds the caller-supplied attributes of a task to be created.
// The identifier and creation time are assigned by the store.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Email       string `json:"email"`
}

// UserProfile is an open-ended payload; no schema is enforced for users.
type UserProfile map[string]any
