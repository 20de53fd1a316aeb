package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"taskboard-api/domain"
)

// All tasks share one partition: the board is a single list visible to
// every client, so a partition scan is the store's natural ordering.
const tasksPartition = "tasks"

// Storage provides access to the durable task and user collections.
type Storage struct {
	taskTable *aztables.Client
	userTable *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, usersTable string) (*Storage, error) {
	clientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &clientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		taskTable: svc.NewClient(tasksTable),
		userTable: svc.NewClient(usersTable),
	}, nil
}

// EnsureTables creates both tables, tolerating ones that already exist.
func (s *Storage) EnsureTables(ctx context.Context) error {
	for _, table := range []*aztables.Client{s.taskTable, s.userTable} {
		if _, err := table.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
				continue
			}
			return err
		}
	}
	return nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Category    string `json:"Category"`
	Email       string `json:"Email"`
	CreatedAt   string `json:"CreatedAt"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Category:    ent.Category,
		Email:       ent.Email,
		CreatedAt:   createdAt,
	}, nil
}

// ListTasks retrieves every task on the board in store order.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + tasksPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &unavailableError{err: err}
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// GetTask retrieves one task by identifier. An absent task is not an
// error: the result is nil.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	resp, err := s.taskTable.GetEntity(ctx, tasksPartition, id, nil)
	if err != nil {
		err = classify(err)
		var nf *notFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	task, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask validates the input, assigns an identifier and creation time,
// and inserts the task in a single round trip. Either the full task exists
// afterward or nothing does.
func (s *Storage) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	if err := validateNewTask(in); err != nil {
		return domain.Task{}, err
	}
	task := domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Email:       in.Email,
		CreatedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(taskEntity{
		Entity: aztables.Entity{
			PartitionKey: tasksPartition,
			RowKey:       task.ID,
		},
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Email:       task.Email,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, classify(err)
	}
	return task, nil
}

// UpdateTaskCategory changes the category of exactly one task. No other
// attribute is touched; the update is a single merge on the matched entity.
func (s *Storage) UpdateTaskCategory(ctx context.Context, id, category string) error {
	if category == "" {
		return &missingFieldError{field: "category"}
	}
	if err := validateID(id); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"PartitionKey": tasksPartition,
		"RowKey":       id,
		"Category":     category,
	})
	if err != nil {
		return err
	}
	etag := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DeleteTask removes one task by identifier.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := s.taskTable.DeleteEntity(ctx, tasksPartition, id, nil); err != nil {
		return classify(err)
	}
	return nil
}

type userEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

// CreateUser stores an opaque profile payload under a generated identifier
// and returns that identifier. Users are create-only; no schema is enforced.
func (s *Storage) CreateUser(ctx context.Context, profile domain.UserProfile) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(userEntity{
		Entity: aztables.Entity{
			PartitionKey: id,
			RowKey:       id,
		},
		Data: string(data),
	})
	if err != nil {
		return "", err
	}
	if _, err := s.userTable.AddEntity(ctx, payload, nil); err != nil {
		return "", classify(err)
	}
	return id, nil
}

func validateNewTask(in domain.NewTask) error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"category", in.Category},
		{"email", in.Email},
	} {
		if f.value == "" {
			return &missingFieldError{field: f.name}
		}
	}
	return nil
}

// validateID rejects identifiers that cannot name a stored task before any
// round trip is made. Task row keys are always UUIDs.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &invalidIdentifierError{id: id}
	}
	return nil
}
