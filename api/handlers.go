package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc *TaskService, logger *log.Logger) {
	e.GET("/", greeting)
	e.GET("/healthz", healthz)
	e.GET("/api/tasks", getTasks(svc, logger))
	e.GET("/api/tasks/:id", getTask(svc))
	e.POST("/api/tasks", createTask(svc))
	e.PUT("/api/tasks/:id", updateTask(svc))
	e.DELETE("/api/tasks/:id", deleteTask(svc))
	e.POST("/api/users", createUser(svc))
}

type errorResponse struct {
	Error string `json:"error"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type userCreatedResponse struct {
	InsertedID string `json:"insertedId"`
}

type updateTaskRequest struct {
	Category string `json:"category"`
}

func greeting(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to Task Board Server")
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func getTasks(svc *TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := svc.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr, "failed to fetch tasks")
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTask(svc *TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := svc.GetTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err, "failed to fetch task")
		}
		// An absent task is an empty result, not an error.
		return c.JSON(http.StatusOK, task)
	}
}

func createTask(svc *TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in domain.NewTask
		if err := decodeBody(c, &in, true); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := svc.CreateTask(c.Request().Context(), in)
		if err != nil {
			return writeError(c, err, "failed to add task")
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(svc *TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in updateTaskRequest
		if err := decodeBody(c, &in, true); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := svc.UpdateCategory(c.Request().Context(), c.Param("id"), in.Category); err != nil {
			return writeError(c, err, "failed to update task")
		}
		return c.JSON(http.StatusOK, ackResponse{Success: true, Message: "Task updated successfully"})
	}
}

func deleteTask(svc *TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return writeError(c, err, "failed to delete task")
		}
		return c.JSON(http.StatusOK, ackResponse{Success: true, Message: "Task deleted successfully"})
	}
}

func createUser(svc *TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		// User profiles are schemaless; accept whatever fields arrive.
		var profile domain.UserProfile
		if err := decodeBody(c, &profile, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		id, err := svc.CreateUser(c.Request().Context(), profile)
		if err != nil {
			return writeError(c, err, "failed to create user")
		}
		return c.JSON(http.StatusOK, userCreatedResponse{InsertedID: id})
	}
}

func decodeBody(c echo.Context, out any, strict bool) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(out)
}

// writeError renders a failure from the coordinator or store as a response,
// distinguishing user-correctable input errors, absent entities, and
// transient store failures.
func writeError(c echo.Context, err error, fallback string) error {
	var mf MissingFieldError
	if errors.As(err, &mf) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var ii InvalidIdentifierError
	if errors.As(err, &ii) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	var nf NotFoundError
	if errors.As(err, &nf) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
}
