package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"safeshift/internal/report"
	dErrors "safeshift/pkg/domain-errors"
)

// TaskPriority ranks follow-up work. The wire values are capitalized.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts any casing; empty means Medium.
func ParsePriority(s string) (TaskPriority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriorityMedium, nil
	}
	for _, p := range TaskPriorities {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "priority must be Low, Medium or High")
}

// Task is a follow-up assigned to an employee, optionally tied to a report.
type Task struct {
	ID          string       `json:"id"`
	EmployeeID  string       `json:"employee_id"`
	ReportID    string       `json:"report_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     report.Date  `json:"due_date"`
	Priority    TaskPriority `json:"priority"`
	IsCompleted bool         `json:"is_completed"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Overdue reports whether an open task's due day is before today's.
func (t Task) Overdue(now time.Time) bool {
	if t.IsCompleted || t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Before(report.DateOf(now))
}

// CreateTaskRequest is the POST /tasks body.
type CreateTaskRequest struct {
	EmployeeID  string       `json:"employee_id"`
	ReportID    string       `json:"report_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     report.Date  `json:"due_date"`
	Priority    TaskPriority `json:"priority"`
}

// UpdateTaskRequest is a partial PATCH /tasks/{id}; nil fields are left alone.
type UpdateTaskRequest struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	DueDate     *report.Date  `json:"due_date,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	IsCompleted *bool         `json:"is_completed,omitempty"`
}

func (r UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.DueDate == nil && r.Priority == nil && r.IsCompleted == nil
}

// OnlyCompletion reports whether the update touches nothing but is_completed.
func (r UpdateTaskRequest) OnlyCompletion() bool {
	return r.IsCompleted != nil && r.Title == nil && r.Description == nil && r.DueDate == nil && r.Priority == nil
}

// TaskFilter narrows GET /tasks. Employees only ever see their own tasks.
type TaskFilter struct {
	EmployeeID string
	ReportID   string
	Completed  *bool
}

func (f TaskFilter) Query() url.Values {
	q := url.Values{}
	if f.EmployeeID != "" {
		q.Set("employee_id", f.EmployeeID)
	}
	if f.ReportID != "" {
		q.Set("report_id", f.ReportID)
	}
	if f.Completed != nil {
		q.Set("is_completed", strconv.FormatBool(*f.Completed))
	}
	return q
}

type tasksEnvelope struct {
	Tasks []Task `json:"tasks"`
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.EmployeeID == "" || req.Title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee and title are required")
	}
	if req.DueDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "due date is required")
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if !req.Priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown priority: "+string(req.Priority))
	}

	var t Task
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/tasks",
		route:  "/tasks",
		body:   req,
		out:    &t,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var env tasksEnvelope
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/tasks",
		route:  "/tasks",
		query:  filter.Query(),
		out:    &env,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return env.Tasks, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "task id is required")
	}
	if req.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown priority: "+string(*req.Priority))
	}
	var t Task
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   "/tasks/" + url.PathEscape(id),
		route:  "/tasks/{id}",
		body:   req,
		out:    &t,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task done or reopens it.
func (c *Client) CompleteTask(ctx context.Context, id string, done bool) (*Task, error) {
	return c.UpdateTask(ctx, id, UpdateTaskRequest{IsCompleted: &done})
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return dErrors.New(dErrors.CodeValidation, "task id is required")
	}
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/tasks/" + url.PathEscape(id),
		route:  "/tasks/{id}",
		auth:   true,
	})
}
