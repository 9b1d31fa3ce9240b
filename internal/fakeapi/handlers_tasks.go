package fakeapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"safeshift/internal/api"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
	"safeshift/pkg/requestcontext"
)

func isAdmin(r *http.Request) bool {
	return requestcontext.Role(r.Context()) == string(session.RoleAdmin)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "title is required"))
		return
	}
	if req.DueDate.IsZero() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "due_date is required"))
		return
	}
	if req.Priority == "" {
		req.Priority = api.PriorityMedium
	}
	if !req.Priority.IsValid() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "priority must be Low, Medium or High"))
		return
	}
	if _, err := s.store.Account(req.EmployeeID); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "unknown employee: "+req.EmployeeID))
		return
	}
	if req.ReportID != "" {
		if _, err := s.store.Report(req.ReportID); err != nil {
			s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "unknown report: "+req.ReportID))
			return
		}
	}

	t := s.store.AddTask(api.Task{
		EmployeeID:  req.EmployeeID,
		ReportID:    req.ReportID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		CreatedAt:   s.now(),
	})
	s.logger.InfoContext(ctx, "task created",
		"task_id", t.ID,
		"employee_id", t.EmployeeID,
		"created_by", requestcontext.UserID(ctx),
	)
	writeJSON(w, http.StatusCreated, t)
}

// handleListTasks scopes employees to their own tasks; admins may filter by
// anyone.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employeeID := q.Get("employee_id")
	if !isAdmin(r) {
		self := requestcontext.UserID(r.Context())
		if employeeID != "" && employeeID != self {
			s.writeError(w, r, dErrors.New(dErrors.CodeForbidden, "Not allowed to view these tasks"))
			return
		}
		employeeID = self
	}
	var completed *bool
	if v := q.Get("is_completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "is_completed must be true or false"))
			return
		}
		completed = &b
	}
	reportID := q.Get("report_id")

	tasks := s.store.Tasks(func(t api.Task) bool {
		if employeeID != "" && t.EmployeeID != employeeID {
			return false
		}
		if reportID != "" && t.ReportID != reportID {
			return false
		}
		return completed == nil || t.IsCompleted == *completed
	})
	writeJSON(w, http.StatusOK, map[string][]api.Task{"tasks": tasks})
}

// handleUpdateTask lets admins change anything; an employee may only tick
// their own task done or reopen it.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req api.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Empty() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "nothing to update"))
		return
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "priority must be Low, Medium or High"))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "title must not be empty"))
		return
	}

	admin := isAdmin(r)
	self := requestcontext.UserID(r.Context())
	now := s.now()
	t, err := s.store.UpdateTask(id, func(t *api.Task) error {
		if !admin && (t.EmployeeID != self || !req.OnlyCompletion()) {
			return dErrors.New(dErrors.CodeForbidden, "Employees can only complete their own tasks")
		}
		if req.Title != nil {
			t.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.DueDate != nil {
			t.DueDate = *req.DueDate
		}
		if req.Priority != nil {
			t.Priority = *req.Priority
		}
		if req.IsCompleted != nil && *req.IsCompleted != t.IsCompleted {
			t.IsCompleted = *req.IsCompleted
			t.CompletedAt = nil
			if t.IsCompleted {
				t.CompletedAt = &now
			}
		}
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "Task not found"))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "Task not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// wellnessSubject resolves the employee a wellness request is about. Only
// the employee and admins may see or trigger a score.
func (s *Server) wellnessSubject(r *http.Request) (string, error) {
	employeeID := chi.URLParam(r, "employee_id")
	if !isAdmin(r) && employeeID != requestcontext.UserID(r.Context()) {
		return "", dErrors.New(dErrors.CodeForbidden, "Not allowed to view this wellness score")
	}
	if _, err := s.store.Account(employeeID); err != nil {
		return "", dErrors.New(dErrors.CodeNotFound, "Employee not found")
	}
	return employeeID, nil
}

func (s *Server) handleGetWellness(w http.ResponseWriter, r *http.Request) {
	employeeID, err := s.wellnessSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	score, err := s.store.LatestWellness(employeeID)
	if err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "No wellness score calculated yet"))
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleCalculateWellness(w http.ResponseWriter, r *http.Request) {
	employeeID, err := s.wellnessSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.calculateWellness(employeeID))
}

func (s *Server) handleDepartmentWellness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, d := range s.store.Departments() {
		if d.ID == id {
			writeJSON(w, http.StatusOK, s.departmentWellness(d))
			return
		}
	}
	s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "Department not found"))
}
