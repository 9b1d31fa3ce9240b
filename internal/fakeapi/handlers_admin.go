package fakeapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"safeshift/internal/api"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/requestcontext"
)

// fallbackPassword is issued when the admin opts out of generation.
const fallbackPassword = "ChangeMe-123!"

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req api.CreateEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "a valid email is required"))
		return
	}
	if req.FullName == "" || req.EmployeeID == "" {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "full_name and employee_id are required"))
		return
	}
	if req.Role == "" {
		req.Role = session.RoleEmployee
	}
	if !req.Role.IsValid() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "invalid role"))
		return
	}

	password := fallbackPassword
	if req.AutoGeneratePassword {
		generated, err := generatePassword()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		password = generated
	}
	hash, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	acct, err := s.store.AddAccount(account{
		User: session.User{
			Email:        req.Email,
			FullName:     req.FullName,
			Role:         req.Role,
			DepartmentID: req.DepartmentID,
			EmployeeID:   req.EmployeeID,
			IsActive:     true,
		},
		PasswordHash:     hash,
		ActivityTracking: true,
		CreatedAt:        s.now(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(ctx, "employee created",
		"employee_id", acct.EmployeeID,
		"created_by", requestcontext.UserID(ctx),
	)

	resp := api.CreateEmployeeResponse{
		ID:         acct.ID,
		Message:    "Employee created successfully",
		EmployeeID: acct.EmployeeID,
	}
	if req.AutoGeneratePassword {
		resp.TempPassword = password
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := session.Role(q.Get("role"))
	if role != "" && !role.IsValid() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "invalid role"))
		return
	}
	employees := s.store.ListEmployees(q.Get("department_id"), role, q.Get("active") == "true")
	writeJSON(w, http.StatusOK, map[string][]api.Employee{"employees": employees})
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.Account(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.employee())
}

func (s *Server) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var req api.UpdateEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Role != nil && !req.Role.IsValid() {
		s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "invalid role"))
		return
	}
	if id == requestcontext.UserID(ctx) && req.IsActive != nil && !*req.IsActive {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "admins cannot deactivate themselves"))
		return
	}

	emp, err := s.store.UpdateAccount(id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// deactivated or demoted accounts lose their sessions
	if !emp.IsActive || req.Role != nil {
		s.tokens.RevokeUser(emp.ID)
	}
	writeJSON(w, http.StatusOK, emp)
}
