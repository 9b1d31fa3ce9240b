// Package admin holds the administrator workflows: employee management,
// report triage and activity review. Every call checks the signed-in role
// first; the server remains authoritative.
package admin

import (
	"context"
	"log/slog"
	"strings"

	"safeshift/internal/api"
	"safeshift/internal/platform/logger"
	"safeshift/internal/report"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

// Backend is the slice of the API client the admin workflows use.
type Backend interface {
	CreateEmployee(ctx context.Context, req api.CreateEmployeeRequest) (*api.CreateEmployeeResponse, error)
	ListEmployees(ctx context.Context, filter api.EmployeeFilter) ([]api.Employee, error)
	GetEmployee(ctx context.Context, id string) (*api.Employee, error)
	UpdateEmployee(ctx context.Context, id string, req api.UpdateEmployeeRequest) (*api.Employee, error)
	ListReports(ctx context.Context, filter report.ListFilter) ([]report.Report, error)
	UpdateReportStatus(ctx context.Context, id string, update report.StatusUpdate) (*report.Report, error)
	AssignReport(ctx context.Context, id, assignee string) (*report.Report, error)
	Activity(ctx context.Context, employeeID string, days int) (*api.ActivityLog, error)
}

// Principal reports who is signed in; *session.Manager satisfies it.
type Principal interface {
	User() (session.User, bool)
}

type Service struct {
	backend   Backend
	principal Principal
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(backend Backend, principal Principal, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "backend is required")
	}
	if principal == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "principal is required")
	}
	s := &Service{
		backend:   backend,
		principal: principal,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// requireAdmin returns the signed-in admin or a coded error.
func (s *Service) requireAdmin() (session.User, error) {
	u, ok := s.principal.User()
	if !ok {
		return session.User{}, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	if !u.IsAdmin() {
		return session.User{}, dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	return u, nil
}

func (s *Service) CreateEmployee(ctx context.Context, req api.CreateEmployeeRequest) (*api.CreateEmployeeResponse, error) {
	actor, err := s.requireAdmin()
	if err != nil {
		return nil, err
	}
	resp, err := s.backend.CreateEmployee(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "employee created", "employee_id", resp.EmployeeID, "admin_id", actor.ID)
	return resp, nil
}

func (s *Service) ListEmployees(ctx context.Context, filter api.EmployeeFilter) ([]api.Employee, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.ListEmployees(ctx, filter)
}

func (s *Service) GetEmployee(ctx context.Context, id string) (*api.Employee, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.GetEmployee(ctx, id)
}

func (s *Service) UpdateEmployee(ctx context.Context, id string, req api.UpdateEmployeeRequest) (*api.Employee, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.UpdateEmployee(ctx, id, req)
}

// DeactivateEmployee marks an account inactive. Admins cannot lock
// themselves out.
func (s *Service) DeactivateEmployee(ctx context.Context, id string) (*api.Employee, error) {
	actor, err := s.requireAdmin()
	if err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, dErrors.New(dErrors.CodeValidation, "you cannot deactivate your own account")
	}
	inactive := false
	emp, err := s.backend.UpdateEmployee(ctx, id, api.UpdateEmployeeRequest{IsActive: &inactive})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "employee deactivated", "employee_id", emp.EmployeeID, "admin_id", actor.ID)
	return emp, nil
}

// Reports lists reports for review.
func (s *Service) Reports(ctx context.Context, filter report.ListFilter) ([]report.Report, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	return s.backend.ListReports(ctx, filter)
}

// Triage moves a report to status, recording optional notes.
func (s *Service) Triage(ctx context.Context, reportID string, status report.Status, notes string) (*report.Report, error) {
	actor, err := s.requireAdmin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reportID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "report id is required")
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status: "+string(status))
	}
	rep, err := s.backend.UpdateReportStatus(ctx, reportID, report.StatusUpdate{Status: status, Notes: strings.TrimSpace(notes)})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "report triaged", "report_id", reportID, "status", status, "admin_id", actor.ID)
	return rep, nil
}

func (s *Service) Assign(ctx context.Context, reportID, assignee string) (*report.Report, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reportID) == "" || strings.TrimSpace(assignee) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "report id and assignee are required")
	}
	return s.backend.AssignReport(ctx, reportID, assignee)
}

// ActivityLog returns an employee's activity over the last days days;
// zero means the default week.
func (s *Service) ActivityLog(ctx context.Context, employeeID string, days int) (*api.ActivityLog, error) {
	if _, err := s.requireAdmin(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = api.DefaultActivityDays
	}
	return s.backend.Activity(ctx, employeeID, days)
}
