package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

// DefaultActivityDays is the window GET /activity uses when none is given.
const DefaultActivityDays = 7

func (c *Client) DashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	var m DashboardMetrics
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/dashboard/metrics",
		route:  "/dashboard/metrics",
		out:    &m,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListDepartments(ctx context.Context) ([]Department, error) {
	var env departmentsEnvelope
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/departments",
		route:  "/departments",
		out:    &env,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return env.Departments, nil
}

// Activity returns an employee's activity over the last days days.
func (c *Client) Activity(ctx context.Context, employeeID string, days int) (*ActivityLog, error) {
	if employeeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	if days <= 0 {
		days = DefaultActivityDays
	}
	var log ActivityLog
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/activity/" + url.PathEscape(employeeID),
		route:  "/activity/{employee_id}",
		query:  url.Values{"days": {strconv.Itoa(days)}},
		out:    &log,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (c *Client) CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*CreateEmployeeResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.FullName == "" || req.EmployeeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email, full name and employee id are required")
	}
	if req.Role == "" {
		req.Role = session.RoleEmployee
	}
	if !req.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role: "+string(req.Role))
	}

	var resp CreateEmployeeResponse
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/admin/employees",
		route:  "/admin/employees",
		body:   req,
		out:    &resp,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	var env employeesEnvelope
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/admin/employees",
		route:  "/admin/employees",
		query:  filter.Query(),
		out:    &env,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return env.Employees, nil
}

func (c *Client) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	var e Employee
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/admin/employees/" + url.PathEscape(id),
		route:  "/admin/employees/{id}",
		out:    &e,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) UpdateEmployee(ctx context.Context, id string, req UpdateEmployeeRequest) (*Employee, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	if req.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if req.Role != nil && !req.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown role: "+string(*req.Role))
	}
	var e Employee
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   "/admin/employees/" + url.PathEscape(id),
		route:  "/admin/employees/{id}",
		body:   req,
		out:    &e,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}
