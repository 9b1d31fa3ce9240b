package api

import (
	"net/url"
	"strconv"
	"time"

	"safeshift/internal/report"
	"safeshift/internal/session"
)

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse accepts both the access_token and the token spelling.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	Token       string       `json:"token,omitempty"`
	TokenType   string       `json:"token_type"`
	User        session.User `json:"user"`
}

func (r LoginResponse) bearer() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// LoginResult is what a successful Login established.
type LoginResult struct {
	Token string
	User  session.User
}

// ChangePasswordRequest is the POST /auth/change-password body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// DashboardMetrics is the GET /dashboard/metrics response.
type DashboardMetrics struct {
	Reports         []report.Report `json:"reports"`
	OpenReports     []report.Report `json:"open_reports"`
	ResolvedReports []report.Report `json:"resolved_reports"`
	LatestReports   []report.Report `json:"latest_reports"`
	Metrics         MetricCounts    `json:"metrics"`

	// Employee view only.
	Tasks         []Task         `json:"tasks,omitempty"`
	WellnessScore *WellnessScore `json:"wellness_score,omitempty"`
	ActivityToday int            `json:"activity_today,omitempty"`
}

type MetricCounts struct {
	TotalEmployees   int `json:"total_employees"`
	ActiveReports    int `json:"active_reports"`
	FlaggedReports   int `json:"flagged_reports"`
	TotalDepartments int `json:"total_departments"`
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// UploadResult is the POST /reports/upload response.
type UploadResult struct {
	AttachmentRef string `json:"attachment_ref"`
	Filename      string `json:"filename,omitempty"`
	Size          int64  `json:"size,omitempty"`
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// ActivityEntry is one recorded heartbeat or login event.
type ActivityEntry struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	ActivityType string    `json:"activity_type"`
	Status       string    `json:"status"`
	Device       string    `json:"device,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ActivityLog is the GET /activity/{employee_id} response.
type ActivityLog struct {
	EmployeeID string          `json:"employee_id"`
	Days       int             `json:"days"`
	Activities []ActivityEntry `json:"activities"`
}

// Employee is an admin view of a user profile.
type Employee struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FullName     string       `json:"full_name"`
	EmployeeID   string       `json:"employee_id"`
	DepartmentID string       `json:"department_id,omitempty"`
	Role         session.Role `json:"role"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the POST /admin/employees body.
type CreateEmployeeRequest struct {
	Email                string       `json:"email"`
	FullName             string       `json:"full_name"`
	EmployeeID           string       `json:"employee_id"`
	DepartmentID         string       `json:"department_id"`
	Role                 session.Role `json:"role"`
	AutoGeneratePassword bool         `json:"auto_generate_password"`
}

// CreateEmployeeResponse carries the temporary password when the server
// generated one.
type CreateEmployeeResponse struct {
	ID           string `json:"id,omitempty"`
	Message      string `json:"message,omitempty"`
	EmployeeID   string `json:"employee_id"`
	TempPassword string `json:"temp_password,omitempty"`
}

// UpdateEmployeeRequest is a partial update; nil fields are left alone.
type UpdateEmployeeRequest struct {
	FullName     *string       `json:"full_name,omitempty"`
	EmployeeID   *string       `json:"employee_id,omitempty"`
	DepartmentID *string       `json:"department_id,omitempty"`
	Role         *session.Role `json:"role,omitempty"`
	IsActive     *bool         `json:"is_active,omitempty"`
}

// Empty reports whether the update would change nothing.
func (r UpdateEmployeeRequest) Empty() bool {
	return r.FullName == nil && r.EmployeeID == nil && r.DepartmentID == nil && r.Role == nil && r.IsActive == nil
}

// EmployeeFilter narrows GET /admin/employees.
type EmployeeFilter struct {
	DepartmentID string
	Role         session.Role
	ActiveOnly   bool
}

func (f EmployeeFilter) Query() url.Values {
	q := url.Values{}
	if f.DepartmentID != "" {
		q.Set("department_id", f.DepartmentID)
	}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.ActiveOnly {
		q.Set("active", strconv.FormatBool(true))
	}
	return q
}

type reportsEnvelope struct {
	Reports []report.Report `json:"reports"`
}

type departmentsEnvelope struct {
	Departments []Department `json:"departments"`
}

type employeesEnvelope struct {
	Employees []Employee `json:"employees"`
}
