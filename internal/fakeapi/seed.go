package fakeapi

import (
	"time"

	"safeshift/internal/api"
	"safeshift/internal/session"
)

// Seeded credentials for local development and tests.
const (
	SeedAdminEmail       = "admin@safeshift.local"
	SeedAdminPassword    = "admin-pass-123"
	SeedEmployeeEmail    = "employee@safeshift.local"
	SeedEmployeePassword = "employee-pass-123"

	SeedOperationsDept = "dept-operations"
	SeedPeopleDept     = "dept-people"
)

var seedDepartments = []api.Department{
	{ID: SeedOperationsDept, Name: "Operations", Icon: "🏭"},
	{ID: "dept-engineering", Name: "Engineering", Icon: "🛠"},
	{ID: SeedPeopleDept, Name: "Human Resources", Icon: "🤝"},
	{ID: "dept-finance", Name: "Finance", Icon: "💼"},
	{ID: "dept-facilities", Name: "Facilities", Icon: "🏢"},
}

// seed loads departments, one admin and one employee.
func (s *Server) seed(now time.Time) error {
	for _, d := range seedDepartments {
		s.store.AddDepartment(d)
	}

	people := []struct {
		user     session.User
		password string
	}{
		{
			user: session.User{
				ID: "user-admin", Email: SeedAdminEmail, FullName: "Avery Admin",
				Role: session.RoleAdmin, DepartmentID: SeedPeopleDept, EmployeeID: "EMP-0001", IsActive: true,
			},
			password: SeedAdminPassword,
		},
		{
			user: session.User{
				ID: "user-employee", Email: SeedEmployeeEmail, FullName: "Sam Reyes",
				Role: session.RoleEmployee, DepartmentID: SeedOperationsDept, EmployeeID: "EMP-0002", IsActive: true,
			},
			password: SeedEmployeePassword,
		},
	}
	for _, p := range people {
		hash, err := hashPassword(p.password, s.bcryptCost)
		if err != nil {
			return err
		}
		if _, err := s.store.AddAccount(account{
			User: p.user, PasswordHash: hash, ActivityTracking: true, CreatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}
