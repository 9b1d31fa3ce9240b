package admin_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"safeshift/internal/admin"
	"safeshift/internal/api"
	"safeshift/internal/fakeapi"
	"safeshift/internal/report"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

// =============================================================================
// Admin Service Test Suite
// =============================================================================
// Runs the workflows through the real client against the development
// backend so the client-side guard and the server agree.

type AdminSuite struct {
	suite.Suite
	ctx     context.Context
	backend *fakeapi.Server
	server  *httptest.Server
	sess    *session.Manager
	client  *api.Client
	service *admin.Service
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	s.ctx = context.Background()
	backend, err := fakeapi.New("admin-test-key", time.Hour, fakeapi.WithBcryptCost(bcrypt.MinCost))
	s.Require().NoError(err)
	s.backend = backend
	s.server = httptest.NewServer(backend.Handler())
	s.sess = session.New(nil, session.WithHeartbeatInterval(time.Hour))
	s.client, err = api.New(s.server.URL, s.sess)
	s.Require().NoError(err)
	s.service, err = admin.New(s.client, s.sess)
	s.Require().NoError(err)
}

func (s *AdminSuite) TearDownTest() {
	s.Require().NoError(s.sess.Teardown(context.Background()))
	s.server.Close()
}

func (s *AdminSuite) login(email, password string) session.User {
	res, err := s.client.Login(s.ctx, email, password)
	s.Require().NoError(err)
	return res.User
}

func (s *AdminSuite) TestNew() {
	_, err := admin.New(nil, s.sess)
	s.Error(err)
	_, err = admin.New(s.client, nil)
	s.Error(err)
}

func (s *AdminSuite) TestGuard() {
	s.Run("anonymous", func() {
		_, err := s.service.ListEmployees(s.ctx, api.EmployeeFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("employee is forbidden without a request", func() {
		s.login(fakeapi.SeedEmployeeEmail, fakeapi.SeedEmployeePassword)

		_, err := s.service.ListEmployees(s.ctx, api.EmployeeFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.Triage(s.ctx, "r-1", report.StatusResolved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.ActivityLog(s.ctx, "user-employee", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *AdminSuite) TestEmployeeLifecycle() {
	me := s.login(fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword)

	created, err := s.service.CreateEmployee(s.ctx, api.CreateEmployeeRequest{
		Email: "jo@safeshift.local", FullName: "Jo Park", EmployeeID: "EMP-0200",
		DepartmentID: "dept-finance", AutoGeneratePassword: true,
	})
	s.Require().NoError(err)

	employees, err := s.service.ListEmployees(s.ctx, api.EmployeeFilter{DepartmentID: "dept-finance"})
	s.Require().NoError(err)
	s.Require().Len(employees, 1)
	s.Equal("Jo Park", employees[0].FullName)

	name := "Jo Park-Lee"
	updated, err := s.service.UpdateEmployee(s.ctx, created.ID, api.UpdateEmployeeRequest{FullName: &name})
	s.Require().NoError(err)
	s.Equal(name, updated.FullName)

	_, err = s.service.DeactivateEmployee(s.ctx, me.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	deactivated, err := s.service.DeactivateEmployee(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(deactivated.IsActive)

	active, err := s.service.ListEmployees(s.ctx, api.EmployeeFilter{DepartmentID: "dept-finance", ActiveOnly: true})
	s.Require().NoError(err)
	s.Empty(active)

	got, err := s.service.GetEmployee(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
}

func (s *AdminSuite) TestTriageAndAssign() {
	s.login(fakeapi.SeedEmployeeEmail, fakeapi.SeedEmployeePassword)
	receipt, err := s.client.CreateReport(s.ctx, report.CreateRequest{
		Title: "Broken ladder", Type: report.TypeSafetyConcern, Severity: report.SeverityMedium,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.client.Logout(s.ctx))
	me := s.login(fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword)

	_, err = s.service.Triage(s.ctx, receipt.Ref(), "archived", "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	assigned, err := s.service.Assign(s.ctx, receipt.Ref(), me.ID)
	s.Require().NoError(err)
	s.Equal(report.StatusInProgress, assigned.Status)

	dismissed, err := s.service.Triage(s.ctx, receipt.Ref(), report.StatusDismissed, "  duplicate  ")
	s.Require().NoError(err)
	s.Equal(report.StatusDismissed, dismissed.Status)
	s.Equal("duplicate", dismissed.Notes)

	open, err := s.service.Reports(s.ctx, report.ListFilter{Status: report.StatusPending})
	s.Require().NoError(err)
	s.Empty(open)
}

func (s *AdminSuite) TestActivityLogDefaultsToAWeek() {
	s.login(fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword)

	log, err := s.service.ActivityLog(s.ctx, "user-employee", 0)
	s.Require().NoError(err)
	s.Equal(api.DefaultActivityDays, log.Days)
	s.Empty(log.Activities)
}
