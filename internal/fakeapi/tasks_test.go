package fakeapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeshift/internal/api"
	"safeshift/internal/fakeapi"
	"safeshift/internal/report"
	"safeshift/pkg/testutil"
)

func (s *ServerSuite) createTask(token string, req api.CreateTaskRequest) api.Task {
	rr := s.do(http.MethodPost, "/tasks", token, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.Decode[api.Task](s.T(), rr)
}

func due(day int) report.Date {
	return report.Date{Year: 2026, Month: time.March, Day: day}
}

func (s *ServerSuite) TestTasks() {
	t := s.T()
	admin := s.adminToken()
	employee := s.employeeToken()

	testutil.Given(t, "tasks created by an admin", func(t *testing.T) {
		later := s.createTask(admin, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "File witness statement", DueDate: due(20)})
		sooner := s.createTask(admin, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "Safety refresher", DueDate: due(12), Priority: api.PriorityHigh})
		s.createTask(admin, api.CreateTaskRequest{EmployeeID: "user-admin", Title: "Review backlog", DueDate: due(11)})
		assert.Equal(t, api.PriorityMedium, later.Priority)

		testutil.When(t, "the employee lists tasks", func(t *testing.T) {
			rr := s.do(http.MethodGet, "/tasks", employee, nil)
			testutil.AssertStatus(t, rr, http.StatusOK)
			tasks := testutil.Decode[map[string][]api.Task](t, rr)["tasks"]

			testutil.Then(t, "only their own come back, soonest first", func(t *testing.T) {
				require.Len(t, tasks, 2)
				assert.Equal(t, sooner.ID, tasks[0].ID)
				assert.Equal(t, later.ID, tasks[1].ID)
			})
		})

		testutil.When(t, "the employee asks for someone else's tasks", func(t *testing.T) {
			rr := s.do(http.MethodGet, "/tasks?employee_id=user-admin", employee, nil)
			testutil.Then(t, "it is forbidden", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusForbidden)
			})
		})

		testutil.When(t, "the employee completes their task", func(t *testing.T) {
			rr := s.do(http.MethodPatch, "/tasks/"+sooner.ID, employee, api.UpdateTaskRequest{IsCompleted: ptr(true)})
			testutil.AssertStatus(t, rr, http.StatusOK)
			done := testutil.Decode[api.Task](t, rr)

			testutil.Then(t, "it is stamped and filterable", func(t *testing.T) {
				assert.True(t, done.IsCompleted)
				require.NotNil(t, done.CompletedAt)
				assert.True(t, done.CompletedAt.Equal(s.now))

				rr := s.do(http.MethodGet, "/tasks?is_completed=false", employee, nil)
				open := testutil.Decode[map[string][]api.Task](t, rr)["tasks"]
				require.Len(t, open, 1)
				assert.Equal(t, later.ID, open[0].ID)
			})
		})

		testutil.When(t, "the employee edits anything else", func(t *testing.T) {
			rr := s.do(http.MethodPatch, "/tasks/"+later.ID, employee, api.UpdateTaskRequest{Title: ptr("Skip it")})
			testutil.Then(t, "it is forbidden", func(t *testing.T) {
				testutil.AssertDetail(t, rr, http.StatusForbidden, "Employees can only complete their own tasks")
			})
		})

		testutil.When(t, "an admin deletes a task", func(t *testing.T) {
			testutil.AssertStatus(t, s.do(http.MethodDelete, "/tasks/"+later.ID, admin, nil), http.StatusOK)
			testutil.Then(t, "it is gone", func(t *testing.T) {
				testutil.AssertDetail(t, s.do(http.MethodDelete, "/tasks/"+later.ID, admin, nil), http.StatusNotFound, "Task not found")
			})
		})
	})
}

func (s *ServerSuite) TestTaskValidationAndAccess() {
	admin := s.adminToken()
	employee := s.employeeToken()

	rr := s.do(http.MethodPost, "/tasks", employee, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "x", DueDate: due(12)})
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)

	rr = s.do(http.MethodPost, "/tasks", admin, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "x"})
	testutil.AssertDetail(s.T(), rr, http.StatusUnprocessableEntity, "due_date is required")

	rr = s.do(http.MethodPost, "/tasks", admin, api.CreateTaskRequest{EmployeeID: "ghost", Title: "x", DueDate: due(12)})
	testutil.AssertDetail(s.T(), rr, http.StatusUnprocessableEntity, "unknown employee: ghost")

	rr = s.do(http.MethodPost, "/tasks", admin, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "x", DueDate: due(12), Priority: "Urgent"})
	testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)

	// due dates travel as calendar days
	created := s.createTask(admin, api.CreateTaskRequest{EmployeeID: "user-employee", Title: "Inspect exits", DueDate: due(14)})
	rr = s.do(http.MethodGet, "/tasks?employee_id=user-employee", admin, nil)
	s.Contains(rr.Body.String(), `"due_date":"2026-03-14"`)
	s.Equal(due(14), created.DueDate)
}

func (s *ServerSuite) TestWellness() {
	t := s.T()
	admin := s.adminToken()
	employee := s.employeeToken()

	testutil.Given(t, "an employee with no score yet", func(t *testing.T) {
		testutil.Then(t, "reading it is not found", func(t *testing.T) {
			testutil.AssertDetail(t, s.do(http.MethodGet, "/wellness/user-employee", employee, nil),
				http.StatusNotFound, "No wellness score calculated yet")
		})

		testutil.When(t, "they calculate their score", func(t *testing.T) {
			rr := s.do(http.MethodPost, "/wellness/calculate/user-employee", employee, nil)
			testutil.AssertStatus(t, rr, http.StatusOK)
			score := testutil.Decode[api.WellnessScore](t, rr)

			testutil.Then(t, "it is scored, stored and shown on their dashboard", func(t *testing.T) {
				// one login in a week is well under the expected activity
				assert.Equal(t, 8, score.Score)
				assert.Equal(t, 40, score.Factors[fakeapi.FactorActivityLevel])
				assert.Equal(t, 100, score.Factors[fakeapi.FactorTaskPerformance])
				assert.NotEmpty(t, score.Notes)

				latest := testutil.Decode[api.WellnessScore](t, s.do(http.MethodGet, "/wellness/user-employee", admin, nil))
				assert.Equal(t, score.ID, latest.ID)

				m := testutil.Decode[api.DashboardMetrics](t, s.do(http.MethodGet, "/dashboard/metrics", employee, nil))
				require.NotNil(t, m.WellnessScore)
				assert.Equal(t, score.ID, m.WellnessScore.ID)
				assert.Positive(t, m.ActivityToday)
			})
		})

		testutil.When(t, "they look at someone else's score", func(t *testing.T) {
			rr := s.do(http.MethodPost, "/wellness/calculate/user-admin", employee, nil)
			testutil.Then(t, "it is forbidden", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusForbidden)
			})
		})
	})

	testutil.Given(t, "department wellness", func(t *testing.T) {
		testutil.Then(t, "admins see the averaged score", func(t *testing.T) {
			rr := s.do(http.MethodGet, "/departments/"+fakeapi.SeedOperationsDept+"/wellness", admin, nil)
			testutil.AssertStatus(t, rr, http.StatusOK)
			d := testutil.Decode[api.DepartmentWellness](t, rr)
			assert.Equal(t, 1, d.TotalEmployees)
			assert.Equal(t, 80, d.WellnessScore)
			assert.Equal(t, "improving", d.Trend)
			assert.Equal(t, "Operations", d.DepartmentName)
		})
		testutil.Then(t, "employees may not", func(t *testing.T) {
			rr := s.do(http.MethodGet, "/departments/"+fakeapi.SeedOperationsDept+"/wellness", employee, nil)
			testutil.AssertStatus(t, rr, http.StatusForbidden)
		})
		testutil.Then(t, "unknown departments are not found", func(t *testing.T) {
			testutil.AssertStatus(t, s.do(http.MethodGet, "/departments/nope/wellness", admin, nil), http.StatusNotFound)
		})
	})
}

func ptr[T any](v T) *T {
	return &v
}
