package fakeapi

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"safeshift/internal/api"
	"safeshift/internal/report"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
)

// account is a stored user profile plus its credentials.
type account struct {
	session.User
	PasswordHash     string
	ActivityTracking bool
	CreatedAt        time.Time
}

func (a *account) employee() api.Employee {
	return api.Employee{
		ID:           a.ID,
		Email:        a.Email,
		FullName:     a.FullName,
		EmployeeID:   a.EmployeeID,
		DepartmentID: a.DepartmentID,
		Role:         a.Role,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt,
	}
}

type upload struct {
	Name    string
	Size    int64
	OwnerID string
}

// Store is the in-memory state of the development API.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*account
	byEmail     map[string]string
	departments []api.Department
	reports     map[string]*report.Report
	order       []string
	activity    []api.ActivityEntry
	uploads     map[string]upload
	tasks       map[string]*api.Task
	taskOrder   []string
	wellness    []api.WellnessScore
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		reports:  make(map[string]*report.Report),
		uploads:  make(map[string]upload),
		tasks:    make(map[string]*api.Task),
	}
}

func (s *Store) AddDepartment(d api.Department) api.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.departments = append(s.departments, d)
	return d
}

func (s *Store) Departments() []api.Department {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.departments)
}

func (s *Store) hasDepartmentLocked(id string) bool {
	return slices.ContainsFunc(s.departments, func(d api.Department) bool { return d.ID == id })
}

// AddAccount stores a new account. Emails are unique, case-insensitively.
func (s *Store) AddAccount(a account) (*account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(a.Email))
	if _, taken := s.byEmail[email]; taken {
		return nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
	}
	if a.DepartmentID != "" && !s.hasDepartmentLocked(a.DepartmentID) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown department: "+a.DepartmentID)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = email
	stored := a
	s.accounts[a.ID] = &stored
	s.byEmail[email] = a.ID
	return &stored, nil
}

func (s *Store) AccountByEmail(email string) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return account{}, sentinel.ErrNotFound
	}
	return *s.accounts[id], nil
}

func (s *Store) Account(id string) (account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return account{}, sentinel.ErrNotFound
	}
	return *a, nil
}

func (s *Store) SetPasswordHash(id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (s *Store) ListEmployees(departmentID string, role session.Role, activeOnly bool) []api.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Employee, 0, len(s.accounts))
	for _, a := range s.accounts {
		if departmentID != "" && a.DepartmentID != departmentID {
			continue
		}
		if role != "" && a.Role != role {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a.employee())
	}
	slices.SortFunc(out, func(a, b api.Employee) int { return strings.Compare(a.EmployeeID, b.EmployeeID) })
	return out
}

func (s *Store) UpdateAccount(id string, req api.UpdateEmployeeRequest) (api.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return api.Employee{}, sentinel.ErrNotFound
	}
	if req.DepartmentID != nil && *req.DepartmentID != "" && !s.hasDepartmentLocked(*req.DepartmentID) {
		return api.Employee{}, dErrors.New(dErrors.CodeValidation, "unknown department: "+*req.DepartmentID)
	}
	if req.FullName != nil {
		a.FullName = *req.FullName
	}
	if req.EmployeeID != nil {
		a.EmployeeID = *req.EmployeeID
	}
	if req.DepartmentID != nil {
		a.DepartmentID = *req.DepartmentID
	}
	if req.Role != nil {
		a.Role = *req.Role
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	return a.employee(), nil
}

func (s *Store) CountActiveEmployees() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.accounts {
		if a.IsActive {
			n++
		}
	}
	return n
}

func (s *Store) AddUpload(u upload) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "att_" + uuid.NewString()
	s.uploads[ref] = u
	return ref
}

func (s *Store) HasUpload(ref string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.uploads[ref]
	return ok
}

// AddReport stores r under a fresh id. UpdatedAt stays unset until the first
// change.
func (s *Store) AddReport(r report.Report) report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	r.UpdatedAt = nil
	stored := r
	s.reports[r.ID] = &stored
	s.order = append(s.order, r.ID)
	return stored
}

// Reports returns reports newest first.
func (s *Store) Reports(match func(report.Report) bool) []report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]report.Report, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		r := *s.reports[s.order[i]]
		if match == nil || match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Report(id string) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return report.Report{}, sentinel.ErrNotFound
	}
	return *r, nil
}

// UpdateReport applies fn to the stored report under the write lock.
func (s *Store) UpdateReport(id string, now time.Time, fn func(*report.Report) error) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return report.Report{}, sentinel.ErrNotFound
	}
	updated := *r
	if err := fn(&updated); err != nil {
		return report.Report{}, err
	}
	updated.UpdatedAt = &now
	*r = updated
	return updated, nil
}

func (s *Store) RecordActivity(e api.ActivityEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.activity = append(s.activity, e)
}

// Activity returns an employee's entries at or after since, oldest first.
func (s *Store) Activity(employeeID string, since time.Time) []api.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []api.ActivityEntry{}
	for _, e := range s.activity {
		if e.EmployeeID == employeeID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// AddTask stores t under a fresh id.
func (s *Store) AddTask(t api.Task) api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	stored := t
	s.tasks[t.ID] = &stored
	s.taskOrder = append(s.taskOrder, t.ID)
	return stored
}

// Tasks returns matching tasks ordered by due date, then creation.
func (s *Store) Tasks(match func(api.Task) bool) []api.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []api.Task{}
	for _, id := range s.taskOrder {
		t := *s.tasks[id]
		if match == nil || match(t) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b api.Task) int {
		switch {
		case a.DueDate.Before(b.DueDate):
			return -1
		case b.DueDate.Before(a.DueDate):
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) Task(id string) (api.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return api.Task{}, sentinel.ErrNotFound
	}
	return *t, nil
}

// UpdateTask applies fn to the stored task under the write lock.
func (s *Store) UpdateTask(id string, fn func(*api.Task) error) (api.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return api.Task{}, sentinel.ErrNotFound
	}
	updated := *t
	if err := fn(&updated); err != nil {
		return api.Task{}, err
	}
	*t = updated
	return updated, nil
}

func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tasks, id)
	s.taskOrder = slices.DeleteFunc(s.taskOrder, func(v string) bool { return v == id })
	return nil
}

func (s *Store) AddWellness(w api.WellnessScore) api.WellnessScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = uuid.NewString()
	s.wellness = append(s.wellness, w)
	return w
}

// LatestWellness returns the employee's most recent score.
func (s *Store) LatestWellness(employeeID string) (api.WellnessScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.wellness) - 1; i >= 0; i-- {
		if s.wellness[i].EmployeeID == employeeID {
			return s.wellness[i], nil
		}
	}
	return api.WellnessScore{}, sentinel.ErrNotFound
}
