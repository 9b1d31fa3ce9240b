package fakeapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"safeshift/internal/api"
	"safeshift/internal/report"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/requestcontext"
)

const (
	latestReportsLimit = 5
	maxActivityDays    = 90
	// multipart overhead allowed on top of the attachment ceiling
	uploadSlack = 1 << 20
)

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req report.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.currentAccount(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.validateCreate(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now()
	rep := report.Report{
		Title:              strings.TrimSpace(req.Title),
		Type:               req.Type,
		Severity:           req.Severity,
		Status:             report.StatusPending,
		Description:        req.Description,
		DepartmentID:       req.DepartmentID,
		IncidentDate:       req.IncidentDate,
		Anonymous:          req.Anonymous,
		WitnessInformation: req.WitnessInformation,
		Attachments:        req.Attachments,
		CreatedAt:          now,
	}
	if rep.DepartmentID == "" {
		rep.DepartmentID = acct.DepartmentID
	}
	if !req.Anonymous {
		rep.ReporterID = acct.ID
	}

	screen := s.flagger.Check(rep, s.store.Reports(nil), now)
	if screen.Flagged {
		rep.Flagged = true
		rep.FlagReason = screen.Reason()
		rep.Severity = screen.Severity
	}
	stored := s.store.AddReport(rep)
	if s.metrics != nil {
		s.metrics.IncReportCreated(stored.Flagged)
	}
	s.logger.InfoContext(ctx, "report created",
		"report_id", stored.ID,
		"anonymous", stored.Anonymous,
		"flagged", stored.Flagged,
	)

	writeJSON(w, http.StatusCreated, report.Receipt{
		ID:       stored.ID,
		ReportID: stored.ID,
		Message:  "Report submitted successfully",
		Flagged:  stored.Flagged,
	})
}

func (s *Server) validateCreate(req report.CreateRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !req.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid report_type")
	}
	if !req.Severity.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid severity")
	}
	for _, ref := range req.Attachments {
		if !s.store.HasUpload(ref) {
			return dErrors.New(dErrors.CodeBadRequest, "unknown attachment: "+ref)
		}
	}
	return nil
}

// handleListReports shows admins every report and employees only the
// reports filed under their own name.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := report.ParseListFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	viewer := requestcontext.UserID(ctx)
	admin := requestcontext.Role(ctx) == string(session.RoleAdmin)

	reports := s.store.Reports(func(rep report.Report) bool {
		if !admin && rep.ReporterID != viewer {
			return false
		}
		return filter.Matches(rep)
	})
	reports = page(reports, filter.Offset, filter.Limit)
	writeJSON(w, http.StatusOK, map[string][]report.Report{"reports": reports})
}

func page(reports []report.Report, offset, limit int) []report.Report {
	if offset >= len(reports) {
		return []report.Report{}
	}
	reports = reports[offset:]
	if limit > 0 && limit < len(reports) {
		reports = reports[:limit]
	}
	return reports
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rep, err := s.store.Report(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// other people's reports are indistinguishable from missing ones
	if requestcontext.Role(ctx) != string(session.RoleAdmin) && rep.ReporterID != requestcontext.UserID(ctx) {
		s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "Report not found"))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req report.StatusUpdate
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := report.ParseStatus(string(req.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rep, err := s.store.UpdateReport(chi.URLParam(r, "id"), s.now(), func(rep *report.Report) error {
		rep.Status = status
		if req.Notes != "" {
			rep.Notes = req.Notes
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedTo string `json:"assigned_to"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.Account(req.AssignedTo); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "unknown assignee: "+req.AssignedTo))
		return
	}
	rep, err := s.store.UpdateReport(chi.URLParam(r, "id"), s.now(), func(rep *report.Report) error {
		rep.AssignedTo = req.AssignedTo
		if rep.Status == report.StatusPending {
			rep.Status = report.StatusInProgress
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, report.MaxAttachmentSize+uploadSlack)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	n, err := io.Copy(io.Discard, file)
	if err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "failed to read upload"))
		return
	}
	if err := report.CheckFile(header.Filename, n); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	ref := s.store.AddUpload(upload{Name: header.Filename, Size: n, OwnerID: requestcontext.UserID(r.Context())})
	writeJSON(w, http.StatusCreated, api.UploadResult{AttachmentRef: ref, Filename: header.Filename, Size: n})
}

func (s *Server) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]api.Department{"departments": s.store.Departments()})
}

// handleDashboardMetrics scopes the report lists to the viewer: admins see
// everything, employees their own reports plus their tasks, latest wellness
// score and today's activity count.
func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := requestcontext.UserID(ctx)
	admin := requestcontext.Role(ctx) == string(session.RoleAdmin)

	visible := s.store.Reports(func(rep report.Report) bool {
		return admin || rep.ReporterID == viewer
	})

	m := api.DashboardMetrics{
		Reports:         visible,
		OpenReports:     []report.Report{},
		ResolvedReports: []report.Report{},
		LatestReports:   page(visible, 0, latestReportsLimit),
	}
	for _, rep := range visible {
		switch {
		case rep.Status.IsOpen():
			m.OpenReports = append(m.OpenReports, rep)
		case rep.Status == report.StatusResolved:
			m.ResolvedReports = append(m.ResolvedReports, rep)
		}
		if rep.Flagged {
			m.Metrics.FlaggedReports++
		}
	}
	m.Metrics.ActiveReports = len(m.OpenReports)
	m.Metrics.TotalEmployees = s.store.CountActiveEmployees()
	m.Metrics.TotalDepartments = len(s.store.Departments())

	if !admin {
		m.Tasks = s.store.Tasks(func(t api.Task) bool { return t.EmployeeID == viewer })
		if score, err := s.store.LatestWellness(viewer); err == nil {
			m.WellnessScore = &score
		}
		now := s.now()
		y, mo, d := now.Date()
		m.ActivityToday = len(s.store.Activity(viewer, time.Date(y, mo, d, 0, 0, 0, 0, now.Location())))
	}

	writeJSON(w, http.StatusOK, m)
}

// handleActivity lets admins read anyone's activity and employees their own.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := chi.URLParam(r, "employee_id")
	if requestcontext.Role(ctx) != string(session.RoleAdmin) && employeeID != requestcontext.UserID(ctx) {
		s.writeError(w, r, dErrors.New(dErrors.CodeForbidden, "Not allowed to view this activity log"))
		return
	}
	if _, err := s.store.Account(employeeID); err != nil {
		s.writeError(w, r, dErrors.New(dErrors.CodeNotFound, "Employee not found"))
		return
	}

	days := api.DefaultActivityDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxActivityDays {
			s.writeError(w, r, dErrors.New(dErrors.CodeValidation, "days must be between 1 and 90"))
			return
		}
		days = n
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	writeJSON(w, http.StatusOK, api.ActivityLog{
		EmployeeID: employeeID,
		Days:       days,
		Activities: s.store.Activity(employeeID, since),
	})
}
