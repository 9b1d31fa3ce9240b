package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"safeshift/internal/api"
	"safeshift/internal/report"
)

const maxColWidth = 48

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	title = color.New(color.Bold, color.Underline)
)

func newTable(headers ...any) *uitable.Table {
	tbl := uitable.New()
	tbl.MaxColWidth = maxColWidth
	tbl.Wrap = true
	tbl.AddRow(headers...)
	return tbl
}

func severityColor(s report.Severity) *color.Color {
	switch s {
	case report.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case report.SeverityHigh:
		return color.New(color.FgRed)
	case report.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDate(d *report.Date) string {
	if d == nil || d.IsZero() {
		return "Date not set"
	}
	return d.String()
}

func printReports(w io.Writer, reports []report.Report) {
	if len(reports) == 0 {
		_, _ = faint.Fprintln(w, "No reports.")
		return
	}
	tbl := newTable("ID", "TITLE", "TYPE", "SEVERITY", "STATUS", "FLAGGED", "CREATED")
	for _, r := range reports {
		flagged := ""
		if r.Flagged {
			flagged = color.RedString("yes")
		}
		tbl.AddRow(r.ID, r.Title, r.Type.Label(), severityColor(r.Severity).Sprint(r.Severity.Label()),
			r.Status.Label(), flagged, formatTime(r.CreatedAt))
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printReport(w io.Writer, r report.Report) {
	_, _ = title.Fprintln(w, r.Title)
	tbl := uitable.New()
	tbl.MaxColWidth = 72
	tbl.Wrap = true
	tbl.AddRow("ID:", r.ID)
	tbl.AddRow("Type:", r.Type.Label())
	tbl.AddRow("Severity:", severityColor(r.Severity).Sprint(r.Severity.Label()))
	tbl.AddRow("Status:", r.Status.Label())
	tbl.AddRow("Department:", orDash(r.DepartmentID))
	tbl.AddRow("Incident date:", formatDate(r.IncidentDate))
	tbl.AddRow("Anonymous:", yesNo(r.Anonymous))
	tbl.AddRow("Description:", orDash(r.Description))
	tbl.AddRow("Witnesses:", orDash(r.WitnessInformation))
	tbl.AddRow("Attachments:", orDash(strings.Join(r.Attachments, ", ")))
	if r.Flagged {
		tbl.AddRow("Flagged:", color.RedString(r.FlagReason))
	}
	tbl.AddRow("Assigned to:", orDash(r.AssignedTo))
	tbl.AddRow("Notes:", orDash(r.Notes))
	tbl.AddRow("Created:", formatTime(r.CreatedAt))
	_, _ = fmt.Fprintln(w, tbl)
}

// printDraft renders the review step.
func printDraft(w io.Writer, d report.Draft) {
	tbl := uitable.New()
	tbl.MaxColWidth = 72
	tbl.Wrap = true
	tbl.AddRow("Title:", orDash(d.Title))
	tbl.AddRow("Type:", d.Type.Label())
	tbl.AddRow("Severity:", severityColor(d.Severity).Sprint(d.Severity.Label()))
	tbl.AddRow("Incident date:", formatDate(d.IncidentDay()))
	tbl.AddRow("Department:", orDefault(d.DepartmentID, "my department"))
	tbl.AddRow("Description:", orDash(d.Description))
	tbl.AddRow("Witnesses:", orDash(d.WitnessInformation))
	names := make([]string, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		names = append(names, a.Name)
	}
	tbl.AddRow("Attachments:", orDash(strings.Join(names, ", ")))
	tbl.AddRow("Anonymous:", yesNo(d.Anonymous))
	_, _ = fmt.Fprintln(w, tbl)
}

func printMetrics(w io.Writer, m api.DashboardMetrics, fetched time.Time) {
	_, _ = title.Fprintln(w, "Dashboard")
	tbl := uitable.New()
	tbl.AddRow("Employees:", m.Metrics.TotalEmployees)
	tbl.AddRow("Active reports:", m.Metrics.ActiveReports)
	tbl.AddRow("Flagged reports:", color.RedString("%d", m.Metrics.FlaggedReports))
	tbl.AddRow("Departments:", m.Metrics.TotalDepartments)
	tbl.AddRow("Open / resolved:", fmt.Sprintf("%d / %d", len(m.OpenReports), len(m.ResolvedReports)))
	if m.WellnessScore != nil {
		tbl.AddRow("Wellness:", fmt.Sprintf("%d/10", m.WellnessScore.Score))
	}
	if len(m.Tasks) > 0 {
		tbl.AddRow("Open tasks:", openTasks(m.Tasks))
	}
	if m.ActivityToday > 0 {
		tbl.AddRow("Activity today:", m.ActivityToday)
	}
	_, _ = fmt.Fprintln(w, tbl)
	_, _ = faint.Fprintf(w, "updated %s\n\n", formatTime(fetched))

	_, _ = bold.Fprintln(w, "Latest reports")
	printReports(w, m.LatestReports)
}

func printEmployees(w io.Writer, employees []api.Employee) {
	if len(employees) == 0 {
		_, _ = faint.Fprintln(w, "No employees.")
		return
	}
	tbl := newTable("ID", "EMPLOYEE ID", "NAME", "EMAIL", "ROLE", "DEPARTMENT", "ACTIVE")
	for _, e := range employees {
		active := color.GreenString("yes")
		if !e.IsActive {
			active = color.RedString("no")
		}
		tbl.AddRow(e.ID, e.EmployeeID, e.FullName, e.Email, string(e.Role), orDash(e.DepartmentID), active)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printActivity(w io.Writer, log api.ActivityLog) {
	_, _ = title.Fprintf(w, "Activity for %s, last %d days\n", log.EmployeeID, log.Days)
	if len(log.Activities) == 0 {
		_, _ = faint.Fprintln(w, "No activity.")
		return
	}
	tbl := newTable("WHEN", "ACTIVITY", "STATUS", "DEVICE")
	for _, a := range log.Activities {
		tbl.AddRow(formatTime(a.Timestamp), a.ActivityType, a.Status, a.Device)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func priorityColor(p api.TaskPriority) *color.Color {
	switch p {
	case api.PriorityHigh:
		return color.New(color.FgRed)
	case api.PriorityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func openTasks(tasks []api.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}

func printTasks(w io.Writer, tasks []api.Task, now time.Time) {
	if len(tasks) == 0 {
		_, _ = faint.Fprintln(w, "No tasks.")
		return
	}
	tbl := newTable("ID", "DUE", "PRIORITY", "TITLE", "EMPLOYEE", "STATUS")
	for _, t := range tasks {
		status := "open"
		switch {
		case t.IsCompleted:
			status = color.GreenString("done")
		case t.Overdue(now):
			status = color.RedString("overdue")
		}
		tbl.AddRow(t.ID, t.DueDate.String(), priorityColor(t.Priority).Sprint(t.Priority), t.Title, t.EmployeeID, status)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printWellness(w io.Writer, s api.WellnessScore) {
	band := api.WellnessBand(s.Score * 10)
	_, _ = title.Fprintf(w, "Wellness for %s\n", s.EmployeeID)
	tbl := uitable.New()
	tbl.AddRow("Score:", fmt.Sprintf("%s (%s)", bold.Sprintf("%d/10", s.Score), band))
	for _, k := range slices.Sorted(maps.Keys(s.Factors)) {
		tbl.AddRow(strings.ReplaceAll(k, "_", " ")+":", s.Factors[k])
	}
	tbl.AddRow("Calculated:", formatTime(s.CalculatedAt))
	_, _ = fmt.Fprintln(w, tbl)
	if s.Notes != "" {
		_, _ = fmt.Fprintln(w, s.Notes)
	}
}

func printDepartmentWellness(w io.Writer, d api.DepartmentWellness) {
	_, _ = title.Fprintf(w, "Wellness for %s\n", orDefault(d.DepartmentName, d.DepartmentID))
	tbl := uitable.New()
	tbl.AddRow("Score:", fmt.Sprintf("%s (%s)", bold.Sprintf("%d/100", d.WellnessScore), api.WellnessBand(d.WellnessScore)))
	tbl.AddRow("Employees:", d.TotalEmployees)
	tbl.AddRow("Trend:", d.Trend)
	_, _ = fmt.Fprintln(w, tbl)
}

func printDepartments(w io.Writer, depts []api.Department) {
	tbl := newTable("ID", "NAME")
	for _, d := range depts {
		tbl.AddRow(d.ID, strings.TrimSpace(d.Icon+" "+d.Name))
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func orDash(s string) string {
	return orDefault(s, "-")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
