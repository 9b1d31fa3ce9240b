package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safeshift/internal/admin"
	"safeshift/internal/report"
	"safeshift/internal/wizard"
	dErrors "safeshift/pkg/domain-errors"
	pstrings "safeshift/pkg/platform/strings"
)

func addReport(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Submit and review incident reports.",
	}
	addReportNew(cmd, a)
	addReportList(cmd, a)
	addReportShow(cmd, a)
	addReportTriage(cmd, a)
	addReportAssign(cmd, a)
	topLevel.AddCommand(cmd)
}

type reportFlags struct {
	title       string
	kind        string
	severity    string
	date        string
	description string
	department  string
	witness     string
	anonymous   bool
	attach      []string
	yes         bool
}

func (f *reportFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "report title")
	fl.StringVar(&f.kind, "type", "", "report type, e.g. safety_concern or \"Safety Concern\"")
	fl.StringVar(&f.severity, "severity", "", "low, medium, high or critical")
	fl.StringVar(&f.date, "date", "", "incident date as YYYY-MM-DD")
	fl.StringVar(&f.description, "description", "", "what happened")
	fl.StringVar(&f.department, "department", "", "department id; defaults to your own")
	fl.StringVar(&f.witness, "witness", "", "witness information")
	fl.BoolVar(&f.anonymous, "anonymous", false, "submit without your identity")
	fl.StringSliceVar(&f.attach, "attach", nil, "file to attach; repeatable")
	fl.BoolVarP(&f.yes, "yes", "y", false, "submit without prompting")
}

func addReportNew(parent *cobra.Command, a *app) {
	flags := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Submit a new report.",
		Example: `
safeshift report new
safeshift report new --title "Wet floor" --type safety_concern --severity medium --attach photo.jpg --yes
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.currentUser(); err != nil {
				return err
			}
			w, err := a.newWizard()
			if err != nil {
				return err
			}
			w.Open()
			defer w.Close()

			rn := &reportRun{app: a, w: w, p: newPrompter(cmd), flags: flags}
			return rn.run(cmd.Context())
		},
	}
	flags.register(cmd)
	parent.AddCommand(cmd)
}

func (a *app) newWizard() (*wizard.Wizard, error) {
	dash, err := a.dashboardService()
	if err != nil {
		return nil, err
	}
	owner := func() report.Owner {
		u, _ := a.sess.User()
		return report.Owner{DepartmentID: u.DepartmentID}
	}
	return wizard.New(a.client, owner,
		wizard.WithRefresher(dash),
		wizard.WithLogger(a.logger),
		wizard.WithMetrics(a.metrics),
	)
}

// reportRun walks one wizard from details to success.
type reportRun struct {
	*app
	w     *wizard.Wizard
	p     *prompter
	flags *reportFlags
}

func (r *reportRun) run(ctx context.Context) error {
	if err := r.applyFlags(ctx); err != nil {
		return err
	}
	if r.flags.yes {
		return r.submitDirect(ctx)
	}

	for {
		r.heading()
		var err error
		switch r.w.Step() {
		case wizard.StepDetails:
			if err = r.details(ctx); err == nil {
				err = r.w.Next(ctx)
			}
		case wizard.StepAttachments:
			if err = r.attachments(ctx); err == nil {
				err = r.w.Next(ctx)
			}
		case wizard.StepReview:
			var done bool
			if done, err = r.review(ctx); !done {
				continue
			}
		case wizard.StepSuccess:
			r.success()
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *reportRun) heading() {
	_, _ = title.Fprintln(r.out, r.w.Title())
	_, _ = faint.Fprintln(r.out, r.w.Subtitle())
}

// applyFlags pre-fills the details step and uploads any attachments.
func (r *reportRun) applyFlags(ctx context.Context) error {
	f := r.flags
	if f.title != "" {
		if err := r.w.SetTitle(f.title); err != nil {
			return err
		}
	}
	if f.kind != "" {
		t, err := report.ParseType(f.kind)
		if err != nil {
			return err
		}
		if err := r.w.SetType(t); err != nil {
			return err
		}
	}
	if f.severity != "" {
		s, err := report.ParseSeverity(f.severity)
		if err != nil {
			return err
		}
		if err := r.w.SetSeverity(s); err != nil {
			return err
		}
	}
	if f.date != "" {
		d, err := parseDate(f.date)
		if err != nil {
			return err
		}
		if err := r.w.SetIncidentDate(d); err != nil {
			return err
		}
	}
	setters := []struct {
		v   string
		set func(string) error
	}{
		{f.description, r.w.SetDescription},
		{f.department, r.w.SetDepartment},
		{f.witness, r.w.SetWitnessInformation},
	}
	for _, s := range setters {
		if s.v == "" {
			continue
		}
		if err := s.set(s.v); err != nil {
			return err
		}
	}
	if err := r.w.SetAnonymous(f.anonymous); err != nil {
		return err
	}
	if len(f.attach) == 0 {
		return nil
	}
	if err := r.w.Next(ctx); err != nil {
		return err
	}
	for _, path := range pstrings.DedupeAndTrim(f.attach) {
		if err := r.upload(ctx, path); err != nil {
			return err
		}
	}
	return r.w.Back()
}

func (r *reportRun) submitDirect(ctx context.Context) error {
	for r.w.Step() < wizard.StepReview {
		if err := r.w.Next(ctx); err != nil {
			return err
		}
	}
	if _, err := r.w.Submit(ctx); err != nil {
		return err
	}
	r.success()
	return nil
}

func (r *reportRun) details(ctx context.Context) error {
	d := r.w.Draft()

	t, err := r.p.text("Title", d.Title, true)
	if err != nil {
		return err
	}
	if err := r.w.SetTitle(t); err != nil {
		return err
	}

	types := make([]choice, 0, len(report.Types))
	for _, v := range report.Types {
		types = append(types, choice{Label: v.Label(), Value: string(v)})
	}
	kind, err := r.p.pick("Report type", types, string(d.Type))
	if err != nil {
		return err
	}
	if err := r.w.SetType(report.Type(kind)); err != nil {
		return err
	}

	severities := make([]choice, 0, len(report.Severities))
	for _, v := range report.Severities {
		severities = append(severities, choice{Label: v.Label(), Value: string(v)})
	}
	sev, err := r.p.pick("Severity", severities, string(d.Severity))
	if err != nil {
		return err
	}
	if err := r.w.SetSeverity(report.Severity(sev)); err != nil {
		return err
	}

	def := ""
	if day := d.IncidentDay(); day != nil {
		def = day.String()
	}
	raw, err := r.p.text("Incident date (YYYY-MM-DD, blank if unknown)", def, false)
	if err != nil {
		return err
	}
	date, err := parseDate(raw)
	if err != nil {
		return err
	}
	if err := r.w.SetIncidentDate(date); err != nil {
		return err
	}

	dept, err := r.pickDepartment(ctx, d.DepartmentID)
	if err != nil {
		return err
	}
	if err := r.w.SetDepartment(dept); err != nil {
		return err
	}

	desc, err := r.p.text("Description", d.Description, false)
	if err != nil {
		return err
	}
	if err := r.w.SetDescription(desc); err != nil {
		return err
	}
	witness, err := r.p.text("Witness information", d.WitnessInformation, false)
	if err != nil {
		return err
	}
	if err := r.w.SetWitnessInformation(witness); err != nil {
		return err
	}

	anon, err := r.p.confirm("Submit anonymously", d.Anonymous)
	if err != nil {
		return err
	}
	return r.w.SetAnonymous(anon)
}

// pickDepartment offers the server's departments. A failed lookup falls
// back to the user's own department rather than blocking the report.
func (r *reportRun) pickDepartment(ctx context.Context, current string) (string, error) {
	depts, err := r.client.ListDepartments(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "could not load departments", "error", err)
		return current, nil
	}
	choices := []choice{{Label: "My department", Value: ""}}
	for _, d := range depts {
		choices = append(choices, choice{Label: strings.TrimSpace(d.Icon + " " + d.Name), Value: d.ID})
	}
	return r.p.pick("Department", choices, current)
}

func (r *reportRun) attachments(ctx context.Context) error {
	_, _ = faint.Fprintf(r.out, "Allowed: %s, up to %d MB each.\n",
		strings.Join(report.AllowedExtensions, ", "), report.MaxAttachmentSize/1024/1024)
	for _, att := range r.w.Draft().Attachments {
		_, _ = fmt.Fprintf(r.out, "  attached %s\n", att.Name)
	}
	for {
		path, err := r.p.text("File to attach (blank to continue)", "", false)
		if err != nil {
			return err
		}
		if path == "" {
			return nil
		}
		if err := r.upload(ctx, path); err != nil {
			if dErrors.HasCode(err, dErrors.CodeValidation) {
				_, _ = color.New(color.FgRed).Fprintf(r.errOut, "%v\n", err)
				continue
			}
			return err
		}
	}
}

func (r *reportRun) upload(ctx context.Context, path string) error {
	att, err := r.client.UploadFile(ctx, path)
	if err != nil {
		return err
	}
	if err := r.w.AddAttachment(att); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.out, "  attached %s\n", att.Name)
	return nil
}

// review shows the draft and submits on request. done means the run
// should end with the returned error.
func (r *reportRun) review(ctx context.Context) (done bool, err error) {
	printDraft(r.out, r.w.Draft())
	action, err := r.p.pick("Next", []choice{
		{Label: r.w.NextLabel(), Value: "submit"},
		{Label: "Back", Value: "back"},
		{Label: "Cancel", Value: "cancel"},
	}, "submit")
	if err != nil {
		return true, err
	}
	switch action {
	case "back":
		return false, r.w.Back()
	case "cancel":
		_, _ = fmt.Fprintln(r.out, "Report discarded.")
		return true, nil
	}

	if _, err := r.w.Submit(ctx); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(r.errOut, "Submission failed: %v\n", err)
		if !dErrors.Retryable(err) && !dErrors.HasCode(err, dErrors.CodeValidation) {
			return true, err
		}
		// the draft is kept on review; loop around to retry or edit
		return false, err
	}
	return false, nil
}

func (r *reportRun) success() {
	receipt, ok := r.w.Created()
	if !ok {
		return
	}
	r.heading()
	_, _ = color.New(color.FgGreen, color.Bold).Fprintf(r.out, "Report %s submitted.\n", receipt.Ref())
	if receipt.Flagged {
		_, _ = color.New(color.FgYellow).Fprintln(r.out, "It has been flagged for priority review.")
	}
	if r.w.Draft().Anonymous {
		_, _ = faint.Fprintln(r.out, "Your identity was not attached to this report.")
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(report.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeValidation, "incident date must be YYYY-MM-DD")
	}
	return t, nil
}

type listFlags struct {
	status     string
	severity   string
	kind       string
	department string
	flagged    bool
	limit      int
	offset     int
}

func (f listFlags) filter() (report.ListFilter, error) {
	out := report.ListFilter{
		DepartmentID: f.department,
		FlaggedOnly:  f.flagged,
		Limit:        f.limit,
		Offset:       f.offset,
	}
	var err error
	if f.status != "" {
		if out.Status, err = report.ParseStatus(f.status); err != nil {
			return out, err
		}
	}
	if f.severity != "" {
		if out.Severity, err = report.ParseSeverity(f.severity); err != nil {
			return out, err
		}
	}
	if f.kind != "" {
		if out.Type, err = report.ParseType(f.kind); err != nil {
			return out, err
		}
	}
	return out, nil
}

func addReportList(parent *cobra.Command, a *app) {
	var f listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reports you can see.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}
			reports, err := a.client.ListReports(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printReports(a.out, reports)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.status, "status", "", "pending, in_progress, resolved or dismissed")
	fl.StringVar(&f.severity, "severity", "", "low, medium, high or critical")
	fl.StringVar(&f.kind, "type", "", "report type")
	fl.StringVar(&f.department, "department", "", "department id")
	fl.BoolVar(&f.flagged, "flagged", false, "only flagged reports")
	fl.IntVar(&f.limit, "limit", 0, "maximum number of reports")
	fl.IntVar(&f.offset, "offset", 0, "reports to skip")
	parent.AddCommand(cmd)
}

func addReportShow(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show one report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.client.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(a.out, *rep)
			return nil
		},
	}
	parent.AddCommand(cmd)
}

func (a *app) adminService() (*admin.Service, error) {
	return admin.New(a.client, a.sess, admin.WithLogger(a.logger))
}

func addReportTriage(parent *cobra.Command, a *app) {
	var status, notes string
	cmd := &cobra.Command{
		Use:   "triage <report-id>",
		Short: "Change a report's status (admin).",
		Example: `
safeshift report triage r-42 --status resolved --notes "ladder replaced"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			s, err := report.ParseStatus(status)
			if err != nil {
				return err
			}
			rep, err := svc.Triage(cmd.Context(), args[0], s, notes)
			if err != nil {
				return err
			}
			printReport(a.out, *rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&notes, "notes", "", "triage notes")
	_ = cmd.MarkFlagRequired("status")
	parent.AddCommand(cmd)
}

func addReportAssign(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "assign <report-id> <user-id>",
		Short: "Assign a report to an investigator (admin).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			rep, err := svc.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printReport(a.out, *rep)
			return nil
		},
	}
	parent.AddCommand(cmd)
}
