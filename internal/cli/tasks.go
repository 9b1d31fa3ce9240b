package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safeshift/internal/api"
	"safeshift/internal/report"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

func addTasks(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Follow-up tasks assigned to employees.",
	}
	addTasksList(cmd, a)
	addTasksCreate(cmd, a)
	addTasksComplete(cmd, a, "done", "Mark a task done.", true)
	addTasksComplete(cmd, a, "reopen", "Reopen a completed task.", false)
	addTasksUpdate(cmd, a)
	addTasksDelete(cmd, a)
	topLevel.AddCommand(cmd)
}

// requireAdmin is the client-side guard for admin-only commands that go
// straight to the API client.
func (a *app) requireAdmin() (session.User, error) {
	me, err := a.currentUser()
	if err != nil {
		return me, err
	}
	if !me.IsAdmin() {
		return me, dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	return me, nil
}

func parseDue(s string) (report.Date, error) {
	if strings.TrimSpace(s) == "" {
		return report.Date{}, dErrors.New(dErrors.CodeValidation, "due date is required")
	}
	return report.ParseDate(strings.TrimSpace(s))
}

func addTasksList(parent *cobra.Command, a *app) {
	var employee, reportID string
	var open, done bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks.",
		Long: `List tasks, soonest due first.

Employees see their own tasks. Administrators see everyone's unless
--employee narrows the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.currentUser()
			if err != nil {
				return err
			}
			if open && done {
				return dErrors.New(dErrors.CodeValidation, "--open and --done are mutually exclusive")
			}
			filter := api.TaskFilter{EmployeeID: employee, ReportID: reportID}
			if !me.IsAdmin() && filter.EmployeeID == "" {
				filter.EmployeeID = me.ID
			}
			if open || done {
				filter.Completed = &done
			}
			tasks, err := a.client.ListTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printTasks(a.out, tasks, time.Now())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&employee, "employee", "", "user id (admin)")
	f.StringVar(&reportID, "report", "", "only tasks for this report")
	f.BoolVar(&open, "open", false, "only open tasks")
	f.BoolVar(&done, "done", false, "only completed tasks")
	parent.AddCommand(cmd)
}

func addTasksCreate(parent *cobra.Command, a *app) {
	var req api.CreateTaskRequest
	var due, priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Assign a task to an employee (admin).",
		Example: `
safeshift tasks create --employee user-employee --title "Complete witness statement" --due 2026-03-20 --priority high
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireAdmin(); err != nil {
				return err
			}
			var err error
			if req.DueDate, err = parseDue(due); err != nil {
				return err
			}
			if req.Priority, err = api.ParsePriority(priority); err != nil {
				return err
			}
			t, err := a.client.CreateTask(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintf(a.out, "Created task %s for %s, due %s.\n", t.ID, t.EmployeeID, t.DueDate)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.EmployeeID, "employee", "", "user id to assign")
	f.StringVar(&req.Title, "title", "", "task title")
	f.StringVar(&req.Description, "description", "", "details")
	f.StringVar(&req.ReportID, "report", "", "related report id")
	f.StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	f.StringVar(&priority, "priority", string(api.PriorityMedium), "low, medium or high")
	for _, name := range []string{"employee", "title", "due"} {
		_ = cmd.MarkFlagRequired(name)
	}
	parent.AddCommand(cmd)
}

func addTasksComplete(parent *cobra.Command, a *app, use, short string, done bool) {
	cmd := &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.currentUser(); err != nil {
				return err
			}
			t, err := a.client.CompleteTask(cmd.Context(), args[0], done)
			if err != nil {
				return err
			}
			state := "reopened"
			if t.IsCompleted {
				state = "done"
			}
			_, _ = fmt.Fprintf(a.out, "%q marked %s.\n", t.Title, state)
			return nil
		},
	}
	parent.AddCommand(cmd)
}

func addTasksUpdate(parent *cobra.Command, a *app) {
	var title, description, due, priority string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change a task (admin).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireAdmin(); err != nil {
				return err
			}
			var req api.UpdateTaskRequest
			f := cmd.Flags()
			if f.Changed("title") {
				req.Title = &title
			}
			if f.Changed("description") {
				req.Description = &description
			}
			if f.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				req.DueDate = &d
			}
			if f.Changed("priority") {
				p, err := api.ParsePriority(priority)
				if err != nil {
					return err
				}
				req.Priority = &p
			}
			if req.Empty() {
				return dErrors.New(dErrors.CodeValidation, "nothing to update")
			}
			t, err := a.client.UpdateTask(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printTasks(a.out, []api.Task{*t}, time.Now())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "task title")
	f.StringVar(&description, "description", "", "details")
	f.StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	f.StringVar(&priority, "priority", "", "low, medium or high")
	parent.AddCommand(cmd)
}

func addTasksDelete(parent *cobra.Command, a *app) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task (admin).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireAdmin(); err != nil {
				return err
			}
			if !yes {
				ok, err := newPrompter(cmd).confirm("Delete task "+args[0], false)
				if err != nil || !ok {
					return err
				}
			}
			if err := a.client.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.out, "Task deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	parent.AddCommand(cmd)
}

func addWellness(topLevel *cobra.Command, a *app) {
	var calculate bool
	var department string
	cmd := &cobra.Command{
		Use:   "wellness [user-id]",
		Short: "Show a wellness score.",
		Long: `Show the latest wellness score.

Without an argument, shows your own. --calculate scores again from the
last week of activity, recent reports and task completion. Another
employee's score and --department need an administrator.`,
		Example: `
safeshift wellness --calculate
safeshift wellness --department dept-operations
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.currentUser()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if department != "" {
				if len(args) > 0 || calculate {
					return dErrors.New(dErrors.CodeValidation, "--department cannot be combined with a user or --calculate")
				}
				if _, err := a.requireAdmin(); err != nil {
					return err
				}
				d, err := a.client.DepartmentWellness(ctx, department)
				if err != nil {
					return err
				}
				printDepartmentWellness(a.out, *d)
				return nil
			}

			employeeID := me.ID
			if len(args) > 0 && args[0] != me.ID {
				if _, err := a.requireAdmin(); err != nil {
					return err
				}
				employeeID = args[0]
			}
			var score *api.WellnessScore
			if calculate {
				score, err = a.client.CalculateWellness(ctx, employeeID)
			} else {
				score, err = a.client.Wellness(ctx, employeeID)
			}
			if dErrors.HasCode(err, dErrors.CodeNotFound) && !calculate {
				_, _ = faint.Fprintln(a.out, "No wellness score yet. Run `safeshift wellness --calculate`.")
				return nil
			}
			if err != nil {
				return err
			}
			printWellness(a.out, *score)
			return nil
		},
	}
	cmd.Flags().BoolVar(&calculate, "calculate", false, "score again now")
	cmd.Flags().StringVar(&department, "department", "", "department id (admin)")
	topLevel.AddCommand(cmd)
}
