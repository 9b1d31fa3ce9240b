package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"safeshift/internal/api"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

func addEmployees(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:     "employees",
		Aliases: []string{"employee", "emp"},
		Short:   "Manage employee accounts (admin).",
	}
	addEmployeesList(cmd, a)
	addEmployeesShow(cmd, a)
	addEmployeesCreate(cmd, a)
	addEmployeesUpdate(cmd, a)
	addEmployeesDeactivate(cmd, a)
	topLevel.AddCommand(cmd)
}

func parseRole(s string) (session.Role, error) {
	if s == "" {
		return "", nil
	}
	r := session.Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "role must be employee or admin")
	}
	return r, nil
}

func addEmployeesList(parent *cobra.Command, a *app) {
	var department, role string
	var active bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List employees.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			employees, err := svc.ListEmployees(cmd.Context(), api.EmployeeFilter{
				DepartmentID: department,
				Role:         r,
				ActiveOnly:   active,
			})
			if err != nil {
				return err
			}
			printEmployees(a.out, employees)
			return nil
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "department id")
	cmd.Flags().StringVar(&role, "role", "", "employee or admin")
	cmd.Flags().BoolVar(&active, "active", false, "only active accounts")
	parent.AddCommand(cmd)
}

func addEmployeesShow(parent *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show one employee.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			emp, err := svc.GetEmployee(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printEmployees(a.out, []api.Employee{*emp})
			return nil
		},
	}
	parent.AddCommand(cmd)
}

func addEmployeesCreate(parent *cobra.Command, a *app) {
	var req api.CreateEmployeeRequest
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an employee account with a temporary password.",
		Example: `
safeshift employees create --email jo@example.com --name "Jo Park" --employee-id EMP-0200 --department dept-finance
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			if req.Role, err = parseRole(role); err != nil {
				return err
			}
			req.AutoGeneratePassword = true
			resp, err := svc.CreateEmployee(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintf(a.out, "Created %s.\n", resp.EmployeeID)
			if resp.TempPassword != "" {
				_, _ = fmt.Fprintf(a.out, "Temporary password: %s\n", bold.Sprint(resp.TempPassword))
				_, _ = faint.Fprintln(a.out, "Share it securely; it is not shown again.")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "login email")
	f.StringVar(&req.FullName, "name", "", "full name")
	f.StringVar(&req.EmployeeID, "employee-id", "", "employee number")
	f.StringVar(&req.DepartmentID, "department", "", "department id")
	f.StringVar(&role, "role", string(session.RoleEmployee), "employee or admin")
	for _, name := range []string{"email", "name", "employee-id", "department"} {
		_ = cmd.MarkFlagRequired(name)
	}
	parent.AddCommand(cmd)
}

func addEmployeesUpdate(parent *cobra.Command, a *app) {
	var name, employeeID, department, role string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change an employee's profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			var req api.UpdateEmployeeRequest
			f := cmd.Flags()
			if f.Changed("name") {
				req.FullName = &name
			}
			if f.Changed("employee-id") {
				req.EmployeeID = &employeeID
			}
			if f.Changed("department") {
				req.DepartmentID = &department
			}
			if f.Changed("role") {
				r, err := parseRole(role)
				if err != nil {
					return err
				}
				req.Role = &r
			}
			if f.Changed("active") {
				req.IsActive = &active
			}
			if req.Empty() {
				return dErrors.New(dErrors.CodeValidation, "nothing to update")
			}
			emp, err := svc.UpdateEmployee(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			printEmployees(a.out, []api.Employee{*emp})
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&employeeID, "employee-id", "", "employee number")
	f.StringVar(&department, "department", "", "department id")
	f.StringVar(&role, "role", "", "employee or admin")
	f.BoolVar(&active, "active", true, "account active")
	parent.AddCommand(cmd)
}

func addEmployeesDeactivate(parent *cobra.Command, a *app) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Deactivate an account and sign it out everywhere.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			if !yes {
				ok, err := newPrompter(cmd).confirm("Deactivate "+args[0], false)
				if err != nil || !ok {
					return err
				}
			}
			emp, err := svc.DeactivateEmployee(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.out, "%s deactivated.\n", emp.FullName)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	parent.AddCommand(cmd)
}

func addActivity(topLevel *cobra.Command, a *app) {
	var days int
	cmd := &cobra.Command{
		Use:   "activity [user-id]",
		Short: "Show heartbeat and login activity.",
		Long: `Show heartbeat and login activity.

Without an argument, shows your own activity. Viewing another employee's
activity requires an administrator.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.currentUser()
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == me.ID {
				if days <= 0 {
					days = api.DefaultActivityDays
				}
				log, err := a.client.Activity(cmd.Context(), me.ID, days)
				if err != nil {
					return err
				}
				printActivity(a.out, *log)
				return nil
			}
			svc, err := a.adminService()
			if err != nil {
				return err
			}
			log, err := svc.ActivityLog(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			printActivity(a.out, *log)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", api.DefaultActivityDays, "how many days back")
	topLevel.AddCommand(cmd)
}
