package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

func addAuth(topLevel *cobra.Command, a *app) {
	addLogin(topLevel, a)
	addLogout(topLevel, a)
	addWhoami(topLevel, a)
	addChangePassword(topLevel, a)
}

func addLogin(topLevel *cobra.Command, a *app) {
	var email, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in to SafeShift.",
		Annotations: noHeartbeat,
		Example: `
safeshift login
safeshift login --email sam@safeshift.local
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)
			var err error
			if email == "" {
				if email, err = p.text("Email", "", true); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.secret("Password"); err != nil {
					return err
				}
			}
			res, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintf(a.out, "Welcome, %s.\n", res.User.FullName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted when omitted")
	topLevel.AddCommand(cmd)
}

func addLogout(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:         "logout",
		Short:       "Sign out and forget the stored session.",
		Annotations: noHeartbeat,
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addWhoami(topLevel *cobra.Command, a *app) {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.currentUser()
			if err != nil {
				return err
			}
			if remote {
				me, err := a.client.Me(cmd.Context())
				if err != nil {
					return err
				}
				u = *me
			}
			printUser(a, u)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the stored profile")
	topLevel.AddCommand(cmd)
}

func printUser(a *app, u session.User) {
	tbl := uitable.New()
	tbl.AddRow("Name:", u.FullName)
	tbl.AddRow("Email:", u.Email)
	tbl.AddRow("Employee ID:", orDash(u.EmployeeID))
	tbl.AddRow("Role:", string(u.Role))
	tbl.AddRow("Department:", orDash(u.DepartmentID))
	tbl.AddRow("Profile:", a.cfg.Profile)
	_, _ = fmt.Fprintln(a.out, tbl)
}

func addChangePassword(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change your password.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.currentUser(); err != nil {
				return err
			}
			p := newPrompter(cmd)
			current, err := p.secret("Current password")
			if err != nil {
				return err
			}
			next, err := p.secret("New password")
			if err != nil {
				return err
			}
			again, err := p.secret("Repeat new password")
			if err != nil {
				return err
			}
			if next != again {
				return dErrors.New(dErrors.CodeValidation, "passwords do not match")
			}
			if err := a.client.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			_, _ = color.New(color.FgGreen).Fprintln(a.out, "Password changed.")
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}
