package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/todoctl/internal/session"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (prompted when omitted)")
}

// prompt asks for whatever was not given on the command line. With
// confirm set, a prompted password is asked twice; the second entry is
// returned.
func (f *credentialFlags) prompt(confirm bool) (string, error) {
	again := f.password
	var fields []huh.Field
	if f.email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(&f.email))
	}
	if f.password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&f.password))
		if confirm {
			fields = append(fields, huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&again))
		}
	}
	if len(fields) == 0 {
		return again, nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", err
	}
	if !confirm {
		again = f.password
	}
	return again, nil
}

func newLoginCmd(a *App) *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := f.prompt(false); err != nil {
				return err
			}
			if err := session.ValidateLogin(f.email, f.password); err != nil {
				return err
			}

			svc, err := a.services(cliNotifier(cmd))
			if err != nil {
				return err
			}
			defer svc.session.Close()

			if err := svc.session.Login(cmd.Context(), f.email, f.password); err != nil {
				return errors.New(session.LoginErrorMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.MsgLoggedIn)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newRegisterCmd(a *App) *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, err := f.prompt(true)
			if err != nil {
				return err
			}
			if err := session.ValidateRegistration(f.email, f.password, confirm); err != nil {
				return err
			}

			svc, err := a.services(cliNotifier(cmd))
			if err != nil {
				return err
			}
			defer svc.session.Close()

			if err := svc.session.Register(cmd.Context(), f.email, f.password); err != nil {
				return errors.New(session.RegisterErrorMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.MsgRegistered)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cliNotifier(cmd))
			if err != nil {
				return err
			}
			defer svc.session.Close()

			svc.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cliNotifier(cmd))
			if err != nil {
				return err
			}
			defer svc.session.Close()

			if err := svc.restore(cmd.Context()); err != nil {
				return err
			}
			u := svc.session.State().User
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", u.Email, u.ID)
			return nil
		},
	}
}
