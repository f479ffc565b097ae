package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/spf13/cobra"
)

var errInvalidCredentials = errors.New("invalid email or password")

// credentials prompts for whatever was not given on the command line.
func (a *App) credentials(email string) (string, []byte, error) {
	var err error
	if email == "" {
		email, err = GetSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return "", nil, err
		}
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register creates an account. It does not sign in.
func (a *App) Register(ctx context.Context, email string) error {
	email, password, err := a.credentials(email)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.account.Register(ctx, email, string(password))
	if err != nil {
		return failed(err, "Failed to create account")
	}

	a.success(fmt.Sprintf("Account %s created. Run login to sign in", u.Email))
	return nil
}

// Login signs in and moves to the feed, or to onboarding when the user
// has no profile yet.
func (a *App) Login(ctx context.Context, email string) error {
	email, password, err := a.credentials(email)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.account.Login(ctx, email, string(password))
	if err != nil {
		a.setView(ViewSignedOut)
		if errors.Is(err, common.ErrUnauthenticated) {
			err = errInvalidCredentials
		}
		return failed(err, "Failed to sign in")
	}
	a.setUser(u)
	a.success("Signed in as " + u.Email)

	_, err = a.checkProfile(ctx, u)
	return failed(err, "Failed to load profile")
}

func (a *App) Logout() error {
	if err := a.account.Logout(); err != nil {
		return failed(err, "Failed to sign out")
	}
	a.setUser(nil)
	a.setView(ViewSignedOut)
	a.success("Signed out")
	return nil
}

// Whoami prints the signed-in user and profile.
func (a *App) Whoami(ctx context.Context) error {
	u, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", u.Email, u.ID)
	p, err := a.checkProfile(ctx, u)
	if err != nil {
		return failed(err, "Failed to load profile")
	}
	if p != nil {
		fmt.Fprintf(a.out, "%s, %d, interests: %s\n", p.DisplayName, p.Age, joinInterests(p.Interests))
	}
	return nil
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.app.Register(cmd.Context(), email)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.app.Login(cmd.Context(), email)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return rt.app.Logout()
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.app.Whoami(cmd.Context())
		},
	}
}
