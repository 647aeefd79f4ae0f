package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fjod/go_cart/storefront/internal/session"
)

var (
	email    string
	password string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the shop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.session.Register(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s, you can now log in\n", email)
			return nil
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.session.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		})
	},
}

// loginTokenCmd installs a token from a federated login. The argument may be
// the raw token or the full redirect URL from the browser.
var loginTokenCmd = &cobra.Command{
	Use:   "login-token [token|callback-url]",
	Short: "Log in with a token issued by a federated login",
	Long: `Installs a token obtained through the browser based login.

Pass either the token itself or the URL the browser landed on, e.g.
  storefront login-token 'http://localhost:5173/login/success?token=...'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]
		if strings.Contains(token, "://") {
			var err error
			if token, err = session.CallbackToken(token); err != nil {
				return err
			}
		}
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.session.LoginWithExternalToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			a.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show login state and cart summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api:   %s\n", a.api.BaseURL())
			if !a.session.IsAuthenticated() {
				fmt.Fprintln(out, "state: logged out")
				return nil
			}
			fmt.Fprintln(out, "state: logged in")
			snapshot, err := a.mirror.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cart:  %d items, total %.2f\n", snapshot.ItemCount(), snapshot.Total())
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&email, "email", "e", "", "account email")
		c.Flags().StringVarP(&password, "password", "p", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
}
