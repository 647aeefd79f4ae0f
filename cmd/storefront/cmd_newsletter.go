package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsletterCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "Manage newsletter subscriptions",
}

var newsletterSubscribeCmd = &cobra.Command{
	Use:   "subscribe [email]",
	Short: "Subscribe an email address to the newsletter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.api.SubscribeNewsletter(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subscribed %s\n", args[0])
			return nil
		})
	},
}

func init() {
	newsletterCmd.AddCommand(newsletterSubscribeCmd)
}
