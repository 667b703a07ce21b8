package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func guardianCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Link guardian accounts to students",
	}
	cmd.AddCommand(guardianLinkCmd())
	return cmd
}

func guardianLinkCmd() *cobra.Command {
	var studentFlag int64
	var emailFlag string

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link a guardian account to a student by email",
		Long:  "Attempts to link an existing guardian account. When no account exists for the email, offers to create one with the platform's default credential.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx := context.Background()
			result, err := a.guardianSvc.Link(ctx, studentFlag, emailFlag)
			if err != nil {
				return err
			}

			if result.Linked {
				fmt.Printf("guardian %s linked to student #%d\n", emailFlag, studentFlag)
				return nil
			}

			if !result.RecoveryOffered {
				fmt.Println(result.Outcome.Message)
				return nil
			}

			prompt := fmt.Sprintf("No guardian account exists for %s. Create one and link it?", emailFlag)
			if !(terminalConfirmer{}).Confirm(prompt) {
				a.guardianSvc.Decline()
				fmt.Println("cancelled, no account was created")
				return nil
			}

			provisioned, err := a.guardianSvc.ConfirmProvision(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("guardian account created and linked to student #%d\n", studentFlag)
			fmt.Printf("  email:    %s\n", provisioned.GuardianEmail)
			if provisioned.DefaultPassword != "" {
				fmt.Printf("  password: %s (share once, ask the guardian to change it)\n", provisioned.DefaultPassword)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&studentFlag, "student", 0, "student id")
	cmd.Flags().StringVar(&emailFlag, "email", "", "guardian email")
	cmd.MarkFlagRequired("student")
	cmd.MarkFlagRequired("email")
	return cmd
}
