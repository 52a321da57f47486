package main

import (
	"context"

	certapp "github.com/certify/backend/internal/application/certificate"
	"github.com/certify/backend/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newIssueCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "Issue a certificate",
		Long:    "Record the recipient, render the certificate and publish the PDF",
		Example: `  certctl issue --id u1 --name "Ana Silva" --grade A+`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			name, _ := cmd.Flags().GetString("name")
			grade, _ := cmd.Flags().GetString("grade")

			return withApp(cmd, d, func(ctx context.Context, app *bootstrap.App) error {
				result, err := app.Service.Issue(ctx, certapp.IssueRequest{
					ID:    id,
					Name:  name,
					Grade: grade,
				})
				if err != nil {
					return err
				}
				return render(cmd, cmd.OutOrStdout(), result, [][2]string{
					{"message", result.Message},
					{"url", result.URL},
				})
			})
		},
	}

	cmd.Flags().String("id", "", "recipient ID")
	cmd.Flags().String("name", "", "recipient name")
	cmd.Flags().String("grade", "", "achievement grade")
	return cmd
}
