package main

import (
	"context"

	"github.com/certify/backend/internal/bootstrap"
	"github.com/spf13/cobra"
)

func newLookupCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "Show an issued certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, d, func(ctx context.Context, app *bootstrap.App) error {
				rec, err := app.Service.Lookup(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd, cmd.OutOrStdout(), rec, [][2]string{
					{"id", rec.ID},
					{"name", rec.Name},
					{"grade", rec.Grade},
					{"url", rec.URL},
				})
			})
		},
	}
}
