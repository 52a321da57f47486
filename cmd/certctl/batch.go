package main

import (
	"context"
	"fmt"
	"io"
	"os"

	certapp "github.com/certify/backend/internal/application/certificate"
	"github.com/certify/backend/internal/bootstrap"
	"github.com/certify/backend/internal/infrastructure/csvimport"
	"github.com/spf13/cobra"
)

type batchLine struct {
	Line  int    `json:"line"`
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

type batchReport struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Skipped   int         `json:"skipped"`
	Results   []batchLine `json:"results"`
}

func newBatchCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Issue certificates for every row of a CSV file",
		Long: `Read a CSV file with id, name and grade columns and issue one
certificate per row. Rows are independent: a failed row does not undo
the rows issued before it.`,
		Example: `  certctl batch --file recipients.csv
  certctl batch --file recipients.tsv --delimiter '\t' --stop-on-error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			delimiter, _ := cmd.Flags().GetString("delimiter")
			stopOnError, _ := cmd.Flags().GetBool("stop-on-error")

			items, err := readBatch(cmd.InOrStdin(), path, delimiter)
			if err != nil {
				return err
			}

			return withApp(cmd, d, func(ctx context.Context, app *bootstrap.App) error {
				summary := app.Service.IssueBatch(ctx, items, stopOnError)

				report := batchReport{
					Succeeded: summary.Succeeded,
					Failed:    summary.Failed,
					Skipped:   summary.Skipped,
					Results:   make([]batchLine, 0, len(summary.Results)),
				}
				lines := make([][2]string, 0, len(summary.Results)+1)
				for _, r := range summary.Results {
					bl := batchLine{Line: r.Line, ID: r.ID}
					status := "ok"
					if r.Err != nil {
						bl.Error = r.Err.Error()
						status = "failed: " + bl.Error
					} else if r.Result.URL != "" {
						bl.URL = r.Result.URL
						status = bl.URL
					}
					report.Results = append(report.Results, bl)
					lines = append(lines, [2]string{fmt.Sprintf("line %d (%s)", r.Line, r.ID), status})
				}
				lines = append(lines, [2]string{"summary", fmt.Sprintf("%d succeeded, %d failed, %d skipped",
					summary.Succeeded, summary.Failed, summary.Skipped)})

				if err := render(cmd, cmd.OutOrStdout(), report, lines); err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d certificates failed", summary.Failed, len(items))
				}
				return nil
			})
		},
	}

	cmd.Flags().String("file", "-", "CSV file with id, name and grade columns (- reads stdin)")
	cmd.Flags().String("delimiter", ",", "field delimiter")
	cmd.Flags().Bool("stop-on-error", false, "stop at the first failed row")
	return cmd
}

// readBatch parses the recipient list into batch items
func readBatch(stdin io.Reader, path, delimiter string) ([]certapp.BatchItem, error) {
	var in io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open recipient list: %w", err)
		}
		defer f.Close()
		in = f
	}

	comma, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}

	reader, err := csvimport.NewReader(in, csvimport.WithDelimiter(comma))
	if err != nil {
		return nil, err
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("recipient list has no rows")
	}

	items := make([]certapp.BatchItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, certapp.BatchItem{
			Line: row.Line,
			Request: certapp.IssueRequest{
				ID:    row.ID,
				Name:  row.Name,
				Grade: row.Grade,
			},
		})
	}
	return items, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}
