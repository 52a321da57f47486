package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/certify/backend/internal/bootstrap"
	"github.com/certify/backend/internal/infrastructure/config"
	"github.com/certify/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// deps are the seams between the commands and the service wiring
type deps struct {
	loadConfig func() (*config.Config, error)
	newApp     func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*bootstrap.App, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newApp: func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*bootstrap.App, error) {
			return bootstrap.New(ctx, cfg, log)
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "certctl",
		Short: "Certificate service CLI",
		Long: `certctl issues and looks up certificates using the same configuration
and backends as the certificate service, without going through HTTP.`,
		Version:      bootstrap.Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("output", "text", "output format: text, json")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newIssueCmd(d), newLookupCmd(d), newBatchCmd(d))
	return root
}

// withApp assembles the service for one command and releases it afterwards
func withApp(cmd *cobra.Command, d deps, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := d.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	log, err := logger.New(&logger.Config{
		Level:  level,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := d.newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close(context.Background())
	}()

	return fn(ctx, app)
}

// render writes v as indented JSON or as key: value lines
func render(cmd *cobra.Command, w io.Writer, v any, lines [][2]string) error {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
		for _, l := range lines {
			if l[1] == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s: %s\n", l[0], l[1]); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}
