package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled bool
	// DBName is recorded on every span (default "postgresql")
	DBName string
	// IncludeVariables puts bound values into the recorded statement.
	// Recipient names are personal data, so this stays off outside development.
	IncludeVariables bool
	// TracerProvider overrides the global provider when set
	TracerProvider trace.TracerProvider
}

// RegisterGormTracing installs the otelgorm plugin so every recipient store
// query becomes a child span of the issuance span.
func RegisterGormTracing(db *gorm.DB, cfg DBTracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	name := cfg.DBName
	if name == "" {
		name = "postgresql"
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(name),
	}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register gorm tracing: %w", err)
	}
	return nil
}
