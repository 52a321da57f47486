// Package bootstrap assembles the certificate service from configuration.
// The HTTP server and the certctl CLI share this wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	certapp "github.com/certify/backend/internal/application/certificate"
	"github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/infrastructure/config"
	"github.com/certify/backend/internal/infrastructure/printing"
	"github.com/certify/backend/internal/infrastructure/storage"
	"github.com/certify/backend/internal/infrastructure/telemetry"
	"github.com/certify/backend/internal/interfaces/http/handler"
	"github.com/certify/backend/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Version is the build version, set with -ldflags "-X ...bootstrap.Version=..."
var Version = "dev"

// App holds the assembled service and the resources it owns
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Service  *certapp.IssuanceService
	Registry *prometheus.Registry
	Tracing  *telemetry.TracerProvider

	httpMetrics *middleware.HTTPMetrics
	checks      []namedCheck
	closers     []namedCloser
}

type namedCheck struct {
	name  string
	check handler.HealthCheck
}

type namedCloser struct {
	name  string
	close func() error
}

type options struct {
	converter  certapp.DocumentConverter
	recipients certificate.RecipientRepository
	objects    storage.ObjectStorage
	clock      func() time.Time
}

// Option overrides a component normally built from configuration
type Option func(*options)

// WithConverter replaces the headless browser converter
func WithConverter(c certapp.DocumentConverter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// WithRecipientRepository replaces the configured recipient store
func WithRecipientRepository(r certificate.RecipientRepository) Option {
	return func(o *options) {
		o.recipients = r
	}
}

// WithObjectStorage replaces the configured artifact storage
func WithObjectStorage(s storage.ObjectStorage) Option {
	return func(o *options) {
		o.objects = s
	}
}

// WithClock sets the clock issuance dates are taken from
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// New builds the service. On error every resource opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (app *App, err error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	built := &App{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = built.Close(context.Background())
		}
	}()
	app = built

	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.httpMetrics = middleware.NewHTTPMetrics(app.Registry)

	app.Tracing, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	app.addCloser("tracing", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.Tracing.Shutdown(shutdownCtx)
	})

	policy, err := certificate.ParsePolicy(cfg.Issuance.DedupPolicy, cfg.Issuance.Mode)
	if err != nil {
		return nil, err
	}

	recipients := o.recipients
	if recipients == nil {
		recipients, err = app.openRecipients(ctx)
		if err != nil {
			return nil, err
		}
	}

	var publisher *storage.Publisher
	if o.objects != nil {
		publisher = storage.NewPublisher(o.objects, app.Logger)
	} else {
		publisher, err = app.openPublisher(ctx)
		if err != nil {
			return nil, err
		}
	}

	assets := assetSource(cfg.Issuance)
	if _, err := assets.Load(); err != nil {
		return nil, fmt.Errorf("failed to load certificate assets: %w", err)
	}

	converter := o.converter
	if converter == nil {
		converter = app.newConverter()
	}

	app.Service = certapp.NewIssuanceService(
		recipients,
		assets,
		printing.NewTemplateEngine(),
		converter,
		publisher,
		certapp.WithPolicy(policy),
		certapp.WithClock(o.clock),
		certapp.WithMetrics(certapp.NewMetrics(app.Registry)),
		certapp.WithTracerProvider(app.Tracing.Provider()),
		certapp.WithLogger(log),
	)

	log.Info("Certificate service assembled",
		zap.String("recipients", cfg.Recipients.Backend),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("dedup_policy", string(policy.Dedup)),
		zap.String("mode", string(policy.Mode)),
		zap.Bool("tracing", app.Tracing.IsEnabled()),
	)
	return app, nil
}

// HealthChecks returns the readiness checks of the configured backends and
// the deadline they share
func (a *App) HealthChecks() []handler.SystemHandlerOption {
	opts := make([]handler.SystemHandlerOption, 0, len(a.checks)+1)
	opts = append(opts, handler.WithHealthTimeout(a.Config.HTTP.HealthTimeout))
	for _, c := range a.checks {
		opts = append(opts, handler.WithHealthCheck(c.name, c.check))
	}
	return opts
}

// Close releases resources in reverse order of acquisition
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.Logger.Error("Failed to close resource", zap.String("resource", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) addCheck(name string, check handler.HealthCheck) {
	a.checks = append(a.checks, namedCheck{name: name, check: check})
}

func (a *App) addCloser(name string, close func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: close})
}
