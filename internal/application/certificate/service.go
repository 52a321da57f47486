// Package certificate orchestrates certificate issuance: recipient
// bookkeeping, rendering, PDF conversion and publication.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	domain "github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
	"github.com/certify/backend/internal/infrastructure/logger"
	infra "github.com/certify/backend/internal/infrastructure/printing"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/certify/backend/internal/application/certificate"

// AssetLoader loads the certificate template and emblem
type AssetLoader interface {
	Load() (*infra.Assets, error)
	TemplateName() string
}

// TemplateRenderer renders a template source with data
type TemplateRenderer interface {
	Render(ctx context.Context, name, source string, data infra.TemplateData) (string, error)
}

// DocumentConverter converts markup to a PDF
type DocumentConverter interface {
	Convert(ctx context.Context, markup string) ([]byte, error)
}

// ArtifactPublisher publishes a recipient's PDF and computes its URL
type ArtifactPublisher interface {
	Publish(ctx context.Context, recipientID string, pdf []byte) (string, error)
	URL(recipientID string) string
	Exists(ctx context.Context, recipientID string) (bool, error)
}

// IssuanceService runs the issuance pipeline
type IssuanceService struct {
	recipients domain.RecipientRepository
	assets     AssetLoader
	renderer   TemplateRenderer
	converter  DocumentConverter
	publisher  ArtifactPublisher
	policy     domain.Policy
	now        func() time.Time
	validate   *validator.Validate
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option configures an IssuanceService
type Option func(*IssuanceService)

// WithPolicy sets the dedup policy and issuance mode
func WithPolicy(p domain.Policy) Option {
	return func(s *IssuanceService) {
		s.policy = p
	}
}

// WithClock sets the clock the issuance date is taken from
func WithClock(now func() time.Time) Option {
	return func(s *IssuanceService) {
		s.now = now
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *Metrics) Option {
	return func(s *IssuanceService) {
		s.metrics = m
	}
}

// WithTracerProvider sets the tracer provider spans are created from
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *IssuanceService) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *IssuanceService) {
		s.logger = l
	}
}

// NewIssuanceService creates a new IssuanceService
func NewIssuanceService(
	recipients domain.RecipientRepository,
	assets AssetLoader,
	renderer TemplateRenderer,
	converter DocumentConverter,
	publisher ArtifactPublisher,
	opts ...Option,
) *IssuanceService {
	s := &IssuanceService{
		recipients: recipients,
		assets:     assets,
		renderer:   renderer,
		converter:  converter,
		publisher:  publisher,
		policy:     domain.DefaultPolicy(),
		now:        time.Now,
		validate:   newValidator(),
		tracer:     otel.Tracer(tracerName),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Policy returns the policy the service applies
func (s *IssuanceService) Policy() domain.Policy {
	return s.policy
}

// Issue runs the pipeline for one request. Each stage depends on the
// previous one; the first failure aborts the rest and is returned as a
// *StageError, except validation failures which are INVALID_INPUT domain
// errors raised before any side effect.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest) (result *IssueResult, err error) {
	ctx, span := s.tracer.Start(ctx, "certificate.Issue", trace.WithAttributes(
		attribute.String("certificate.recipient_id", req.ID),
		attribute.String("certificate.dedup_policy", s.policy.Dedup.String()),
		attribute.String("certificate.mode", s.policy.Mode.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx = logger.WithRecipientID(ctx, req.ID)
	log := logger.WithLogger(ctx, s.logger)

	recipient, err := s.validateRequest(req)
	if err != nil {
		s.metrics.IncOutcome(OutcomeInvalid)
		log.Info("Rejected issuance request", zap.Error(err))
		return nil, err
	}

	defer func() {
		if err != nil {
			s.metrics.IncOutcome(OutcomeFailed)
			var se *StageError
			if errors.As(err, &se) {
				log.Error("Certificate issuance failed", zap.String("stage", se.Stage.String()), zap.Error(se.Err))
			}
		}
	}()

	saved, err := s.record(ctx, recipient)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("certificate.recipient_saved", saved))

	if !s.policy.Publishes() {
		s.metrics.IncOutcome(OutcomeRecorded)
		log.Info("Recipient recorded", zap.Bool("saved", saved))
		return &IssueResult{Message: CreatedMessage, RecipientSaved: saved}, nil
	}

	markup, err := s.render(ctx, recipient)
	if err != nil {
		return nil, err
	}

	pdf, err := s.convert(ctx, markup)
	if err != nil {
		return nil, err
	}

	url, err := s.publish(ctx, recipient.ID, pdf)
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(OutcomeIssued)
	log.Info("Certificate issued",
		zap.Bool("recipient_saved", saved),
		zap.Int("pdf_bytes", len(pdf)),
		zap.String("url", url))

	return &IssueResult{Message: CreatedMessage, URL: url, RecipientSaved: saved}, nil
}

// Lookup returns a stored recipient and the URL its certificate is published
// at. The URL is empty when no certificate has been published for the
// recipient, as in record_only mode or after a failed convert or publish.
func (s *IssuanceService) Lookup(ctx context.Context, id string) (*RecipientResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Recipient ID cannot be empty")
	}

	recipient, err := s.recipients.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Recipient %s not found", id))
		}
		return nil, stageError(StageStore, err)
	}

	published, err := s.publisher.Exists(ctx, recipient.ID)
	if err != nil {
		return nil, stageError(StagePublish, err)
	}

	resp := &RecipientResponse{
		ID:    recipient.ID,
		Name:  recipient.Name,
		Grade: recipient.Grade,
	}
	if published {
		resp.URL = s.publisher.URL(recipient.ID)
	}
	return resp, nil
}

// validateRequest checks required fields and builds the recipient
func (s *IssuanceService) validateRequest(req IssueRequest) (*domain.Recipient, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, shared.NewDomainError("INVALID_INPUT", formatValidationErrors(verrs))
		}
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	return domain.NewRecipient(req.ID, req.Name, req.Grade)
}

// record applies the dedup policy and writes the recipient when required
func (s *IssuanceService) record(ctx context.Context, recipient *domain.Recipient) (bool, error) {
	start := time.Now()
	defer s.metrics.ObserveStage(StageStore, start)

	exists, err := s.recipients.Exists(ctx, recipient.ID)
	if err != nil {
		return false, stageError(StageStore, err)
	}
	if !s.policy.ShouldSave(exists) {
		return false, nil
	}
	if err := s.recipients.Save(ctx, recipient); err != nil {
		return false, stageError(StageStore, err)
	}
	return true, nil
}

// render builds the render data and renders the certificate markup
func (s *IssuanceService) render(ctx context.Context, recipient *domain.Recipient) (string, error) {
	start := time.Now()
	defer s.metrics.ObserveStage(StageRender, start)

	assets, err := s.assets.Load()
	if err != nil {
		return "", stageError(StageRender, err)
	}

	data := domain.NewRenderData(recipient, s.now(), assets.Medal)
	markup, err := s.renderer.Render(ctx, s.assets.TemplateName(), assets.Template, infra.TemplateData{
		Values: data.Values(),
		Raw:    data.RawValues(),
	})
	if err != nil {
		return "", stageError(StageRender, err)
	}
	return markup, nil
}

func (s *IssuanceService) convert(ctx context.Context, markup string) ([]byte, error) {
	start := time.Now()
	defer s.metrics.ObserveStage(StageConvert, start)

	pdf, err := s.converter.Convert(ctx, markup)
	if err != nil {
		return nil, stageError(StageConvert, err)
	}
	return pdf, nil
}

func (s *IssuanceService) publish(ctx context.Context, recipientID string, pdf []byte) (string, error) {
	start := time.Now()
	defer s.metrics.ObserveStage(StagePublish, start)

	url, err := s.publisher.Publish(ctx, recipientID, pdf)
	if err != nil {
		return "", stageError(StagePublish, err)
	}
	s.metrics.ObserveArtifact(len(pdf))
	return url, nil
}

// newValidator creates a validator reporting JSON field names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
