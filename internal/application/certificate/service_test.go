package certificate

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	domain "github.com/certify/backend/internal/domain/certificate"
	"github.com/certify/backend/internal/domain/shared"
	"github.com/certify/backend/internal/infrastructure/persistence"
	infra "github.com/certify/backend/internal/infrastructure/printing"
	"github.com/certify/backend/internal/infrastructure/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

// MockRecipientRepository is a mock implementation of RecipientRepository
type MockRecipientRepository struct {
	mock.Mock
}

func (m *MockRecipientRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecipientRepository) Save(ctx context.Context, r *domain.Recipient) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRecipientRepository) FindByID(ctx context.Context, id string) (*domain.Recipient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipient), args.Error(1)
}

// echoConverter returns the markup as the "PDF" so tests can inspect what was rendered
type echoConverter struct {
	calls int
	err   error
}

func (c *echoConverter) Convert(ctx context.Context, markup string) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte(markup), nil
}

type failingPublisher struct {
	*storage.Publisher
	err error
}

func (p *failingPublisher) Publish(ctx context.Context, id string, pdf []byte) (string, error) {
	return "", p.err
}

type unreachablePublisher struct {
	*storage.Publisher
	err error
}

func (p *unreachablePublisher) Exists(ctx context.Context, id string) (bool, error) {
	return false, p.err
}

const testBaseURL = "https://certs.s3.us-east-1.amazonaws.com"

var issuedAt = time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

type fixture struct {
	repo      *persistence.MemoryRecipientRepository
	store     *storage.MemoryObjectStorage
	converter *echoConverter
	registry  *prometheus.Registry
	spans     *tracetest.SpanRecorder
	service   *IssuanceService
}

func newFixture(t *testing.T, policy domain.Policy) *fixture {
	t.Helper()
	f := &fixture{
		repo:      persistence.NewMemoryRecipientRepository(),
		store:     storage.NewMemoryObjectStorage(),
		converter: &echoConverter{},
		registry:  prometheus.NewRegistry(),
		spans:     tracetest.NewSpanRecorder(),
	}
	f.store.BaseURL = testBaseURL

	f.service = NewIssuanceService(
		f.repo,
		infra.NewAssetSource(),
		infra.NewTemplateEngine(),
		f.converter,
		storage.NewPublisher(f.store, zaptest.NewLogger(t)),
		WithPolicy(policy),
		WithClock(func() time.Time { return issuedAt }),
		WithMetrics(NewMetrics(f.registry)),
		WithTracerProvider(trace.NewTracerProvider(trace.WithSpanProcessor(f.spans))),
		WithLogger(zaptest.NewLogger(t)),
	)
	return f
}

func (f *fixture) artifact(t *testing.T, key string) string {
	t.Helper()
	obj, ok := f.store.Get(key)
	require.True(t, ok, "artifact %s not published", key)
	return string(obj.Data)
}

func TestIssuanceService_Issue_FirstIssuance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultPolicy())

	result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	require.NoError(t, err)

	assert.Equal(t, "Certificate created!", result.Message)
	assert.Equal(t, "https://certs.s3.us-east-1.amazonaws.com/u1.pdf", result.URL)
	assert.True(t, result.RecipientSaved)

	stored, err := f.repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.Recipient{ID: "u1", Name: "Ana", Grade: "A+"}, stored)

	obj, ok := f.store.Get("u1.pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.True(t, obj.Public)

	markup := f.artifact(t, "u1.pdf")
	assert.Contains(t, markup, "Ana")
	assert.Contains(t, markup, "A+")
	assert.Contains(t, markup, "05/03/2024")
	assert.Contains(t, markup, "data:image/png;base64,")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.Issuances.WithLabelValues(OutcomeIssued)))
	require.Len(t, f.spans.Ended(), 1)
	assert.Equal(t, "certificate.Issue", f.spans.Ended()[0].Name())
}

func TestIssuanceService_Issue_RepeatUnderDedup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultPolicy())

	_, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	require.NoError(t, err)

	result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana2", Grade: "B"})
	require.NoError(t, err)
	assert.False(t, result.RecipientSaved)
	assert.Equal(t, "https://certs.s3.us-east-1.amazonaws.com/u1.pdf", result.URL)

	// Record keeps the first submission
	stored, err := f.repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Name)
	assert.Equal(t, "A+", stored.Grade)
	assert.Equal(t, 1, f.repo.Saves())

	// Artifact is replaced with the new render
	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, 2, f.store.Puts())
	markup := f.artifact(t, "u1.pdf")
	assert.Contains(t, markup, "Ana2")
	assert.NotContains(t, markup, "A+")
}

func TestIssuanceService_Issue_RepeatUnconditional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.Policy{Dedup: domain.DedupUnconditional, Mode: domain.ModePublish})

	_, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	require.NoError(t, err)
	result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana2", Grade: "B"})
	require.NoError(t, err)
	assert.True(t, result.RecipientSaved)

	stored, err := f.repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.Recipient{ID: "u1", Name: "Ana2", Grade: "B"}, stored)
	assert.Equal(t, 1, f.repo.Len())
	assert.Contains(t, f.artifact(t, "u1.pdf"), "Ana2")
}

func TestIssuanceService_Issue_RecordOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.Policy{Dedup: domain.DedupSkipExisting, Mode: domain.ModeRecordOnly})

	result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	require.NoError(t, err)

	assert.Equal(t, "Certificate created!", result.Message)
	assert.Empty(t, result.URL)
	assert.Equal(t, 1, f.repo.Len())
	assert.Zero(t, f.converter.calls)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.Issuances.WithLabelValues(OutcomeRecorded)))
}

func TestIssuanceService_Issue_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     IssueRequest
		message string
	}{
		{"missing id", IssueRequest{Name: "Ana", Grade: "A+"}, "id is required"},
		{"missing name", IssueRequest{ID: "u1", Grade: "A+"}, "name is required"},
		{"missing grade", IssueRequest{ID: "u1", Name: "Ana"}, "grade is required"},
		{"all missing", IssueRequest{}, "id is required; name is required; grade is required"},
		{"blank name", IssueRequest{ID: "u1", Name: "   ", Grade: "A+"}, "Recipient name cannot be empty"},
		{"grade too long", IssueRequest{ID: "u1", Name: "Ana", Grade: strings.Repeat("A", 65)}, "grade must be at most 64 characters"},
		{"id too long", IssueRequest{ID: strings.Repeat("u", 256), Name: "Ana", Grade: "A"}, "id must be at most 255 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.DefaultPolicy())

			result, err := f.service.Issue(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)

			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "INVALID_INPUT", domainErr.Code)
			assert.Contains(t, domainErr.Message, tt.message)

			var stageErr *StageError
			assert.False(t, errors.As(err, &stageErr))

			// No side effects
			assert.Zero(t, f.repo.Len())
			assert.Zero(t, f.converter.calls)
			assert.Zero(t, f.store.Len())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.Issuances.WithLabelValues(OutcomeInvalid)))
		})
	}
}

func TestIssuanceService_Issue_StoreFailures(t *testing.T) {
	ctx := context.Background()
	storeErr := errors.New("table unavailable")

	t.Run("exists failure aborts before save", func(t *testing.T) {
		repo := new(MockRecipientRepository)
		repo.On("Exists", mock.Anything, "u1").Return(false, storeErr)
		converter := &echoConverter{}
		store := storage.NewMemoryObjectStorage()

		svc := NewIssuanceService(repo, infra.NewAssetSource(), infra.NewTemplateEngine(), converter,
			storage.NewPublisher(store, nil))

		_, err := svc.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.Error(t, err)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageStore, stageErr.Stage)
		assert.ErrorIs(t, err, storeErr)

		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Zero(t, converter.calls)
		assert.Zero(t, store.Len())
	})

	t.Run("save failure aborts the pipeline", func(t *testing.T) {
		repo := new(MockRecipientRepository)
		repo.On("Exists", mock.Anything, "u1").Return(false, nil)
		repo.On("Save", mock.Anything, &domain.Recipient{ID: "u1", Name: "Ana", Grade: "A+"}).Return(storeErr)
		converter := &echoConverter{}

		svc := NewIssuanceService(repo, infra.NewAssetSource(), infra.NewTemplateEngine(), converter,
			storage.NewPublisher(storage.NewMemoryObjectStorage(), nil))

		_, err := svc.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageStore, stageErr.Stage)
		assert.Zero(t, converter.calls)
		repo.AssertExpectations(t)
	})

	t.Run("existing recipient under dedup is not saved", func(t *testing.T) {
		repo := new(MockRecipientRepository)
		repo.On("Exists", mock.Anything, "u1").Return(true, nil)

		svc := NewIssuanceService(repo, infra.NewAssetSource(), infra.NewTemplateEngine(), &echoConverter{},
			storage.NewPublisher(storage.NewMemoryObjectStorage(), nil))

		_, err := svc.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestIssuanceService_Issue_NoRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("convert failure keeps the recipient record", func(t *testing.T) {
		f := newFixture(t, domain.DefaultPolicy())
		f.converter.err = infra.NewRenderError(infra.ErrCodeRenderFailed, "browser crashed", nil)

		result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.Error(t, err)
		assert.Nil(t, result)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageConvert, stageErr.Stage)

		var renderErr *infra.RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, infra.ErrCodeRenderFailed, renderErr.Code)

		exists, err := f.repo.Exists(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Zero(t, f.store.Len())
		assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.Issuances.WithLabelValues(OutcomeFailed)))
	})

	t.Run("publish failure returns no URL", func(t *testing.T) {
		repo := persistence.NewMemoryRecipientRepository()
		publishErr := errors.New("access denied")
		publisher := &failingPublisher{Publisher: storage.NewPublisher(storage.NewMemoryObjectStorage(), nil), err: publishErr}

		svc := NewIssuanceService(repo, infra.NewAssetSource(), infra.NewTemplateEngine(), &echoConverter{}, publisher)

		result, err := svc.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.Error(t, err)
		assert.Nil(t, result)

		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StagePublish, stageErr.Stage)
		assert.ErrorIs(t, err, publishErr)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("retry after failure succeeds without duplicating the record", func(t *testing.T) {
		f := newFixture(t, domain.DefaultPolicy())
		f.converter.err = errors.New("transient")

		_, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.Error(t, err)

		f.converter.err = nil
		result, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.NoError(t, err)
		assert.False(t, result.RecipientSaved)
		assert.Equal(t, 1, f.repo.Len())
		assert.Equal(t, 1, f.store.Len())
	})
}

func TestIssuanceService_Issue_RenderFailure(t *testing.T) {
	f := newFixture(t, domain.DefaultPolicy())
	f.service.assets = infra.NewAssetSourceFS(emptyFS{}, "")

	_, err := f.service.Issue(context.Background(), IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRender, stageErr.Stage)
	assert.Zero(t, f.converter.calls)
}

func TestIssuanceService_Lookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.DefaultPolicy())

	_, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
	require.NoError(t, err)

	resp, err := f.service.Lookup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &RecipientResponse{
		ID:    "u1",
		Name:  "Ana",
		Grade: "A+",
		URL:   "https://certs.s3.us-east-1.amazonaws.com/u1.pdf",
	}, resp)

	_, err = f.service.Lookup(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.service.Lookup(ctx, " ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestIssuanceService_Lookup_UnpublishedHasNoURL(t *testing.T) {
	ctx := context.Background()

	t.Run("record only", func(t *testing.T) {
		f := newFixture(t, domain.Policy{Dedup: domain.DedupSkipExisting, Mode: domain.ModeRecordOnly})

		_, err := f.service.Issue(ctx, IssueRequest{ID: "u1", Name: "Ana", Grade: "A+"})
		require.NoError(t, err)

		resp, err := f.service.Lookup(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", resp.Name)
		assert.Empty(t, resp.URL)
		assert.Zero(t, f.store.Len())
	})

	t.Run("after convert failure", func(t *testing.T) {
		f := newFixture(t, domain.DefaultPolicy())
		f.converter.err = errors.New("browser crashed")

		_, err := f.service.Issue(ctx, IssueRequest{ID: "u2", Name: "Bo", Grade: "B"})
		require.Error(t, err)

		resp, err := f.service.Lookup(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "Bo", resp.Name)
		assert.Empty(t, resp.URL)

		// A later successful issuance publishes the URL
		f.converter.err = nil
		_, err = f.service.Issue(ctx, IssueRequest{ID: "u2", Name: "Bo", Grade: "B"})
		require.NoError(t, err)

		resp, err = f.service.Lookup(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, testBaseURL+"/u2.pdf", resp.URL)
	})

	t.Run("storage check failure", func(t *testing.T) {
		repo := persistence.NewMemoryRecipientRepository()
		require.NoError(t, repo.Save(ctx, &domain.Recipient{ID: "u3", Name: "Cy", Grade: "C"}))
		storeErr := errors.New("bucket unreachable")
		publisher := &unreachablePublisher{Publisher: storage.NewPublisher(storage.NewMemoryObjectStorage(), nil), err: storeErr}

		svc := NewIssuanceService(repo, infra.NewAssetSource(), infra.NewTemplateEngine(), &echoConverter{}, publisher)

		_, err := svc.Lookup(ctx, "u3")
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StagePublish, stageErr.Stage)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageConvert, Err: errors.New("boom")}
	assert.Equal(t, "certificate convert stage failed: boom", err.Error())
}

// emptyFS is a file system with no files
type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
