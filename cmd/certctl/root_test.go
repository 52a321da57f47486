package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/certify/backend/internal/bootstrap"
	"github.com/certify/backend/internal/infrastructure/config"
	"github.com/certify/backend/internal/infrastructure/persistence"
	"github.com/certify/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubConverter struct{}

func (stubConverter) Convert(ctx context.Context, markup string) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

// testDeps shares one recipient store and one object store across
// invocations, like real backends
func testDeps() deps {
	recipients := persistence.NewMemoryRecipientRepository()
	objects := storage.NewMemoryObjectStorage()
	objects.BaseURL = "https://certs.example.com"
	return deps{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				App: config.AppConfig{Name: "certificate-service"},
				Storage: config.StorageConfig{
					Backend:       config.StorageBackendMemory,
					PublicBaseURL: "https://certs.example.com",
				},
				Recipients: config.RecipientsConfig{Backend: config.RecipientBackendMemory},
			}, nil
		},
		newApp: func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*bootstrap.App, error) {
			return bootstrap.New(ctx, cfg, log,
				bootstrap.WithConverter(stubConverter{}),
				bootstrap.WithRecipientRepository(recipients),
				bootstrap.WithObjectStorage(objects),
			)
		},
	}
}

func run(d deps, args ...string) (string, error) {
	cmd := newRootCmd(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIssueAndLookup(t *testing.T) {
	d := testDeps()

	out, err := run(d, "issue", "--id", "u1", "--name", "Ana", "--grade", "A+")
	require.NoError(t, err)
	assert.Equal(t, "message: Certificate created!\nurl: https://certs.example.com/u1.pdf\n", out)

	out, err = run(d, "lookup", "u1", "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u1","name":"Ana","grade":"A+","url":"https://certs.example.com/u1.pdf"}`, out)
}

func TestIssue_MissingFlag(t *testing.T) {
	_, err := run(testDeps(), "issue", "--id", "u1", "--name", "Ana")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grade")
}

func TestLookup_Errors(t *testing.T) {
	d := testDeps()

	_, err := run(d, "lookup")
	require.Error(t, err)

	_, err = run(d, "lookup", "nobody")
	require.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(testDeps(), "issue", "--id", "u1", "--name", "Ana", "--grade", "A", "--output", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml")
}

func TestBatch(t *testing.T) {
	t.Run("issues every row from stdin", func(t *testing.T) {
		d := testDeps()
		cmd := newRootCmd(d)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader("id,name,grade\nu1,Ana,A+\nu2,Bo,B\n"))
		cmd.SetArgs([]string{"batch", "--output", "json"})

		require.NoError(t, cmd.Execute())
		assert.JSONEq(t, `{
			"succeeded": 2, "failed": 0, "skipped": 0,
			"results": [
				{"line": 2, "id": "u1", "url": "https://certs.example.com/u1.pdf"},
				{"line": 3, "id": "u2", "url": "https://certs.example.com/u2.pdf"}
			]
		}`, out.String())

		out2, err := run(d, "lookup", "u2")
		require.NoError(t, err)
		assert.Contains(t, out2, "name: Bo")
	})

	t.Run("reports failed rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recipients.csv")
		require.NoError(t, os.WriteFile(path, []byte("id;name;grade\nu1;Ana;A\nu2;;B\n"), 0o600))

		out, err := run(testDeps(), "batch", "--file", path, "--delimiter", ";")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, out, "line 2 (u1): https://certs.example.com/u1.pdf")
		assert.Contains(t, out, "line 3 (u2): failed:")
		assert.Contains(t, out, "summary: 1 succeeded, 1 failed, 0 skipped")
	})

	t.Run("rejects a list without required columns", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("id,name\nu1,Ana\n"), 0o600))

		_, err := run(testDeps(), "batch", "--file", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grade")
	})
}

func TestParseDelimiter(t *testing.T) {
	r, err := parseDelimiter(`\t`)
	require.NoError(t, err)
	assert.Equal(t, '\t', r)

	r, err = parseDelimiter(";")
	require.NoError(t, err)
	assert.Equal(t, ';', r)

	_, err = parseDelimiter("ab")
	assert.Error(t, err)
}
