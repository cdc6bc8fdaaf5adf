package application

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqdesc-backupper/internal/config"
	"bqdesc-backupper/internal/description"
	appErrors "bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/logging"
	"bqdesc-backupper/internal/store"
	"bqdesc-backupper/internal/warehouse"
)

type stubWarehouse struct{}

func (stubWarehouse) GetDatasetDescription(ctx context.Context, datasetID string) (*description.DatasetDescription, error) {
	return description.NewDatasetDescription("proj", datasetID, "described"), nil
}

func (stubWarehouse) GetTableDescription(ctx context.Context, datasetID, tableID string) (*description.TableDescription, error) {
	return nil, appErrors.NewNotFoundError("table not found", nil)
}

func (stubWarehouse) WriteDatasetDescription(ctx context.Context, d *description.DatasetDescription) error {
	return nil
}

func (stubWarehouse) WriteTableDescription(ctx context.Context, t *description.TableDescription) error {
	return nil
}

func (stubWarehouse) ListDatasetIDs(ctx context.Context, filter *warehouse.Filter) ([]string, error) {
	return []string{"sales"}, nil
}

func (stubWarehouse) ListTableIDs(ctx context.Context, datasetID string, filter *warehouse.Filter) ([]string, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Project = "proj"
	cfg.Store.Backend = store.BackendLocal
	cfg.Store.Local.BasePath = t.TempDir()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	app, err := New(testConfig(t), WithLogger(logging.NewDiscardLogger()))
	require.NoError(t, err)

	assert.NotEmpty(t, app.RunID())
	assert.NotNil(t, app.GetLogger())
	assert.False(t, app.notifier.IsEnabled())
	assert.Equal(t, "proj", app.Config().Project)
}

func TestContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timeout = time.Minute
	app, err := New(cfg, WithLogger(logging.NewDiscardLogger()))
	require.NoError(t, err)

	ctx, cancel := app.Context(context.Background())
	defer cancel()

	assert.Equal(t, app.RunID(), logging.GetRunIDFromContext(ctx))
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	cancel()
	assert.Error(t, ctx.Err())
}

func TestExecutor_BacksUpToLocalStore(t *testing.T) {
	app, err := New(testConfig(t), WithLogger(logging.NewDiscardLogger()), WithWarehouse(stubWarehouse{}))
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	executor, err := app.Executor(ctx)
	require.NoError(t, err)

	summary, err := executor.BackupAll(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Success())
	assert.Equal(t, 1, summary.Counts["ok"])

	st, err := app.Store(ctx)
	require.NoError(t, err)
	got, err := st.GetDatasetDescription(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, "described", got.Description)
}

func TestHandleError_AlertsAndHints(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Slack.Enabled = true
	cfg.Slack.WebhookURL = server.URL

	var errOut bytes.Buffer
	app, err := New(cfg, WithLogger(logging.NewDiscardLogger()), WithErrorOutput(&errOut))
	require.NoError(t, err)

	ctx, cancel := app.Context(context.Background())
	defer cancel()

	cause := appErrors.NewAppError(appErrors.ErrorTypePermission, "access denied", nil)
	returned := app.HandleError(ctx, "restore all", cause)

	assert.Equal(t, cause, returned)
	assert.Contains(t, errOut.String(), "Error: permission: access denied")
	assert.Contains(t, errOut.String(), "Troubleshooting hints")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0]["text"], "bqdesc-backupper restore all failed")

	assert.Nil(t, app.HandleError(ctx, "restore all", nil))
}

func TestClose_WithoutAdapters(t *testing.T) {
	app, err := New(testConfig(t), WithLogger(logging.NewDiscardLogger()))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}
