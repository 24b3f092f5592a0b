package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/models"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(dir, "ledger")
	cfg.Output.ResultsBaseDir = filepath.Join(dir, "results")
	cfg.Backend.RateLimit = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *common.Config) *App {
	t.Helper()
	a, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func pointBackendAt(t *testing.T, cfg *common.Config, serverURL string) {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	cfg.Backend.Host = u.Hostname()
	cfg.Backend.Port = port
}

func TestNew_LoadsCatalogue(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	names := make([]string, 0, len(a.ListScenarios()))
	for _, sc := range a.ListScenarios() {
		names = append(names, sc.Name)
	}
	assert.Equal(t, []string{
		"signup",
		"signup-dashboard-redirect",
		"login",
		"login-invalid",
		"dashboard",
		"dashboard-unauthenticated",
	}, names)
}

func TestNew_BadScenarioDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenarios.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := New(cfg, arbor.NewLogger())
	assert.ErrorContains(t, err, "failed to load scenarios")
}

func TestSelect(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenarios.Enabled = []string{"login"}
	a := newTestApp(t, cfg)

	selected, err := a.Select(nil)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "login", selected[0].Name)

	selected, err = a.Select([]string{"dashboard", "signup"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "signup", selected[0].Name)

	_, err = a.Select([]string{"checkout"})
	assert.ErrorContains(t, err, "unknown scenario(s): checkout")
}

func TestRunOnce_ProvisioningFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Email already exists"}`))
	}))
	defer server.Close()

	cfg := testConfig(t)
	pointBackendAt(t, cfg, server.URL)
	a := newTestApp(t, cfg)

	run, err := a.RunOnce(context.Background(), []string{"login"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, int32(1), calls.Load())

	require.Len(t, run.Results, 1)
	result := run.Results[0]
	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindProvisioning, result.ErrorKind)
	assert.False(t, result.Provisioned)

	assert.NotEmpty(t, run.ReportDir)
	assert.FileExists(t, filepath.Join(run.ReportDir, "summary.md"))
	assert.FileExists(t, filepath.Join(run.ReportDir, "result.json"))

	runs, err := a.Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	accounts, err := a.Accounts(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, accounts, "refused signups are not recorded")

	count, err := a.AccountCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	stored, err := a.Run(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, models.ErrorKindProvisioning, stored.Results[0].ErrorKind)

	_, err = a.Run(context.Background(), "run_missing")
	assert.ErrorContains(t, err, "run not found")
}

func TestAccountCount_CountsLedger(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	storage := a.StorageManager.AccountStorage()
	for i := range 3 {
		require.NoError(t, storage.SaveAccount(context.Background(), &models.AccountRecord{
			Username: "seleniumuser" + strconv.Itoa(i),
			Email:    "seleniumuser" + strconv.Itoa(i) + "@example.com",
		}))
	}

	count, err := a.AccountCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunOnce_UnknownScenario(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	_, err := a.RunOnce(context.Background(), []string{"nope"})
	assert.ErrorContains(t, err, "unknown scenario")
	assert.NotErrorIs(t, err, ErrRunFailed)
}

func TestRunScheduled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(t)
	pointBackendAt(t, cfg, server.URL)
	cfg.Schedule.Cron = "@every 1h"
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunScheduled(ctx, []string{"dashboard"}) }()

	// the immediate run lands in the ledger
	require.Eventually(t, func() bool {
		runs, err := a.Runs(context.Background(), 0)
		return err == nil && len(runs) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("RunScheduled did not return after cancel")
	}

	assert.Equal(t, 1, a.Scheduler.Status().Runs)
}

func TestRunScheduled_Errors(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.ErrorContains(t, a.RunScheduled(context.Background(), nil), "no schedule configured")

	a.Config.Schedule.Cron = "not a schedule"
	assert.Error(t, a.RunScheduled(context.Background(), nil))
}

func TestClose_KeepsLedgerOnDisk(t *testing.T) {
	a, err := New(testConfig(t), arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, statErr := os.Stat(a.Config.Storage.Badger.Path)
	assert.NoError(t, statErr)
}
