// probe_context.go - Shared live-browser test context for WebProbe.
// NOTE: This is NOT a test file - it contains shared test infrastructure.

package ui

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/app"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/models"
)

// MaxScenarioTestTimeout bounds a single live test, browser start included
const MaxScenarioTestTimeout = 3 * time.Minute

// ProbeTestContext holds a probe wired against a running front-end
type ProbeTestContext struct {
	T          *testing.T
	Ctx        context.Context
	Config     *common.Config
	App        *app.App
	Logger     arbor.ILogger
	ResultsDir string

	cancel context.CancelFunc
}

// NewProbeTestContext skips the test unless TEST_FRONTEND_URL points at a
// reachable front-end. Configuration is defaults plus WEBPROBE_* and
// BACKEND_PORT from the environment.
func NewProbeTestContext(t *testing.T, timeout time.Duration) *ProbeTestContext {
	t.Helper()

	frontend := os.Getenv("TEST_FRONTEND_URL")
	if frontend == "" {
		t.Skip("TEST_FRONTEND_URL not set, skipping live UI test")
	}
	if err := ping(frontend); err != nil {
		t.Skipf("front-end %s unreachable: %v", frontend, err)
	}

	config, err := common.LoadFromFiles()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	config.Frontend.BaseURL = frontend
	config.Output.ResultsBaseDir = resultsDir(t)
	config.Storage.Badger.Path = filepath.Join(t.TempDir(), "ledger")
	if err := config.Validate(); err != nil {
		t.Fatalf("Invalid configuration: %v", err)
	}

	logger := arbor.NewLogger()
	application, err := app.New(config, logger)
	if err != nil {
		t.Fatalf("Failed to initialize probe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ptc := &ProbeTestContext{
		T:          t,
		Ctx:        ctx,
		Config:     config,
		App:        application,
		Logger:     logger,
		ResultsDir: config.Output.ResultsBaseDir,
		cancel:     cancel,
	}
	t.Cleanup(ptc.cleanup)
	return ptc
}

func (ptc *ProbeTestContext) cleanup() {
	if ptc.T.Failed() {
		ptc.T.Logf("=== TEST RESULT: FAIL === (artifacts in %s)", ptc.ResultsDir)
	} else {
		ptc.T.Log("=== TEST RESULT: PASS ===")
	}
	ptc.cancel()
	if err := ptc.App.Close(); err != nil {
		ptc.T.Logf("Warning: close returned: %v", err)
	}
}

// RunScenario runs one catalogue scenario and logs its outcome
func (ptc *ProbeTestContext) RunScenario(name string) models.ScenarioResult {
	ptc.T.Helper()

	selected, err := ptc.App.Select([]string{name})
	if err != nil {
		ptc.T.Fatalf("Failed to select scenario %s: %v", name, err)
	}

	result := ptc.App.Runner.Run(ptc.Ctx, selected[0])
	ptc.T.Logf("%s: %s (url=%s, found=%v, missing=%v)", name, result.Outcome, result.FinalURL, result.Found, result.Missing)
	if result.Error != "" {
		ptc.T.Logf("%s error [%s]: %s", name, result.ErrorKind, result.Error)
	}
	if result.Excerpt != "" {
		ptc.T.Logf("%s page excerpt: %s", name, result.Excerpt)
	}
	return result
}

func ping(rawURL string) error {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(rawURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// resultsDir returns test/results/<test>-<timestamp>, or TEST_RESULTS_DIR
// when set
func resultsDir(t *testing.T) string {
	root := os.Getenv("TEST_RESULTS_DIR")
	if root == "" {
		root = filepath.Join("..", "results")
	}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return filepath.Join(root, fmt.Sprintf("%s-%s", name, time.Now().Format("20060102-150405")))
}
