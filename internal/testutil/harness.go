package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/app"
	"github.com/specialistvlad/sweepgrid/internal/hcl_adapter"
	"github.com/specialistvlad/sweepgrid/internal/registry"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds the logs and the run summary.
	Output string
	Err    error
	App    *app.App
	// Dir is the temporary root the files were written to.
	Dir string
}

// WriteFiles writes files, keyed by slash-separated paths relative to dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context. See RunIntegrationTestWithContext.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, nil, files, modules...)
}

// RunIntegrationTestWithContext writes files below a temporary root, where
// "tasks/..." holds manifests and "workflow/..." holds nodes, then builds and
// runs an App over them with a file cache in the same root. mutate, when
// given, adjusts the configuration first. A startup error is returned in Err
// with a nil App.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, mutate func(*app.Config), files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tasks"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workflow"), 0o755))
	WriteFiles(t, root, files)

	cfg := app.Config{
		WorkflowPath:       filepath.Join(root, "workflow"),
		TasksPath:          filepath.Join(root, "tasks"),
		LogLevel:           "debug",
		LogFormat:          "text",
		WorkerCount:        4,
		CacheBackend:       app.CacheFile,
		CacheDir:           filepath.Join(root, "cache"),
		ReservationTimeout: time.Minute,
		WorkDir:            filepath.Join(root, "work"),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv(LogsEnv) == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})

	testApp, err := app.NewApp(out, appConfig, hcl_adapter.NewLoader(), modules...)
	if err != nil {
		return &HarnessResult{Output: out.String(), Err: err, Dir: root}
	}
	runErr := testApp.Run(ctx)
	return &HarnessResult{Output: out.String(), Err: runErr, App: testApp, Dir: root}
}
