package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/omr/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastStdout    string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Sheet fixtures; Vars holds the {name} substitutions for commands.
	Fixture *testutil.SheetFixture
	Vars    map[string]string

	// HTTP server and the last response it gave
	HTTPServer         *HTTPServer
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context.
func NewTestContext() (*TestContext, error) {
	workingDir, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "omr-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: workingDir,
		TempDir:    tempDir,
		EnvVars:    []string{},
		Vars:       map[string]string{"tmp": tempDir},
	}, nil
}

// Cleanup stops the server and removes the scenario's temporary files.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TempPath returns name inside the scenario's temporary directory.
func (testCtx *TestContext) TempPath(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// substituteVars replaces {name} placeholders with fixture paths.
func (testCtx *TestContext) substituteVars(s string) string {
	for name, value := range testCtx.Vars {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}
