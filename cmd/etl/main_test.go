package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/species-trend-etl/internal/adapter/tabular"
	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixturePath(t *testing.T, name string) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("..", "..", "internal", "pipeline", "testdata", name))
	require.NoError(t, err)
	return p
}

// writeManifest writes a jobs.toml into a temp dir and points the
// environment at it.
func writeManifest(t *testing.T, body string) (manifest, outDir string) {
	t.Helper()
	dir := t.TempDir()
	manifest = filepath.Join(dir, "jobs.toml")
	require.NoError(t, os.WriteFile(manifest, []byte(body), 0o600))

	outDir = filepath.Join(dir, "processed")
	t.Setenv("JOBS_FILE", manifest)
	t.Setenv("OUTPUT_DIR", outDir)
	t.Setenv("TARGET_REGION", "us-md")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("KAFKA_ENABLED", "false")
	return manifest, outDir
}

func woodThrushManifest(t *testing.T) string {
	return fmt.Sprintf("[[species]]\nname = \"wood_thrush\"\nsightings = %q\ntrends = %q\n",
		fixturePath(t, "woothr_ebd.txt"), fixturePath(t, "woothr_trends.csv"))
}

func testCommandContext(logs io.Writer) *commandContext {
	return &commandContext{
		newLogger: func(_, _ string) *slog.Logger {
			return slog.New(slog.NewTextHandler(logs, nil))
		},
		newMetrics: observability.NewMetricsForTesting,
	}
}

func execute(ctx context.Context, cc *commandContext, args ...string) (string, error) {
	cmd := newRootCommand(cc)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(context.Background(), testCommandContext(io.Discard), args...)
}

func TestRunCommand_WritesMergedCSV(t *testing.T) {
	_, outDir := writeManifest(t, woodThrushManifest(t))

	out, err := runCLI(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "wood_thrush")
	assert.Contains(t, out, "common_name")
	assert.Contains(t, out, "ok")

	records, _, err := tabular.ReadEnriched(filepath.Join(outDir, "wood_thrush_merged_data.csv"))
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestRunCommand_LoggerFromConfig(t *testing.T) {
	writeManifest(t, woodThrushManifest(t))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	var logs bytes.Buffer
	var gotLevel, gotFormat string
	cc := testCommandContext(&logs)
	cc.newLogger = func(level, format string) *slog.Logger {
		gotLevel, gotFormat = level, format
		return slog.New(slog.NewTextHandler(&logs, nil))
	}

	_, err := execute(context.Background(), cc, "run")
	require.NoError(t, err)
	assert.Equal(t, "debug", gotLevel)
	assert.Equal(t, "text", gotFormat)
	assert.Contains(t, logs.String(), "saved processed data")
}

func TestRunCommand_OutputDirFlag(t *testing.T) {
	writeManifest(t, woodThrushManifest(t))
	flagDir := filepath.Join(t.TempDir(), "elsewhere")

	_, err := runCLI(t, "run", "--output-dir", flagDir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(flagDir, "wood_thrush_merged_data.csv"))
	assert.NoError(t, err)
}

func TestRunCommand_RegionFlagOverridesManifest(t *testing.T) {
	_, outDir := writeManifest(t, "target_region = \"us-md\"\n"+woodThrushManifest(t))

	_, err := runCLI(t, "run", "--region", "USA-VA")
	require.NoError(t, err)

	records, _, err := tabular.ReadEnriched(filepath.Join(outDir, "wood_thrush_merged_data.csv"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "us-va", records[0].RegionCode)
	assert.InDelta(t, 1.5, *records[0].AbundanceMean, 1e-9)
}

func TestRunCommand_SQLiteSink(t *testing.T) {
	writeManifest(t, woodThrushManifest(t))
	dbPath := filepath.Join(t.TempDir(), "sightings.db")
	t.Setenv("SQLITE_PATH", dbPath)

	_, err := runCLI(t, "run")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRunCommand_FailedJobReturnsError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "no_state.csv")
	require.NoError(t, os.WriteFile(bad, []byte("common_name,observation_date\nWood Thrush,2023-05-20\n"), 0o600))

	writeManifest(t, woodThrushManifest(t)+fmt.Sprintf(
		"\n[[species]]\nname = \"broken\"\nsightings = %q\ntrends = %q\n", bad, fixturePath(t, "woothr_trends.csv")))

	out, err := runCLI(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 jobs failed")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "state_code")
}

func TestRunCommand_InvalidManifest(t *testing.T) {
	writeManifest(t, "[[species]]\nname = \"\"\n")

	_, err := runCLI(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}

func TestSummarizeCommand(t *testing.T) {
	_, outDir := writeManifest(t, woodThrushManifest(t))
	_, err := runCLI(t, "run")
	require.NoError(t, err)

	out, err := runCLI(t, "summarize", filepath.Join(outDir, "wood_thrush_merged_data.csv"))
	require.NoError(t, err)

	assert.Contains(t, out, "Total records: 4")
	assert.Contains(t, out, "breeding")
	assert.Contains(t, out, "prebreeding_migration")
	assert.Contains(t, out, domain.SeasonUnmatched)
	assert.Contains(t, out, "Wood Thrush")
	assert.Contains(t, out, "abundance_mean")
}

func TestSummarizeCommand_RequiresPath(t *testing.T) {
	_, err := runCLI(t, "summarize")
	require.Error(t, err)
}

func TestRenderSummary_EmptyStats(t *testing.T) {
	out := renderSummary(domain.Summarize(nil))
	assert.Contains(t, out, "Total records: 0")
	assert.True(t, strings.Contains(out, "NaN"))
}

func TestServeCommand_DrainsRunBeforeClosingSinks(t *testing.T) {
	_, outDir := writeManifest(t, woodThrushManifest(t))
	dbPath := filepath.Join(t.TempDir(), "sightings.db")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")

	var logs syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := execute(ctx, testCommandContext(&logs), "serve")
		errCh <- err
	}()

	csvPath := filepath.Join(outDir, "wood_thrush_merged_data.csv")
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "pipeline finished")
	}, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
	assert.Contains(t, logs.String(), "shutdown complete")
	assert.NotContains(t, logs.String(), "sink close error")
	assert.NotContains(t, logs.String(), "pipeline still running")

	records, _, err := tabular.ReadEnriched(csvPath)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestWaitForPipeline(t *testing.T) {
	done := make(chan struct{})
	close(done)
	assert.True(t, waitForPipeline(context.Background(), done))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, waitForPipeline(ctx, make(chan struct{})))
}

// syncBuffer guards a bytes.Buffer shared between the serve goroutines and
// the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
