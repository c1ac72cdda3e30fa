package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igfeedprobe/internal/fakeig"
	"igfeedprobe/pkg/config"
	"igfeedprobe/pkg/history"
	"igfeedprobe/pkg/logger"
	"igfeedprobe/pkg/report"
	"igfeedprobe/pkg/ui"
)

func investigateConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Instagram.Username = "prober"
	cfg.Instagram.Password = "secret"
	cfg.Instagram.SessionFile = filepath.Join(dir, "session.json")
	cfg.Instagram.Timeout = 5 * time.Second
	cfg.Instagram.RequestsPerMinute = 1000
	cfg.Probe.PageDelay = 0
	cfg.Probe.VariantDelay = 0
	cfg.Probe.OutputDir = filepath.Join(dir, "results")
	cfg.Retry.Enabled = false
	cfg.History.Path = filepath.Join(dir, "results", "history.db")
	return cfg
}

func useFakeAPI(t *testing.T) *fakeig.Server {
	t.Helper()
	api := fakeig.New("radionewzealand")
	t.Cleanup(api.Close)

	previous := apiURL
	apiURL = api.URL()
	t.Cleanup(func() { apiURL = previous })

	ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(os.Stderr) })
	return api
}

func TestInvestigateEndToEnd(t *testing.T) {
	api := useFakeAPI(t)
	cfg := investigateConfig(t)
	log := logger.NewTestLogger()
	ctx := context.Background()

	client, err := login(ctx, cfg, log)
	require.NoError(t, err)
	assert.Equal(t, 1, api.Logins())

	var out bytes.Buffer
	rec, err := investigate(ctx, client, cfg, log, &out)
	require.NoError(t, err)
	logout(client, log)
	assert.Equal(t, 1, api.Logouts())

	assert.Equal(t, report.StatusSuccess, rec.Recommendation.Status)
	assert.Equal(t, []string{"feed_view_mode", "combined"}, rec.SuccessfulVariants)
	assert.True(t, rec.Recommendation.ProfileConfirmed)

	text := out.String()
	assert.Equal(t, report.Render(rec), text)
	assert.Contains(t, text, "INSTAGRAM FOLLOWING FEED INVESTIGATION RESULTS")
	assert.Contains(t, text, "Endpoint exists: No")

	assert.FileExists(t, filepath.Join(cfg.Probe.OutputDir, report.ResultsFile))
	saved, err := os.ReadFile(filepath.Join(cfg.Probe.OutputDir, report.ReportFile))
	require.NoError(t, err)
	assert.Equal(t, text, string(saved))
	assert.True(t, log.HasMessage("Saved artifacts"))

	store, err := history.Open(cfg.History.Path, logger.NewNopLogger())
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.StatusSuccess, runs[0].Status)
	assert.Equal(t, "radionewzealand", runs[0].PrimaryAuthor)
	assert.Equal(t, []string{"feed_view_mode", "combined"}, runs[0].SuccessfulVariants)
}

func TestInvestigateWithoutHistory(t *testing.T) {
	useFakeAPI(t)
	cfg := investigateConfig(t)
	cfg.History.Enabled = false
	log := logger.NewTestLogger()

	client, err := login(context.Background(), cfg, log)
	require.NoError(t, err)

	_, err = investigate(context.Background(), client, cfg, log, io.Discard)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.Probe.OutputDir, report.ResultsFile))
	assert.NoFileExists(t, cfg.History.Path)
}

func TestInvestigateAbortsOnExpiredSession(t *testing.T) {
	api := useFakeAPI(t)
	cfg := investigateConfig(t)
	log := logger.NewTestLogger()

	client, err := login(context.Background(), cfg, log)
	require.NoError(t, err)

	api.SetErrorResponse("feed/timeline/", 403)
	before := api.RequestCount()

	var out bytes.Buffer
	_, err = investigate(context.Background(), client, cfg, log, &out)
	require.Error(t, err)
	assert.Equal(t, 1, api.RequestCount()-before, "no step may run after the baseline is rejected")
	assert.Empty(t, out.String())
	assert.NoFileExists(t, filepath.Join(cfg.Probe.OutputDir, report.ResultsFile))
	assert.True(t, log.HasMessage("Probe run failed"))
}

func TestLoginFailure(t *testing.T) {
	api := useFakeAPI(t)
	api.SetErrorResponse("accounts/login/", 500)
	cfg := investigateConfig(t)

	_, err := login(context.Background(), cfg, logger.NewTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}
