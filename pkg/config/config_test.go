package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-insider/pkg/ingest"
	"github.com/dd0wney/cluso-insider/pkg/logging"
	"github.com/dd0wney/cluso-insider/pkg/visualization"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threatgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.Training.Epochs)
	assert.Equal(t, 0.01, cfg.Training.LearningRate)
	assert.Equal(t, 100, cfg.Ranking.TopK)
	assert.True(t, cfg.Calibration.InjectPositives)
	assert.Equal(t, 3, cfg.Calibration.FallbackCount)
	assert.Equal(t, 0.8, cfg.Calibration.BoostAmount)
	assert.Equal(t, ingest.DefaultLimits(), cfg.Data.Limits)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
data:
  source: s3
  s3:
    bucket: cert-logs
    prefix: r3.2/
    region: us-east-1
  limits:
    http: 500
training:
  epochs: 10
  timeout: 30s
calibration:
  boost_known: false
export:
  layout: force
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, SourceS3, cfg.Data.Source)
	assert.Equal(t, "cert-logs", cfg.Data.S3.Bucket)
	assert.Equal(t, 500, cfg.Data.Limits.HTTP)
	assert.Equal(t, 50000, cfg.Data.Limits.Logon, "unset keys keep defaults")
	assert.Equal(t, 10, cfg.Training.Epochs)
	assert.Equal(t, 30*time.Second, cfg.Training.Timeout)
	assert.False(t, cfg.Calibration.BoostKnown)
	assert.True(t, cfg.Calibration.InjectPositives)
	assert.Equal(t, visualization.LayoutForce, cfg.Export.Layout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("THREATGRAPH_TRAINING_EPOCHS", "7")
	t.Setenv("THREATGRAPH_RANKING_TOP_K", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Training.Epochs)
	assert.Equal(t, 5, cfg.Ranking.TopK)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"unknown source", func(c *Config) { c.Data.Source = "ftp" }},
		{"zero epochs", func(c *Config) { c.Training.Epochs = 0 }},
		{"zero learning rate", func(c *Config) { c.Training.LearningRate = 0 }},
		{"zero top k", func(c *Config) { c.Ranking.TopK = 0 }},
		{"negative limit", func(c *Config) { c.Data.Limits.Device = -1 }},
		{"unknown layout", func(c *Config) { c.Export.Layout = "spiral" }},
		{"s3 without bucket", func(c *Config) { c.Data.Source = SourceS3 }},
		{"dir without path", func(c *Config) { c.Data.Dir = "" }},
		{"no ground truth", func(c *Config) { c.GroundTruth.Files = nil }},
		{"boost above one", func(c *Config) { c.Calibration.BoostAmount = 1.5 }},
		{"fallback of zero", func(c *Config) { c.Calibration.FallbackCount = 0 }},
		{"negative timeout", func(c *Config) { c.Training.Timeout = -time.Second }},
		{"layout without canvas", func(c *Config) { c.Export.Layout = "circular"; c.Export.Width = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateSkipsDisabledSteps(t *testing.T) {
	cfg := Default()
	cfg.Calibration.InjectPositives = false
	cfg.Calibration.FallbackCount = 0
	cfg.Calibration.BoostKnown = false
	cfg.Calibration.BoostAmount = 2
	cfg.GroundTruth.Files = nil
	cfg.GroundTruth.PostgresURL = "postgres://localhost/cert"
	assert.NoError(t, cfg.Validate())
}

func TestDump(t *testing.T) {
	cfg := Default()
	cfg.Training.Timeout = time.Minute

	out, err := cfg.Dump()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	training, ok := decoded["training"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 25, training["epochs"])
	assert.Equal(t, "1m0s", training["timeout"])
	assert.NotContains(t, string(out), "postgres_url")
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Training.Epochs = 3
	cfg.Training.Hidden = 8
	cfg.Calibration.BoostKnown = false
	cfg.Data.SyntheticSeed = 99

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Epochs)
	assert.Equal(t, 8, opts.Model.Hidden)
	assert.Equal(t, 1, opts.Model.InputDim)
	assert.False(t, opts.Policy.BoostKnown)
	assert.True(t, opts.Policy.InjectPositives)
	assert.Equal(t, uint64(99), opts.Synthetic.Seed)
	assert.Nil(t, opts.Layout)

	cfg.Export.Layout = visualization.LayoutTiered
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.NotNil(t, opts.Layout)
}

func TestOpenerAndSources(t *testing.T) {
	cfg := Default()
	opener, err := cfg.Opener(t.Context())
	require.NoError(t, err)
	assert.Equal(t, cfg.Data.Dir, opener.Location())

	sources := cfg.FileSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "model/answers/r3.2-1.csv", sources[0].Name())
}

func TestRuntimeSyntheticOnly(t *testing.T) {
	cfg := Default()
	cfg.Training.Epochs = 2

	rt, err := cfg.Runtime(t.Context(), true, nil, nil)
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Ping)

	report := rt.Analyzer.Run(t.Context())
	require.True(t, report.OK(), report.Message)
	assert.Equal(t, "synthetic", report.DataSource)
	assert.Len(t, report.TrainingLossCurve, 2)
}

func TestRuntimeSkipsUnavailableDatabase(t *testing.T) {
	cfg := Default()
	cfg.Training.Epochs = 1
	cfg.GroundTruth.PostgresURL = "postgres://localhost:notaport/cert"

	var buf bytes.Buffer
	rt, err := cfg.Runtime(t.Context(), true, logging.NewJSONLogger(&buf, logging.WarnLevel), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Ping, "no pool means no database readiness check")
	assert.Contains(t, buf.String(), "ground-truth database unavailable")
	assert.True(t, rt.Analyzer.Run(t.Context()).OK())
}
