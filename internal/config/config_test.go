package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobTOML = `
workers = 4
sort_targets = true

[distributed]
path = "stock.xlsx"
sheet = "Q1"
region = "Region"
zone = "Zone"
woreda = "Woreda"
period = "Month"
metrics = ["BCG Distributed", "Penta Distributed"]

[administered]
path = "dhis2.csv"
region = "Region Name"
zone = "Zone"
woreda = "Woreda"
period = "Period"
metrics = ["BCG Administered"]

[thresholds]
woreda = 75

[output]
merged = "merged.xlsx"
unmatched = "unmatched.csv"

[utilization.antigens.OPV]
unacceptable = 1.0
acceptable = 0.85
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadJob(t *testing.T) {
	t.Setenv(EnvRegionThreshold, "")
	t.Setenv(EnvZoneThreshold, "88")

	job, err := LoadJob(writeFile(t, "job.toml", jobTOML))
	require.NoError(t, err)

	assert.Equal(t, 4, job.Workers)
	assert.True(t, job.SortTargets)
	assert.Equal(t, "stock.xlsx", job.Distributed.Path)
	assert.Equal(t, "Q1", job.Distributed.Sheet)
	assert.Equal(t, "Region Name", job.Administered.Roles().Region)
	assert.Equal(t, []string{"BCG Distributed", "Penta Distributed"}, job.Distributed.Roles().Metrics)

	assert.Equal(t, 90.0, job.Thresholds.Region)
	assert.Equal(t, 88.0, job.Thresholds.Zone, "environment override")
	assert.Equal(t, 75.0, job.Thresholds.Woreda, "job value")

	assert.Equal(t, 0.85, job.Utilization.For("OPV").Acceptable)
	assert.Equal(t, 0.50, job.Utilization.For("BCG").Acceptable, "defaults are kept")
	assert.Equal(t, "merged.xlsx", job.Output.Merged)

	opts := job.ResolveOptions()
	assert.Equal(t, 4, opts.Workers)
	assert.True(t, opts.SortTargets)
}

func TestLoadJobErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "threshold = 3\n" + jobTOML, "unknown keys threshold"},
		{"misspelled table key", strings.Replace(jobTOML, "period = \"Month\"", "periods = \"Month\"", 1), "distributed.periods"},
		{"no source", "[administered]\npath = \"a.csv\"\n", "distributed"},
		{"query without database", strings.Replace(jobTOML, `path = "dhis2.csv"`, `query = "SELECT 1"`, 1), "database"},
		{"threshold out of range", strings.Replace(jobTOML, "woreda = 75", "woreda = 175", 1), "woreda threshold"},
		{"bad syntax", "workers = ", "failed to read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJob(writeFile(t, "job.toml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	body := "# comment\nRECONCILE_TEST_A=one\nexport RECONCILE_TEST_B=\"two words\"\nRECONCILE_TEST_C=preset\nnot a pair\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(body), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	t.Setenv("RECONCILE_TEST_A", "")
	t.Setenv("RECONCILE_TEST_B", "")
	t.Setenv("RECONCILE_TEST_C", "kept")

	require.NoError(t, LoadEnv())
	assert.Equal(t, "one", os.Getenv("RECONCILE_TEST_A"))
	assert.Equal(t, "two words", os.Getenv("RECONCILE_TEST_B"))
	assert.Equal(t, "kept", os.Getenv("RECONCILE_TEST_C"))
}

func TestEnvGetters(t *testing.T) {
	t.Setenv("RECONCILE_TEST_INT", "12")
	t.Setenv("RECONCILE_TEST_FLOAT", "bad")
	t.Setenv("RECONCILE_TEST_BOOL", "yes")

	assert.Equal(t, 12, GetEnvInt("RECONCILE_TEST_INT", 1))
	assert.Equal(t, 2.5, GetEnvFloat("RECONCILE_TEST_FLOAT", 2.5))
	assert.True(t, GetEnvBool("RECONCILE_TEST_BOOL", false))
	assert.Equal(t, "fallback", GetEnv("RECONCILE_TEST_UNSET", "fallback"))
}

func TestThresholdsFromEnv(t *testing.T) {
	t.Setenv(EnvRegionThreshold, "")
	t.Setenv(EnvZoneThreshold, "")
	t.Setenv(EnvWoredaThreshold, "70")

	th := ThresholdsFromEnv()
	assert.Equal(t, 90.0, th.Region)
	assert.Equal(t, 85.0, th.Zone)
	assert.Equal(t, 70.0, th.Woreda)
}
