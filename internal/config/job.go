package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/epi-triangulate/internal/engine"
	import_pkg "github.com/epi-triangulate/internal/import"
	"github.com/epi-triangulate/internal/utilization"
)

// TableConfig describes one input table and the roles of its columns.
type TableConfig struct {
	import_pkg.Source
	Region  string   `toml:"region"`
	Zone    string   `toml:"zone"`
	Woreda  string   `toml:"woreda"`
	Period  string   `toml:"period"`
	Metrics []string `toml:"metrics"`
}

// Roles returns the column roles of the table.
func (tc TableConfig) Roles() engine.Roles {
	return engine.Roles{
		Region:  tc.Region,
		Zone:    tc.Zone,
		Woreda:  tc.Woreda,
		Period:  tc.Period,
		Metrics: tc.Metrics,
	}
}

// OutputConfig names the files and table a merge run writes.
type OutputConfig struct {
	Merged    string `toml:"merged"`
	Unmatched string `toml:"unmatched"`
	Table     string `toml:"table"`
}

// JobConfig is a reconciliation job read from a TOML file:
//
//	database = "postgres://localhost/immunization"
//	workers = 4
//
//	[distributed]
//	path = "stock.xlsx"
//	region = "Region"
//	zone = "Zone"
//	woreda = "Woreda"
//	period = "Month"
//	metrics = ["BCG Distributed"]
//
//	[administered]
//	query = "SELECT * FROM dhis2_export"
//	...
//
//	[thresholds]
//	woreda = 75
type JobConfig struct {
	Database     string             `toml:"database"`
	Workers      int                `toml:"workers"`
	SortTargets  bool               `toml:"sort_targets"`
	Distributed  TableConfig        `toml:"distributed"`
	Administered TableConfig        `toml:"administered"`
	Thresholds   engine.Thresholds  `toml:"thresholds"`
	Output       OutputConfig       `toml:"output"`
	Utilization  utilization.Lookup `toml:"utilization"`
}

// DefaultJob returns a job with the environment's thresholds and the default utilization bounds.
func DefaultJob() *JobConfig {
	return &JobConfig{
		Workers:     GetEnvInt(EnvWorkers, 1),
		Thresholds:  ThresholdsFromEnv(),
		Utilization: utilization.DefaultLookup(),
	}
}

// LoadJob reads a job file over DefaultJob. Keys the job format does not know are rejected.
func LoadJob(path string) (*JobConfig, error) {
	job := DefaultJob()
	md, err := toml.DecodeFile(path, job)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("job file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("job file %s: %w", path, err)
	}
	return job, nil
}

// Validate checks the sources, thresholds and utilization bounds. Column roles are checked
// later against the loaded tables.
func (j *JobConfig) Validate() error {
	if err := j.Distributed.Validate(); err != nil {
		return fmt.Errorf("distributed: %w", err)
	}
	if err := j.Administered.Validate(); err != nil {
		return fmt.Errorf("administered: %w", err)
	}
	if (j.Distributed.Query != "" || j.Administered.Query != "") && j.Database == "" {
		return fmt.Errorf("query sources need a database URL")
	}
	if j.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if err := j.Thresholds.Validate(); err != nil {
		return err
	}
	return j.Utilization.Validate()
}

// ResolveOptions returns the resolver settings of the job.
func (j *JobConfig) ResolveOptions() engine.ResolveOptions {
	return engine.ResolveOptions{Workers: j.Workers, SortTargets: j.SortTargets}
}
