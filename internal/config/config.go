package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DataDir       string
	RawDir        string
	AreaFile      string
	AreaLatColumn string
	AreaLonColumn string
	AreaColumn    string
	ManifestPath  string

	PipelineVersion  int
	Scenarios        []string
	Scopes           []domain.Scope
	UnitParallelism  int
	TableCacheValues int // report read cache budget in table values, 0 disables

	// Clustering.
	ClusterSeed       uint64
	ClusterMaxIter    int
	ClusterTol        float64
	BarycenterMaxIter int
	ClusterWindow     int
	ClusterWorkers    int
	ElbowMinK         int
	ElbowMaxK         int

	// Reporting.
	PreEventMonths    int
	OptimalGrowthRate float64
	EventDate         time.Time

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Summary sinks; empty brokers or URL disables the sink.
	KafkaBrokers      []string
	KafkaSummaryTopic string
	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
}

// Load reads an optional .env file and then configuration from environment
// variables, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var p parser
	dataDir := envOrDefault("DATA_DIR", filepath.Join("data", "interim_data"))
	cfg := &Config{
		DataDir:       dataDir,
		RawDir:        envOrDefault("RAW_DIR", filepath.Join("data", "raw")),
		AreaFile:      envOrDefault("AREA_FILE", filepath.Join("data", "geospatial_information", "grid", "area_grid.csv")),
		AreaLatColumn: envOrDefault("AREA_LAT_COLUMN", "TLAT"),
		AreaLonColumn: envOrDefault("AREA_LON_COLUMN", "TLONG"),
		AreaColumn:    envOrDefault("AREA_COLUMN", "TAREA"),
		ManifestPath:  envOrDefault("MANIFEST_PATH", filepath.Join(dataDir, "manifest.db")),

		PipelineVersion:  p.positiveInt("PIPELINE_VERSION", 1),
		Scenarios:        splitList(envOrDefault("SCENARIOS", "5tg,16tg,27tg,37tg,47tg,150tg,control")),
		UnitParallelism:  p.positiveInt("UNIT_PARALLELISM", 1),
		TableCacheValues: p.nonNegativeInt("TABLE_CACHE_VALUES", 1<<25),

		ClusterSeed:       p.unsigned("CLUSTER_SEED", 42),
		ClusterMaxIter:    p.positiveInt("CLUSTER_MAX_ITER", 50),
		ClusterTol:        p.positiveFloat("CLUSTER_TOL", 1e-6),
		BarycenterMaxIter: p.positiveInt("BARYCENTER_MAX_ITER", 100),
		ClusterWindow:     p.nonNegativeInt("CLUSTER_WINDOW", 0),
		ClusterWorkers:    p.positiveInt("CLUSTER_WORKERS", runtime.NumCPU()),
		ElbowMinK:         p.positiveInt("ELBOW_MIN_K", 2),
		ElbowMaxK:         p.positiveInt("ELBOW_MAX_K", 6),

		PreEventMonths:    p.nonNegativeInt("PRE_EVENT_MONTHS", 3),
		OptimalGrowthRate: p.positiveFloat("OPTIMAL_GROWTH_RATE", 30),
		EventDate:         p.date("EVENT_DATE", time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),

		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaSummaryTopic: envOrDefault("KAFKA_SUMMARY_TOPIC", "seaweed-cluster-summaries"),
		InfluxURL:         os.Getenv("INFLUXDB_URL"),
		InfluxToken:       os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:         envOrDefault("INFLUXDB_ORG", "seaweed"),
		InfluxBucket:      envOrDefault("INFLUXDB_BUCKET", "cluster_summaries"),
	}
	if p.err != nil {
		return nil, p.err
	}

	cfg.Scopes = domain.DefaultScopes()
	if path := os.Getenv("SCOPES_FILE"); path != "" {
		scopes, err := LoadScopes(path)
		if err != nil {
			return nil, err
		}
		cfg.Scopes = scopes
	}

	if len(cfg.Scenarios) == 0 {
		return nil, errors.New("SCENARIOS is required")
	}
	if cfg.ElbowMinK < 2 || cfg.ElbowMaxK < cfg.ElbowMinK {
		return nil, fmt.Errorf("invalid ELBOW_MIN_K/ELBOW_MAX_K range [%d, %d]", cfg.ElbowMinK, cfg.ElbowMaxK)
	}
	if cfg.InfluxURL != "" && cfg.InfluxToken == "" {
		return nil, errors.New("INFLUXDB_URL is set but INFLUXDB_TOKEN is not")
	}
	return cfg, nil
}

// Units expands the configured scenarios and scopes into processing units.
func (c *Config) Units() []domain.Unit {
	units := make([]domain.Unit, 0, len(c.Scenarios)*len(c.Scopes))
	for _, sc := range c.Scenarios {
		for _, scope := range c.Scopes {
			units = append(units, domain.Unit{Scenario: sc, Scope: scope})
		}
	}
	return units
}

type scopesFile struct {
	Scopes []domain.Scope `yaml:"scopes"`
}

// LoadScopes reads scope definitions from a YAML file of the form
//
//	scopes:
//	  - name: global
//	    clusters: 3
//	  - name: LME
//	    region_ids: [1, 2, 3]
func LoadScopes(path string) ([]domain.Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scopes file: %w", err)
	}
	var f scopesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scopes file %s: %w", path, err)
	}
	if len(f.Scopes) == 0 {
		return nil, fmt.Errorf("scopes file %s defines no scopes", path)
	}
	seen := make(map[string]bool, len(f.Scopes))
	for _, s := range f.Scopes {
		switch {
		case s.Name == "":
			return nil, fmt.Errorf("scopes file %s: scope without name", path)
		case seen[s.Name]:
			return nil, fmt.Errorf("scopes file %s: duplicate scope %q", path, s.Name)
		case s.Clusters < 0 || s.Clusters == 1:
			return nil, fmt.Errorf("scopes file %s: scope %q: %w: %d", path, s.Name, domain.ErrInvalidClusterCount, s.Clusters)
		case s.Clusters > 0 && s.RegionKeyed():
			return nil, fmt.Errorf("scopes file %s: region-keyed scope %q cannot be clustered", path, s.Name)
		}
		seen[s.Name] = true
	}
	return f.Scopes, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects the first invalid variable so Load can report it by name.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) positiveInt(key string, fallback int) int {
	n := p.integer(key, fallback)
	if n <= 0 {
		p.fail(key, os.Getenv(key), errors.New("must be positive"))
		return fallback
	}
	return n
}

func (p *parser) nonNegativeInt(key string, fallback int) int {
	n := p.integer(key, fallback)
	if n < 0 {
		p.fail(key, os.Getenv(key), errors.New("must not be negative"))
		return fallback
	}
	return n
}

func (p *parser) integer(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) unsigned(key string, fallback uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) positiveFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err == nil && !(f > 0) {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) date(key string, fallback time.Time) time.Time {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return t
}
