package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"constref/internal/core/errors"
)

const DefaultFile = "constref.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Autoload      Autoload      `toml:"autoload"`
	Inspectors    Inspectors    `toml:"inspectors"`
	Parser        Parser        `toml:"parser"`
	Scan          Scan          `toml:"scan"`
	Watch         Watch         `toml:"watch"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Architecture  Architecture  `toml:"architecture"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	DatabaseDir string `toml:"database_dir"`
}

type Autoload struct {
	Roots       []string          `toml:"roots"`
	Ignore      []string          `toml:"ignore"`
	Collapse    []string          `toml:"collapse"`
	Inflections map[string]string `toml:"inflections"`
}

type Inspectors struct {
	Associations Associations `toml:"associations"`
}

type Associations struct {
	Enabled       *bool    `toml:"enabled"`
	Custom        []string `toml:"custom"`
	ExcludedFiles []string `toml:"excluded_files"`
}

func (a Associations) IsEnabled() bool {
	if a.Enabled == nil {
		return true
	}
	return *a.Enabled
}

type Parser struct {
	TolerateTemplateErrors *bool `toml:"tolerate_template_errors"`
}

func (p Parser) TemplateErrorsTolerated() bool {
	if p.TolerateTemplateErrors == nil {
		return true
	}
	return *p.TolerateTemplateErrors
}

type Scan struct {
	Include           []string `toml:"include"`
	ExcludeDirs       []string `toml:"exclude_dirs"`
	Workers           int      `toml:"workers"`
	MaxFilesPerSecond float64  `toml:"max_files_per_second"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Output struct {
	TSV         string `toml:"tsv"`
	JSON        string `toml:"json"`
	DOT         string `toml:"dot"`
	Mermaid     string `toml:"mermaid"`
	SARIF       string `toml:"sarif"`
	Violations  string `toml:"violations"`
	Granularity string `toml:"granularity"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Architecture struct {
	Enabled bool                `toml:"enabled"`
	Layers  []ArchitectureLayer `toml:"layers"`
	Rules   []ArchitectureRule  `toml:"rules"`
}

type ArchitectureLayer struct {
	Name  string   `toml:"name"`
	Paths []string `toml:"paths"`
}

type ArchitectureRule struct {
	Name  string   `toml:"name"`
	From  string   `toml:"from"`
	Allow []string `toml:"allow"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Granularities accepted by output.granularity.
const (
	GranularityFile      = "file"
	GranularityComponent = "component"
)

var (
	DefaultAutoloadRoots = []string{
		"app/*",
		"app/*/concerns",
		"components/*/app/*",
		"components/*/app/*/concerns",
		"lib",
	}
	DefaultAutoloadIgnore = []string{
		"app/assets",
		"app/javascript",
		"app/views",
		"components/*/app/assets",
		"components/*/app/javascript",
		"components/*/app/views",
		"lib/assets",
		"lib/tasks",
	}
	DefaultScanInclude     = []string{"**.rb", "**.rake", "**.erb"}
	DefaultScanExcludeDirs = []string{".git", "node_modules", "tmp", "log", "vendor", "coverage"}
)

// DefaultConfig returns a configuration with every default applied, for
// callers that run without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read config"), errors.CtxPath, path)
	}
	return Parse(string(data))
}

// Parse decodes TOML text and applies defaults, environment overrides and
// validation.
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "tmp/constref"
	}

	if cfg.Autoload.Roots == nil {
		cfg.Autoload.Roots = append([]string(nil), DefaultAutoloadRoots...)
	}
	if cfg.Autoload.Ignore == nil {
		cfg.Autoload.Ignore = append([]string(nil), DefaultAutoloadIgnore...)
	}

	if cfg.Inspectors.Associations.ExcludedFiles == nil {
		cfg.Inspectors.Associations.ExcludedFiles = []string{"spec/factories/**", "test/factories/**"}
	}

	if len(cfg.Scan.Include) == 0 {
		cfg.Scan.Include = append([]string(nil), DefaultScanInclude...)
	}
	if cfg.Scan.ExcludeDirs == nil {
		cfg.Scan.ExcludeDirs = append([]string(nil), DefaultScanExcludeDirs...)
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = runtime.NumCPU()
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Output.Granularity) == "" {
		cfg.Output.Granularity = GranularityFile
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "history.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 2 * time.Second
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "constref"
	}
}
