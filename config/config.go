package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for genesis.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Mapping   MappingConfig   `yaml:"mapping"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Validate  ValidateConfig  `yaml:"validate"`
	Backup    BackupConfig    `yaml:"backup"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourcesConfig selects the consolidated source files to decompose when none
// are named on the command line.
type SourcesConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// CatalogConfig selects the shared headers the symbol catalog is built from.
type CatalogConfig struct {
	IncludeDir string   `yaml:"include_dir"`
	Patterns   []string `yaml:"patterns"`
	// StrictAmbiguity turns conflicting duplicate declarations into a fatal
	// error instead of a warning.
	StrictAmbiguity bool `yaml:"strict_ambiguity"`
}

// Rule routes function names matching Pattern into Dir. Order matters: the
// first matching rule wins.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Dir     string `yaml:"dir"`
}

// MappingConfig shapes the output tree.
type MappingConfig struct {
	OutputRoot string `yaml:"output_root"`
	Extension  string `yaml:"extension"`
	DefaultDir string `yaml:"default_dir"`
	Rules      []Rule `yaml:"rules"`
}

// AnalysisConfig holds dependency analysis configuration.
type AnalysisConfig struct {
	Workers       int      `yaml:"workers"` // 0 = GOMAXPROCS
	DomainTypes   []string `yaml:"domain_types"`
	CommonHeaders []string `yaml:"common_headers"`
}

// ValidateConfig holds validator thresholds.
type ValidateConfig struct {
	LineTolerance    float64 `yaml:"line_tolerance"`
	MaxFileSize      int64   `yaml:"max_file_size"`
	SyntaxCrossCheck bool    `yaml:"syntax_crosscheck"`
}

// BackupConfig holds backup configuration.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	File   string `yaml:"file"`   // empty = stderr
}

// TelemetryConfig selects where phase spans and run counters are exported.
type TelemetryConfig struct {
	Exporter string `yaml:"exporter"` // "none" or "stdout"
}

// ExampleRules is the starter rule table written by `genesis init`.
func ExampleRules() []Rule {
	return []Rule{
		{Pattern: "ast_parse_(if|elif|else)", Dir: "ast/parser/control"},
		{Pattern: "ast_parse_(while|for|loop|range)", Dir: "ast/parser/loop"},
		{Pattern: "ast_parse_", Dir: "ast/parser"},
		{Pattern: "ast_evaluate_", Dir: "ast/evaluator"},
		{Pattern: "ast_create_", Dir: "ast/node/create"},
		{Pattern: "ast_value_", Dir: "ast/value"},
		{Pattern: "ast_free", Dir: "ast/node/free"},
		{Pattern: "variable_(ref|unref)", Dir: "variable/memory"},
		{Pattern: "variable_", Dir: "variable"},
		{Pattern: "lexer_", Dir: "lexer"},
		{Pattern: "token_", Dir: "token"},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Includes: []string{"*.c"},
			Excludes: []string{"src/**", "**/.genesis/**", "**/build/**", "**/test*/**"},
		},
		Catalog: CatalogConfig{
			IncludeDir: "include",
			Patterns:   []string{"**/*.h"},
		},
		Mapping: MappingConfig{
			OutputRoot: "src",
			Extension:  ".c",
			DefaultDir: "misc",
		},
		Analysis: AnalysisConfig{
			Workers: 0,
		},
		Validate: ValidateConfig{
			LineTolerance: 0.20,
			MaxFileSize:   2048,
		},
		Backup: BackupConfig{
			Dir: ".genesis/backups",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Exporter: "none",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for genesis.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, StateDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

const (
	FileName     = "genesis.yaml"
	StateDirName = ".genesis"
)

// StateDir returns the directory holding the run ledger and last report.
func StateDir(dir string) string {
	return filepath.Join(dir, StateDirName)
}

// LedgerPath returns the path to the run ledger database.
func LedgerPath(dir string) string {
	return filepath.Join(dir, StateDirName, "runs.db")
}

// ReportPath returns the path of the last validation report.
func ReportPath(dir string) string {
	return filepath.Join(dir, StateDirName, "report.json")
}

// EnsureStateDir ensures the .genesis directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(StateDir(dir), 0755)
}
