package am

// Config represents the genpipe configuration
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline" toml:"pipeline" json:"pipeline" yaml:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" toml:"output" json:"output" yaml:"output"`
	History  HistoryConfig  `mapstructure:"history" toml:"history" json:"history" yaml:"history"`
	Watch    WatchConfig    `mapstructure:"watch" toml:"watch" json:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// PipelineConfig configures unit resolution and fan-out
type PipelineConfig struct {
	Dir              string   `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`                                         // Directory units are resolved from (default: ".")
	Packages         []string `mapstructure:"packages" toml:"packages" json:"packages" yaml:"packages"`                     // go/packages patterns (default: ["./..."])
	Targets          []string `mapstructure:"targets" toml:"targets" json:"targets" yaml:"targets"`                         // Registered targets to run (empty = all)
	Concurrent       bool     `mapstructure:"concurrent" toml:"concurrent" json:"concurrent" yaml:"concurrent"`             // Run pairs in parallel (default: true)
	IncludeGenerated bool     `mapstructure:"include_generated" toml:"include_generated" json:"include_generated" yaml:"include_generated"`
	MaxWorkers       int      `mapstructure:"max_workers" toml:"max_workers" json:"max_workers" yaml:"max_workers"`             // 0 = unbounded
	TimeoutSeconds   int      `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"` // Per-invocation timeout, 0 = none
	RatePerSecond    float64  `mapstructure:"rate_per_second" toml:"rate_per_second" json:"rate_per_second" yaml:"rate_per_second"` // Invocation start rate, 0 = unlimited
	FailFast         bool     `mapstructure:"fail_fast" toml:"fail_fast" json:"fail_fast" yaml:"fail_fast"`                 // Let producer faults abort the run instead of recording them
}

// OutputConfig configures where artifacts are written
type OutputConfig struct {
	Dir string   `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`
	S3  S3Config `mapstructure:"s3" toml:"s3" json:"s3" yaml:"s3"`
}

// S3Config configures the S3-compatible artifact sink
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" toml:"endpoint" json:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" toml:"access_key" json:"-" yaml:"-"`
	SecretKey string `mapstructure:"secret_key" toml:"secret_key" json:"-" yaml:"-"`
	Bucket    string `mapstructure:"bucket" toml:"bucket" json:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" toml:"prefix" json:"prefix" yaml:"prefix"`
	Region    string `mapstructure:"region" toml:"region" json:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" toml:"use_ssl" json:"use_ssl" yaml:"use_ssl"`
}

// HistoryConfig configures the SQLite run history
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// File permission constants
const (
	DefaultDirPermissions  = 0o755
	DefaultFilePermissions = 0o644
)

// ProjectConfigName is the per-project config file searched for by Load
const ProjectConfigName = "genpipe.toml"
