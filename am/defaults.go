package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Pipeline defaults
	v.SetDefault("pipeline.dir", ".")
	v.SetDefault("pipeline.packages", []string{"./..."})
	v.SetDefault("pipeline.targets", []string{})
	v.SetDefault("pipeline.concurrent", true)
	v.SetDefault("pipeline.include_generated", false) // Generated packages are usually our own output
	v.SetDefault("pipeline.max_workers", 0)
	v.SetDefault("pipeline.timeout_seconds", 0)
	v.SetDefault("pipeline.rate_per_second", 0.0)
	v.SetDefault("pipeline.fail_fast", false)

	// Output defaults
	v.SetDefault("output.dir", "gen")
	v.SetDefault("output.s3.enabled", false)
	v.SetDefault("output.s3.prefix", "genpipe")
	v.SetDefault("output.s3.region", "us-east-1")
	v.SetDefault("output.s3.use_ssl", true)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", ".genpipe/history.db")

	// Watch defaults
	v.SetDefault("watch.debounce_ms", 300)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables.
// The MINIO_* names are accepted so existing object-store environments work unchanged.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("output.s3.endpoint", "GENPIPE_S3_ENDPOINT", "MINIO_ENDPOINT")
	v.BindEnv("output.s3.access_key", "GENPIPE_S3_ACCESS_KEY", "MINIO_ACCESS_KEY")
	v.BindEnv("output.s3.secret_key", "GENPIPE_S3_SECRET_KEY", "MINIO_SECRET_KEY")
	v.BindEnv("output.s3.use_ssl", "GENPIPE_S3_USE_SSL", "MINIO_USE_SSL")

	v.BindEnv("history.path", "GENPIPE_HISTORY_PATH")
}

// Default returns a Config populated only from SetDefaults
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always unmarshal; a failure here is a programming error
		panic(err)
	}
	return cfg
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Pipeline: {Dir: %s, Concurrent: %t, MaxWorkers: %d}, Output: {Dir: %s, S3: %t}, History: %t}",
		c.Pipeline.Dir, c.Pipeline.Concurrent, c.Pipeline.MaxWorkers, c.Output.Dir, c.Output.S3.Enabled, c.History.Enabled)
}
