package am

import "github.com/teranos/genpipe/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Zero means "unbounded"/"none" for these; negative is invalid
	if c.Pipeline.MaxWorkers < 0 {
		return errors.Newf("pipeline.max_workers must be >= 0, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.TimeoutSeconds < 0 {
		return errors.Newf("pipeline.timeout_seconds must be >= 0, got %d", c.Pipeline.TimeoutSeconds)
	}
	if c.Pipeline.RatePerSecond < 0 {
		return errors.Newf("pipeline.rate_per_second must be >= 0, got %f", c.Pipeline.RatePerSecond)
	}

	if c.Output.Dir == "" {
		return errors.New("output.dir cannot be empty")
	}

	// Validate S3 configuration only when enabled
	if c.Output.S3.Enabled {
		if c.Output.S3.Endpoint == "" {
			return errors.WithHint(
				errors.New("output.s3.endpoint cannot be empty when enabled"),
				"set GENPIPE_S3_ENDPOINT or MINIO_ENDPOINT")
		}
		if c.Output.S3.Bucket == "" {
			return errors.New("output.s3.bucket cannot be empty when enabled")
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path cannot be empty when history is enabled")
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	return nil
}
