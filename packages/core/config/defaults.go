package config

import "github.com/abdul-hamid-achik/hitcall/packages/http"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         int(http.DefaultTimeout.Milliseconds()),
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    http.DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		MaxConcurrent:   http.DefaultMaxConcurrent,
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.MaxConcurrent == defaults.MaxConcurrent &&
		c.RateLimit == defaults.RateLimit &&
		c.Journal == defaults.Journal &&
		c.EnvFile == defaults.EnvFile &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
