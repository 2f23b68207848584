/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package statsserver

import (
	"fmt"
	"time"

	"github.com/jasondb/jasondb/config"
)

const cfgDefaultKeyPrefix = "statsServer"

const (
	cfgKeyEnabled         = "enabled"
	cfgKeyAddress         = "address"
	cfgKeyPprof           = "pprof"
	cfgKeyReportInterval  = "reportInterval"
	cfgKeyShutdownTimeout = "shutdownTimeout"
	cfgKeyRateLimit       = "rateLimit.rps"
	cfgKeyRateLimitBurst  = "rateLimit.burst"
)

// Default values.
const (
	DefaultAddress         = ":9090"
	DefaultReportInterval  = time.Minute
	DefaultShutdownTimeout = 5 * time.Second
	DefaultRateLimit       = 50
	DefaultRateLimitBurst  = 10
)

// Config represents a set of configuration parameters for the stats server.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`

	// Pprof enables profiling endpoints under /debug.
	Pprof bool `mapstructure:"pprof" yaml:"pprof" json:"pprof"`

	// ReportInterval is an interval of logging cache statistics. Zero disables reporting.
	ReportInterval time.Duration `mapstructure:"reportInterval" yaml:"reportInterval" json:"reportInterval"`

	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout" json:"shutdownTimeout"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`

	keyPrefix string
}

// RateLimitConfig limits the number of requests served by the stats server.
type RateLimitConfig struct {
	// RPS is a number of requests per second. Zero disables limiting.
	RPS   int `mapstructure:"rps" yaml:"rps" json:"rps"`
	Burst int `mapstructure:"burst" yaml:"burst" json:"burst"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix "statsServer" is used if keyPrefix is empty.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Address:         DefaultAddress,
		ReportInterval:  DefaultReportInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
		RateLimit:       RateLimitConfig{RPS: DefaultRateLimit, Burst: DefaultRateLimitBurst},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the stats server in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeyAddress, DefaultAddress)
	dp.SetDefault(cfgKeyPprof, false)
	dp.SetDefault(cfgKeyReportInterval, DefaultReportInterval)
	dp.SetDefault(cfgKeyShutdownTimeout, DefaultShutdownTimeout)
	dp.SetDefault(cfgKeyRateLimit, DefaultRateLimit)
	dp.SetDefault(cfgKeyRateLimitBurst, DefaultRateLimitBurst)
}

// Set sets stats server configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	if c.Pprof, err = dp.GetBool(cfgKeyPprof); err != nil {
		return err
	}
	if c.ReportInterval, err = dp.GetDuration(cfgKeyReportInterval); err != nil {
		return err
	}
	if c.ReportInterval < 0 {
		return dp.WrapKeyErr(cfgKeyReportInterval, fmt.Errorf("should be >= 0"))
	}
	if c.ShutdownTimeout, err = dp.GetDuration(cfgKeyShutdownTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyShutdownTimeout, fmt.Errorf("should be >= 0"))
	}
	if c.RateLimit.RPS, err = dp.GetInt(cfgKeyRateLimit); err != nil {
		return err
	}
	if c.RateLimit.RPS < 0 {
		return dp.WrapKeyErr(cfgKeyRateLimit, fmt.Errorf("should be >= 0"))
	}
	if c.RateLimit.Burst, err = dp.GetInt(cfgKeyRateLimitBurst); err != nil {
		return err
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitBurst, fmt.Errorf("should be > 0"))
	}
	return nil
}
