/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import (
	"fmt"
	"time"

	"github.com/jasondb/jasondb/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyTimeout       = "timeout"
	cfgKeySweepInterval = "sweepInterval"
	cfgKeyShards        = "shards"
)

// Config represents a set of configuration parameters for the cache.
type Config struct {
	// Timeout is a time after which entries are considered expired.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	// SweepInterval is an interval between periodic sweeps. Negative value disables periodic sweeps.
	SweepInterval time.Duration `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`

	Shards int `mapstructure:"shards" yaml:"shards" json:"shards"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix "cache" is used if keyPrefix is empty.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{Timeout: DefaultTimeout, SweepInterval: DefaultSweepInterval, Shards: DefaultShards}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultTimeout)
	dp.SetDefault(cfgKeySweepInterval, DefaultSweepInterval)
	dp.SetDefault(cfgKeyShards, DefaultShards)
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, ErrNegativeTimeout)
	}
	if c.SweepInterval, err = dp.GetDuration(cfgKeySweepInterval); err != nil {
		return err
	}
	if c.Shards, err = dp.GetInt(cfgKeyShards); err != nil {
		return err
	}
	if c.Shards <= 0 {
		return dp.WrapKeyErr(cfgKeyShards, fmt.Errorf("should be > 0"))
	}
	return nil
}

// Options returns cache options filled from the config.
func (c *Config) Options() Options {
	return Options{SweepInterval: c.SweepInterval, Shards: c.Shards}
}
