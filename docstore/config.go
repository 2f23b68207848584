/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import (
	"fmt"
	"time"

	"github.com/jasondb/jasondb/config"
	"github.com/jasondb/jasondb/retry"
)

const cfgDefaultKeyPrefix = "docstore"

const (
	cfgKeyDir             = "dir"
	cfgKeyCollections     = "collections"
	cfgKeyIORetries       = "io.retries"
	cfgKeyIORetryInterval = "io.retryInterval"
)

// Default values.
const (
	DefaultDir             = "./data"
	DefaultIORetries       = 3
	DefaultIORetryInterval = 10 * time.Millisecond
)

// Config represents a set of configuration parameters for the document store.
type Config struct {
	// Dir is a base directory, each collection is stored in its subdirectory.
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`

	// Collections are opened eagerly on start.
	Collections []string `mapstructure:"collections" yaml:"collections" json:"collections"`

	IO IOConfig `mapstructure:"io" yaml:"io" json:"io"`

	keyPrefix string
}

// IOConfig configures retries of file operations.
type IOConfig struct {
	Retries       int           `mapstructure:"retries" yaml:"retries" json:"retries"`
	RetryInterval time.Duration `mapstructure:"retryInterval" yaml:"retryInterval" json:"retryInterval"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix "docstore" is used if keyPrefix is empty.
func NewConfig(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Dir: DefaultDir,
		IO:  IOConfig{Retries: DefaultIORetries, RetryInterval: DefaultIORetryInterval},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDir, DefaultDir)
	dp.SetDefault(cfgKeyIORetries, DefaultIORetries)
	dp.SetDefault(cfgKeyIORetryInterval, DefaultIORetryInterval)
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Dir, err = dp.GetString(cfgKeyDir); err != nil {
		return err
	}
	if c.Dir == "" {
		return dp.WrapKeyErr(cfgKeyDir, fmt.Errorf("cannot be empty"))
	}

	if c.Collections, err = dp.GetStringSlice(cfgKeyCollections); err != nil {
		return err
	}
	for _, name := range c.Collections {
		if nameErr := validateName(name); nameErr != nil {
			return dp.WrapKeyErr(cfgKeyCollections, fmt.Errorf("%w: %v", ErrInvalidName, nameErr))
		}
	}

	if c.IO.Retries, err = dp.GetInt(cfgKeyIORetries); err != nil {
		return err
	}
	if c.IO.Retries < 0 {
		return dp.WrapKeyErr(cfgKeyIORetries, fmt.Errorf("should be >= 0"))
	}
	if c.IO.RetryInterval, err = dp.GetDuration(cfgKeyIORetryInterval); err != nil {
		return err
	}
	if c.IO.RetryInterval < 0 {
		return dp.WrapKeyErr(cfgKeyIORetryInterval, fmt.Errorf("should be >= 0"))
	}
	return nil
}

// RetryPolicy returns a policy for retrying file operations.
func (c *IOConfig) RetryPolicy() retry.Policy {
	if c.Retries == 0 {
		return retry.NoRetryPolicy
	}
	return retry.ConstantBackoffPolicy{Interval: c.RetryInterval, MaxAttempts: c.Retries}
}
