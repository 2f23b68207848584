/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jasondb/jasondb/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgDataType config.DataType
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "yaml config",
			cfgDataType: config.DataTypeYAML,
			cfgData: `
log:
  level: warn
  format: text
  output: file
  file:
    path: jasondb.log
    rotation:
      compress: true
      maxSize: 100M
      maxBackups: 42
  addCaller: true
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelWarn
				cfg.Format = FormatText
				cfg.Output = OutputFile
				cfg.File.Path = "jasondb.log"
				cfg.File.Rotation.MaxSize = 100 * 1024 * 1024
				cfg.File.Rotation.MaxBackups = 42
				cfg.File.Rotation.Compress = true
				cfg.AddCaller = true
				return cfg
			},
		},
		{
			name:        "json config, defaults",
			cfgDataType: config.DataTypeJSON,
			cfgData:     `{"log":{"level":"DEBUG"}}`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Level = LevelDebug
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("")
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), tt.cfgDataType, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfigWithInvalidParams(t *testing.T) {
	tests := []struct {
		name           string
		cfgData        string
		expectedErrMsg string
	}{
		{
			name:           "unknown level",
			cfgData:        `{"log":{"level":"trace"}}`,
			expectedErrMsg: `log.level: unknown value "trace"`,
		},
		{
			name:           "unknown output",
			cfgData:        `{"log":{"output":"syslog"}}`,
			expectedErrMsg: `log.output: unknown value "syslog"`,
		},
		{
			name:           "file output without path",
			cfgData:        `{"log":{"output":"file"}}`,
			expectedErrMsg: `log.file.path: cannot be empty when "file" output is used`,
		},
		{
			name:           "too small rotation size",
			cfgData:        `{"log":{"file":{"rotation":{"maxSize":"100K"}}}}`,
			expectedErrMsg: "log.file.rotation.maxSize: should be >= 1M",
		},
		{
			name:           "negative max age",
			cfgData:        `{"log":{"file":{"rotation":{"maxAgeDays":-1}}}}`,
			expectedErrMsg: "log.file.rotation.maxAgeDays: should be >= 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("")
			err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
				bytes.NewBufferString(tt.cfgData), config.DataTypeJSON, cfg)
			require.ErrorContains(t, err, tt.expectedErrMsg)
		})
	}
}
