/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"io"

	"github.com/ssgreg/logf"
)

type syncEntryWriter struct {
	appender logf.Appender
}

//nolint:gocritic
func (w syncEntryWriter) WriteEntry(e logf.Entry) {
	_ = w.appender.Append(e)
	_ = w.appender.Flush()
}

func newSyncLogfLogger(cfg *Config, w io.Writer) *logf.Logger {
	return logf.NewLogger(convertLevelToLogfLevel(cfg.Level), syncEntryWriter{makeLogfAppenderWithWriter(cfg, w)})
}
