/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides implementations of log.FieldLogger for tests:
// a recorder which keeps logged entries for inspection and a simple JSON logger.
package logtest
