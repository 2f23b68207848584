/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ttlcache

import "time"

// Clock is a source of the current time. It may be replaced in tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc is an adapter to allow the use of ordinary functions as Clock.
type ClockFunc func() time.Time

// Now implements Clock interface.
func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
