/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jasondb/jasondb/log/logtest"
)

type blockingUnit struct {
	stop    chan struct{}
	stopped chan bool
}

func newBlockingUnit() *blockingUnit {
	return &blockingUnit{stop: make(chan struct{}), stopped: make(chan bool, 1)}
}

func (u *blockingUnit) Start(_ chan<- error) {
	<-u.stop
}

func (u *blockingUnit) Stop(gracefully bool) error {
	close(u.stop)
	u.stopped <- gracefully
	return nil
}

type failingUnit struct {
	err error
}

func (u failingUnit) Start(fatalErr chan<- error) { fatalErr <- u.err }
func (u failingUnit) Stop(bool) error            { return nil }

func TestService_StartContext(t *testing.T) {
	t.Run("stop by context", func(t *testing.T) {
		unit := newBlockingUnit()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		require.NoError(t, New(logtest.NewRecorder(), unit).StartContext(ctx))
		require.True(t, <-unit.stopped)
	})

	t.Run("stop by signal", func(t *testing.T) {
		unit := newBlockingUnit()
		svc := New(logtest.NewRecorder(), unit)
		svc.Signals <- syscall.SIGTERM
		require.NoError(t, svc.Start())
		require.True(t, <-unit.stopped)
	})

	t.Run("fatal error of composite unit", func(t *testing.T) {
		wantErr := errors.New("listen failed")
		blocking := newBlockingUnit()
		svc := New(logtest.NewRecorder(), NewCompositeUnit(blocking, failingUnit{wantErr}))
		err := svc.Start()
		require.ErrorContains(t, err, "listen failed")
		require.False(t, <-blocking.stopped)
	})
}
