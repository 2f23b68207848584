/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequireNoErrorInChannel(t *testing.T) {
	ch := make(chan error, 1)

	mockT := &MockT{}
	RequireNoErrorInChannel(mockT, ch)
	require.False(t, mockT.Failed, "empty channel")

	ch <- nil
	RequireNoErrorInChannel(mockT, ch)
	require.False(t, mockT.Failed, "nil error")

	ch <- errors.New("listen tcp: address already in use")
	RequireNoErrorInChannel(mockT, ch)
	require.True(t, mockT.Failed)
}

func TestRequireErrorInChannel(t *testing.T) {
	ch := make(chan error, 1)
	startErr := errors.New("listen tcp: address already in use")

	mockT := &MockT{}
	ch <- startErr
	require.Equal(t, startErr, RequireErrorInChannel(mockT, ch, time.Second))
	require.False(t, mockT.Failed)

	mockT = &MockT{}
	ch <- nil
	require.Nil(t, RequireErrorInChannel(mockT, ch, time.Second))
	require.True(t, mockT.Failed, "nil error")

	mockT = &MockT{}
	require.Nil(t, RequireErrorInChannel(mockT, ch, 10*time.Millisecond))
	require.True(t, mockT.Failed, "timeout")
}
