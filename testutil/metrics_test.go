/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRequireCounterValue(t *testing.T) {
	eventsCounter := prometheus.NewCounter(prometheus.CounterOpts{Name: "events"})
	eventsCounter.Add(42)

	mockT := &MockT{}
	RequireCounterValue(mockT, eventsCounter, 41)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireCounterValue(mockT, eventsCounter, 42)
	require.False(t, mockT.Failed)
}

func TestRequireGaugeValue(t *testing.T) {
	entriesVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "entries"}, []string{"collection"})
	entriesVec.WithLabelValues("users").Set(3)
	entriesVec.WithLabelValues("orders").Set(5)

	mockT := &MockT{}
	RequireGaugeValue(mockT, entriesVec.WithLabelValues("users"), 5)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireGaugeValue(mockT, entriesVec.WithLabelValues("users"), 3)
	require.False(t, mockT.Failed)

	mockT = &MockT{}
	RequireGaugeValue(mockT, entriesVec.WithLabelValues("orders"), 5)
	require.False(t, mockT.Failed)
}
