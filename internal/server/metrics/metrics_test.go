package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New(false)

	m.RPCs.WithLabelValues("/x/Ping", "OK").Inc()
	m.RPCs.WithLabelValues("/x/Ping", "OK").Inc()
	m.ActiveStreams.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RPCs.WithLabelValues("/x/Ping", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams))

	n, err := testutil.GatherAndCount(m.Registry, "voicefeed_grpc_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_RuntimeCollectorsOptional(t *testing.T) {
	without, err := New(false).Registry.Gather()
	require.NoError(t, err)
	for _, mf := range without {
		assert.NotContains(t, mf.GetName(), "go_goroutines")
	}

	with, err := New(true).Registry.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range with {
		if mf.GetName() == "go_goroutines" {
			found = true
		}
	}
	assert.True(t, found)
}
