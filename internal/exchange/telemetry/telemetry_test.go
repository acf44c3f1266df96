package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllInstrumentsExactlyOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.OrdersProcessed.Inc()
	c.OrdersRejected.Inc()
	c.Trades.Add(3)
	c.RequestQueueLen.Set(7)
	c.ResponseQueueLen.Set(2)
	c.UpdateQueueLen.Set(1)

	metrics, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, metrics, 6)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range metrics {
		byName[mf.GetName()] = mf
	}

	require.Contains(t, byName, "ome_orders_processed_total")
	assert.Equal(t, float64(1), byName["ome_orders_processed_total"].Metric[0].GetCounter().GetValue())

	require.Contains(t, byName, "ome_trades_total")
	assert.Equal(t, float64(3), byName["ome_trades_total"].Metric[0].GetCounter().GetValue())

	require.Contains(t, byName, "ome_request_queue_depth")
	assert.Equal(t, float64(7), byName["ome_request_queue_depth"].Metric[0].GetGauge().GetValue())
}

func TestNew_PanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
