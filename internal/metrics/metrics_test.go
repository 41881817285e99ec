package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OrderPlaced()
	m.OrderPlaced()
	m.PaymentConfirmed("webhook")
	m.OrderRemoved("cancelled")
	m.GatewayCall("create_session", 10*time.Millisecond, nil)
	m.GatewayCall("create_session", 10*time.Millisecond, errors.New("x"))
	m.HTTPRequest("POST", "/api/order/place", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsConfirmed.WithLabelValues("webhook")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.paymentsConfirmed.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersRemoved.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues("create_session", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gatewayCalls.WithLabelValues("create_session", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/order/place", "200")))
}

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
