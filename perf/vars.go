package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency = metric.NewHistogram("1m1s")
	BeaconsSent     = metric.NewCounter("10s1s")
	BeaconsReceived = metric.NewCounter("10s1s")
	DataSent        = metric.NewCounter("10s1s")
	DataDelivered   = metric.NewCounter("10s1s")
	AcksSent        = metric.NewCounter("10s1s")
	AcksReceived    = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("canopy:Beacons sent/s", BeaconsSent)
	expvar.Publish("canopy:Beacons recv/s", BeaconsReceived)
	expvar.Publish("canopy:Data sent/s", DataSent)
	expvar.Publish("canopy:Data delivered/s", DataDelivered)
	expvar.Publish("canopy:Acks sent/s", AcksSent)
	expvar.Publish("canopy:Acks recv/s", AcksReceived)
	expvar.Publish("canopy:DispatchLatency (µs)", DispatchLatency)
}
