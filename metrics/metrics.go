// Package metrics exposes the daemon's process and port counters as
// OpenTelemetry observable gauges, scraped via prom.go's Prometheus
// exporter: active port count, cumulative bytes logged, and a running
// hotplug-event tally, alongside Go-runtime figures.
package metrics

import (
	"context"
	"runtime"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	portsActive   atomic.Int64
	bytesLogged   atomic.Int64
	hotplugEvents atomic.Int64

	meter metric.Meter

	// Application metrics
	portsActiveGauge   metric.Int64ObservableGauge
	bytesLoggedGauge   metric.Int64ObservableGauge
	hotplugEventsTotal metric.Int64ObservableCounter

	// Go runtime metrics
	goroutinesGauge     metric.Int64ObservableGauge
	memAllocGauge       metric.Int64ObservableGauge
	memTotalAllocGauge  metric.Int64ObservableGauge
	memSysGauge         metric.Int64ObservableGauge
	memHeapAllocGauge   metric.Int64ObservableGauge
	memHeapSysGauge     metric.Int64ObservableGauge
	memHeapObjectsGauge metric.Int64ObservableGauge
	gcNumGauge          metric.Int64ObservableGauge
	gcPauseTotalGauge   metric.Int64ObservableGauge
	numCPUGauge         metric.Int64ObservableGauge
)

// Init registers the daemon's application gauges plus the standard Go
// runtime gauges, and wires a single callback that observes all of them
// from the package-level atomics the event core updates.
func Init() error {
	meter = otel.Meter("uart-monitor.metrics")

	var err error
	portsActiveGauge, err = meter.Int64ObservableGauge(
		"uart_monitor.ports.active",
		metric.WithDescription("Number of currently monitored or yielded ports"),
		metric.WithUnit("{ports}"),
	)
	if err != nil {
		return err
	}

	bytesLoggedGauge, err = meter.Int64ObservableGauge(
		"uart_monitor.bytes.logged",
		metric.WithDescription("Cumulative bytes written across all port logs"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	hotplugEventsTotal, err = meter.Int64ObservableCounter(
		"uart_monitor.hotplug.events_total",
		metric.WithDescription("Hot-plug ADD/REMOVE events observed"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return err
	}

	goroutinesGauge, err = meter.Int64ObservableGauge(
		"go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutines}"),
	)
	if err != nil {
		return err
	}

	memAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.allocated",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memTotalAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.total_allocated",
		metric.WithDescription("Cumulative bytes allocated for heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memSysGauge, err = meter.Int64ObservableGauge(
		"go.memory.sys",
		metric.WithDescription("Total bytes of memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapAllocGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.allocated",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapSysGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.sys",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	memHeapObjectsGauge, err = meter.Int64ObservableGauge(
		"go.memory.heap.objects",
		metric.WithDescription("Number of allocated heap objects"),
		metric.WithUnit("{objects}"),
	)
	if err != nil {
		return err
	}

	gcNumGauge, err = meter.Int64ObservableGauge(
		"go.gc.count",
		metric.WithDescription("Number of completed GC cycles"),
		metric.WithUnit("{cycles}"),
	)
	if err != nil {
		return err
	}

	gcPauseTotalGauge, err = meter.Int64ObservableGauge(
		"go.gc.pause_total_ns",
		metric.WithDescription("Cumulative nanoseconds in GC stop-the-world pauses"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return err
	}

	numCPUGauge, err = meter.Int64ObservableGauge(
		"go.cpu.count",
		metric.WithDescription("Number of logical CPUs"),
		metric.WithUnit("{cpus}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(portsActiveGauge, portsActive.Load())
			o.ObserveInt64(bytesLoggedGauge, bytesLogged.Load())
			o.ObserveInt64(hotplugEventsTotal, hotplugEvents.Load())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			o.ObserveInt64(goroutinesGauge, int64(runtime.NumGoroutine()))
			o.ObserveInt64(memAllocGauge, int64(m.Alloc))
			o.ObserveInt64(memTotalAllocGauge, int64(m.TotalAlloc))
			o.ObserveInt64(memSysGauge, int64(m.Sys))
			o.ObserveInt64(memHeapAllocGauge, int64(m.HeapAlloc))
			o.ObserveInt64(memHeapSysGauge, int64(m.HeapSys))
			o.ObserveInt64(memHeapObjectsGauge, int64(m.HeapObjects))
			o.ObserveInt64(gcNumGauge, int64(m.NumGC))
			o.ObserveInt64(gcPauseTotalGauge, int64(m.PauseTotalNs))
			o.ObserveInt64(numCPUGauge, int64(runtime.NumCPU()))

			return nil
		},
		portsActiveGauge, bytesLoggedGauge, hotplugEventsTotal,
		goroutinesGauge,
		memAllocGauge,
		memTotalAllocGauge,
		memSysGauge,
		memHeapAllocGauge,
		memHeapSysGauge,
		memHeapObjectsGauge,
		gcNumGauge,
		gcPauseTotalGauge,
		numCPUGauge,
	)

	return err
}

// SetPortsActive records the current port-table count. Called by the event
// core after every add_port/remove_port.
func SetPortsActive(n int) {
	portsActive.Store(int64(n))
}

// SetBytesLogged records the sum of bytes written across all open port
// logs. Called by the event core after each status snapshot.
func SetBytesLogged(n int64) {
	bytesLogged.Store(n)
}

// IncHotplugEvents increments the hotplug-events counter by one. Called by
// the event core for every drained ADD/REMOVE notification.
func IncHotplugEvents() {
	hotplugEvents.Add(1)
}
