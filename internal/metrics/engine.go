// Package metrics provides Prometheus metrics for the supervised engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "biodockify"

// States exported through the engine_state gauge.
var engineStates = []string{"idle", "starting", "running", "backing_off", "shutting_down", "stopped"}

var (
	engineSpawns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "spawns_total",
		Help:      "Engine processes started",
	})

	engineSpawnFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "spawn_failures_total",
		Help:      "Attempts where the OS refused to start the engine",
	})

	engineExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "exits_total",
		Help:      "Engine exits by kind (expected or unexpected)",
	}, []string{"kind"})

	engineOutputLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "output_lines_total",
		Help:      "Lines read from the engine",
	}, []string{"source"})

	engineState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "state",
		Help:      "1 for the current supervisor state, 0 otherwise",
	}, []string{"state"})

	engineUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "up",
		Help:      "1 while an engine process is running",
	})

	engineReady = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "ready",
		Help:      "1 once the current engine run accepts connections",
	})

	engineLastExitCode = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "last_exit_code",
		Help:      "Exit code of the most recent engine process",
	})

	engineRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "How long engine processes ran before exiting",
		Buckets:   []float64{1, 5, 30, 60, 300, 1800, 3600, 21600},
	})

	windowVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "window_visible",
		Help:      "1 while the host window is shown",
	})

	// Local counters for the status endpoint.
	snapshot   EngineCounters
	snapshotMu sync.RWMutex
)

// EngineCounters holds running totals since process start.
type EngineCounters struct {
	Spawns          uint64
	SpawnFailures   uint64
	UnexpectedExits uint64
	OutputLines     uint64
}

// RecordSpawn counts a started engine process.
func RecordSpawn() {
	engineSpawns.Inc()
	engineUp.Set(1)
	engineReady.Set(0)
	updateSnapshot(func(c *EngineCounters) { c.Spawns++ })
}

// RecordSpawnFailure counts an attempt the OS refused.
func RecordSpawnFailure() {
	engineSpawnFailures.Inc()
	updateSnapshot(func(c *EngineCounters) { c.SpawnFailures++ })
}

// RecordExit counts an engine exit and its run duration.
func RecordExit(expected bool, exitCode int, uptimeSeconds float64) {
	kind := "unexpected"
	if expected {
		kind = "expected"
	}
	engineExits.WithLabelValues(kind).Inc()
	engineUp.Set(0)
	engineReady.Set(0)
	engineLastExitCode.Set(float64(exitCode))
	engineRunDuration.Observe(uptimeSeconds)
	if !expected {
		updateSnapshot(func(c *EngineCounters) { c.UnexpectedExits++ })
	}
}

// RecordOutputLine counts one line of engine output.
func RecordOutputLine(source string) {
	engineOutputLines.WithLabelValues(source).Inc()
	updateSnapshot(func(c *EngineCounters) { c.OutputLines++ })
}

// SetEngineReady marks the current run as ready.
func SetEngineReady() {
	engineReady.Set(1)
}

// SetEngineState flips the state gauge to state.
func SetEngineState(state string) {
	for _, s := range engineStates {
		value := 0.0
		if s == state {
			value = 1
		}
		engineState.WithLabelValues(s).Set(value)
	}
}

// SetWindowVisible records the host window visibility.
func SetWindowVisible(visible bool) {
	if visible {
		windowVisible.Set(1)
	} else {
		windowVisible.Set(0)
	}
}

// GetEngineCounters returns a copy of the running totals.
func GetEngineCounters() EngineCounters {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

func updateSnapshot(update func(*EngineCounters)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	update(&snapshot)
}
