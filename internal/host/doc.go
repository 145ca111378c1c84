// Package host plays the desktop host's role around the engine supervisor.
//
// The host owns the process lifecycle: it starts the supervisor once, tells
// systemd it is ready, and turns quit requests and OS signals into a bounded
// supervisor shutdown. Window hide and show are delivered as their own
// signals and never stop the engine.
//
// Observer connects supervisor hooks to the event bus and Prometheus
// metrics, so the control API can stream engine output and lifecycle events.
package host
