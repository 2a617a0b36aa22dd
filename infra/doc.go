// Package infra holds the adapters the fleet engine runs against: the
// in-process road network, MQTT command and telemetry transport, metrics
// sinks, logging and error monitoring. Adapters implement interfaces owned
// by the core packages and never import the engine itself.
package infra
