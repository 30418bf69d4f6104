// Package otel bridges autologin engine metrics into OpenTelemetry by
// registering observable instruments that read from the engine's snapshot on
// each collection cycle.
package otel
