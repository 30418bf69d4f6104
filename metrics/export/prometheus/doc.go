// Package prometheus renders autologin engine metrics in the Prometheus text
// exposition format, without importing the Prometheus client library. Mount
// [PrometheusExporter.Handler] on a scrape endpoint.
package prometheus
