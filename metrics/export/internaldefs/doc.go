// Package internaldefs holds the shared metric name/help tables used by the
// Prometheus and OTel exporters. It exists so the two exporters expose
// identical series without duplicating the definitions.
package internaldefs
