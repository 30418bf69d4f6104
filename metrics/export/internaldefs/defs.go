package internaldefs

import (
	autologin "github.com/linkgate/autologin"
)

// CounterDef defines a public type used by autologin APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   autologin.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by autologin APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   autologin.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the autologin engine.
var CounterDefs = []CounterDef{
	{ID: autologin.MetricIssueSuccess, Name: "autologin_issue_success_total", Help: "Successfully issued autologin tokens."},
	{ID: autologin.MetricIssueDenied, Name: "autologin_issue_denied_total", Help: "Issuance requests vetoed by the caller-supplied policy."},
	{ID: autologin.MetricIssueFailure, Name: "autologin_issue_failure_total", Help: "Issuance requests that failed before a token was returned."},
	{ID: autologin.MetricVerifySuccess, Name: "autologin_verify_success_total", Help: "Successful token verifications."},
	{ID: autologin.MetricVerifyMalformed, Name: "autologin_verify_malformed_total", Help: "Verification attempts rejected at wire decode."},
	{ID: autologin.MetricVerifyIPBlocked, Name: "autologin_verify_ip_blocked_total", Help: "Verification attempts short-circuited by the per-IP lockout."},
	{ID: autologin.MetricVerifyUserBlocked, Name: "autologin_verify_user_blocked_total", Help: "Verification attempts short-circuited by the per-user lockout."},
	{ID: autologin.MetricVerifyAlreadyAuthenticated, Name: "autologin_verify_already_authenticated_total", Help: "No-op verifications by an already-authenticated caller."},
	{ID: autologin.MetricVerifyInvalidCode, Name: "autologin_verify_invalid_code_total", Help: "Verification attempts with no matching live code."},
	{ID: autologin.MetricVerifyStoreUnavailable, Name: "autologin_verify_store_unavailable_total", Help: "Verifications denied fail-closed because the backend was unreachable."},
	{ID: autologin.MetricRateLimitHit, Name: "autologin_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: autologin.MetricCodesSwept, Name: "autologin_codes_swept_total", Help: "Expired code records removed by the sweep."},
	{ID: autologin.MetricCodesRevoked, Name: "autologin_codes_revoked_total", Help: "Code records removed by per-user revocation."},
}

// HistogramDefs is an exported constant or variable used by the autologin engine.
var HistogramDefs = []HistogramDef{
	{ID: autologin.MetricVerifyLatency, Name: "autologin_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the autologin engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the autologin engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
