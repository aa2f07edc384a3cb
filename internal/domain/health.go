package domain

import "time"

// ProbeStatus is the outcome of a dependency probe.
type ProbeStatus string

const (
	// ProbeStatusOK indicates the dependency answered within its deadline.
	ProbeStatusOK ProbeStatus = "ok"
	// ProbeStatusDegraded indicates the dependency returned an error but the API can keep serving.
	ProbeStatusDegraded ProbeStatus = "degraded"
	// ProbeStatusError indicates the dependency timed out or the probe was cancelled.
	ProbeStatusError ProbeStatus = "error"
)

// ProbeResult describes one dependency probe.
type ProbeResult struct {
	Status    ProbeStatus
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// ReadinessReport aggregates probe results for the health endpoint.
type ReadinessReport struct {
	Status      ProbeStatus
	Probes      map[string]ProbeResult
	Version     string
	Environment string
	GeneratedAt time.Time
}
