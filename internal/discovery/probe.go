package discovery

import (
	"github.com/entraguard/entraguard/internal/graph"
)

// Status tags a probe outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Failure describes why a probe did not produce data.
type Failure struct {
	Kind    graph.Kind `json:"kind"`
	Message string     `json:"message"`
}

// ProbeResult is the tagged outcome of one discovery probe. A failed probe
// is an explicit value, never an empty collection masquerading as zero.
type ProbeResult[T any] struct {
	Status  Status   `json:"status"`
	Data    T        `json:"data,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Success wraps probe data in a successful result.
func Success[T any](data T) ProbeResult[T] {
	return ProbeResult[T]{Status: StatusSuccess, Data: data}
}

// Failed captures a probe error as a result value.
func Failed[T any](err error) ProbeResult[T] {
	return ProbeResult[T]{
		Status:  StatusFailed,
		Failure: &Failure{Kind: graph.KindOf(err), Message: err.Error()},
	}
}

// OK reports whether the probe produced data.
func (r ProbeResult[T]) OK() bool {
	return r.Status == StatusSuccess
}
