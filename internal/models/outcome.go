// Package models defines the Outcome type for best-effort I/O paths.
package models

// Outcome reports how a best-effort operation ended. Components that must
// never interrupt the live conversation (cache mirroring, remote persistence,
// reply dispatch notifications) return an Outcome instead of an error so
// callers and tests can observe the degraded path directly.
type Outcome int

const (
	// OutcomeOK means the operation completed against its remote collaborator.
	OutcomeOK Outcome = iota
	// OutcomeSkipped means the operation was a deliberate no-op (e.g. no
	// resolvable email for remote persistence).
	OutcomeSkipped
	// OutcomeDegraded means the remote side failed and local state carried on.
	OutcomeDegraded
)

// String returns a human-readable name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}
