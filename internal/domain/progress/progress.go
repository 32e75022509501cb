package progress

// Package progress normalizes the heterogeneous progress representations the
// document store reports (fractions, percentages, per-item and aggregate
// values) into a single canonical 0-100 percentage. Everything here is a pure
// function over fetched data; missing inputs default to zero rather than
// raising.

import "math"

// Status is the completion tag the backend attaches to a member's progress
// document. Wire values contain spaces.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Snapshot is a member's progress record for one course module.
// Progress is the per-item fraction or percentage; OverallProgress is the
// aggregate the backend computes across the module. Either may be absent.
type Snapshot struct {
	Status          Status   `json:"status"`
	Progress        *float64 `json:"progress"`
	OverallProgress *float64 `json:"overall_progress"`
}

// Module is a course module paired with the member's progress snapshot, if
// any. A nil Snapshot means the member never opened the module.
type Module struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Snapshot *Snapshot `json:"progress"`
}

// Stats summarizes a member's progress across all their modules. Counts come
// from the status tags, not the numeric values; the two can disagree.
type Stats struct {
	TotalModules      int     `json:"total_modules"`
	CompletedModules  int     `json:"completed_modules"`
	InProgressModules int     `json:"in_progress_modules"`
	NotStartedModules int     `json:"not_started_modules"`
	AverageProgress   float64 `json:"average_progress"`
}

// Normalize converts a raw progress value to a 0-100 percentage with at most
// two decimal places. Values in (0,1] are treated as fractions and scaled;
// values above 1 are taken as percentages and pass through unclamped, even
// past 100. A raw value of exactly 1 therefore always reads as 100%, never
// as 1%. That is a known ambiguity in the backend's representation that
// callers depend on; do not change the threshold without product sign-off.
func Normalize(raw *float64) float64 {
	if raw == nil || *raw == 0 {
		return 0
	}
	v := *raw
	if v > 0 && v <= 1 {
		return round2(v * 100)
	}
	return round2(v)
}

// ModuleProgress computes the canonical percentage for one snapshot.
// The aggregate value wins over the per-item one when both are present.
// A Completed status reports 100 only when the numbers agree: a module
// flagged Completed with a stale partial number reports the actual number.
// That reconciliation rule is deliberate, not a bug.
func ModuleProgress(s *Snapshot) float64 {
	if s == nil {
		return 0
	}
	raw := s.Progress
	if s.OverallProgress != nil {
		raw = s.OverallProgress
	}
	v := Normalize(raw)
	if s.Status == StatusCompleted && v >= 100 {
		return 100
	}
	return v
}

// AverageProgress returns the mean module progress, 0 for no modules.
func AverageProgress(modules []Module) float64 {
	if len(modules) == 0 {
		return 0
	}
	var sum float64
	for _, m := range modules {
		sum += ModuleProgress(m.Snapshot)
	}
	return round2(sum / float64(len(modules)))
}

// ComputeStats derives per-status counts and the average. A module without a
// snapshot counts as not started.
func ComputeStats(modules []Module) Stats {
	stats := Stats{TotalModules: len(modules)}
	for _, m := range modules {
		if m.Snapshot == nil {
			stats.NotStartedModules++
			continue
		}
		switch m.Snapshot.Status {
		case StatusCompleted:
			stats.CompletedModules++
		case StatusInProgress:
			stats.InProgressModules++
		default:
			stats.NotStartedModules++
		}
	}
	stats.AverageProgress = AverageProgress(modules)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
