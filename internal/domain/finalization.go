package domain

import (
	"sort"
	"time"
)

type RejectionFinalization struct {
	IsFinalized bool `json:"isFinalized"`
}

type FinalizationStatus struct {
	ApplicationID string                           `json:"application_id"`
	AllFinalized  bool                             `json:"allFinalized"`
	Rejections    map[string]RejectionFinalization `json:"rejections"`
	Unresolved    []string                         `json:"unresolved,omitempty"`
	StartedAt     time.Time                        `json:"started_at"`
	CheckedAt     time.Time                        `json:"checked_at"`
}

// AggregateFinalization folds per-rejection answers into a status. A
// rejection missing from resolved was not answered by the backend; it counts
// as not finalized and is listed in Unresolved.
func AggregateFinalization(applicationID string, rejectionIDs []string, resolved map[string]bool, checkedAt time.Time) FinalizationStatus {
	status := FinalizationStatus{
		ApplicationID: applicationID,
		AllFinalized:  true,
		Rejections:    make(map[string]RejectionFinalization, len(rejectionIDs)),
		CheckedAt:     checkedAt,
	}
	for _, id := range rejectionIDs {
		finalized, ok := resolved[id]
		if !ok {
			status.Unresolved = append(status.Unresolved, id)
		}
		status.Rejections[id] = RejectionFinalization{IsFinalized: ok && finalized}
		if !(ok && finalized) {
			status.AllFinalized = false
		}
	}
	sort.Strings(status.Unresolved)
	return status
}
