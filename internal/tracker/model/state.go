package model

// TrackerState describes what the reconciler loop is currently doing.
type TrackerState string

var (
	// StateCatchingUp means the tracker is behind the source's latest height.
	StateCatchingUp TrackerState = "catching_up"
	// StateTracking means the tracker processes new blocks as they arrive.
	StateTracking TrackerState = "tracking"
	// StateReorgResolution means a divergence was detected and is being resolved.
	StateReorgResolution TrackerState = "reorg_resolution"
	// StateHalted means the tracker stopped on a fatal error and requires
	// operator intervention.
	StateHalted TrackerState = "halted"
)

// TrackerStatus is the read-only snapshot served by the query facade.
type TrackerStatus struct {
	State           TrackerState `json:"state"`
	ConfirmedHeight uint64       `json:"confirmed_height"`
	ConfirmedHash   string       `json:"confirmed_hash"`
	PendingHeight   uint64       `json:"pending_height"`
	SourceHeight    uint64       `json:"source_height"`
	LastError       string       `json:"last_error,omitempty"`
}
