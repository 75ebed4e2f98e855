package orchestrator

// State is a position in the linear update sequence.
type State int

const (
	Start State = iota
	BranchChecked
	ReleasesFetched
	VersionSelected
	BranchCreated
	FileUpdated
	Staged
	Committed
	Tagged
	BranchPushed
	TagPushed
	Done
	Failed
	Cancelled
)

var stateNames = [...]string{
	Start:           "start",
	BranchChecked:   "branch-checked",
	ReleasesFetched: "releases-fetched",
	VersionSelected: "version-selected",
	BranchCreated:   "branch-created",
	FileUpdated:     "file-updated",
	Staged:          "staged",
	Committed:       "committed",
	Tagged:          "tagged",
	BranchPushed:    "branch-pushed",
	TagPushed:       "tag-pushed",
	Done:            "done",
	Failed:          "failed",
	Cancelled:       "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Cancelled
}
