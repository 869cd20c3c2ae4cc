package domain

// Stage is a step of a rebalance cycle that talks to the venue.
type Stage int

const (
	StageRangeCheck Stage = iota
	StageWithdraw
	StageSwap
	StageDeposit
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageRangeCheck:
		return "range-check"
	case StageWithdraw:
		return "withdraw"
	case StageSwap:
		return "swap"
	case StageDeposit:
		return "deposit"
	default:
		return "unknown"
	}
}

// CycleState is a state of the rebalance state machine.
type CycleState int

const (
	StateIdle CycleState = iota
	StateCheckingRange
	StateWithdrawing
	StateSwapping
	StateDepositing
	StateDone
	StateFailed
)

// String returns the string representation of the state.
func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCheckingRange:
		return "checking_range"
	case StateWithdrawing:
		return "withdrawing"
	case StateSwapping:
		return "swapping"
	case StateDepositing:
		return "depositing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s CycleState) Terminal() bool {
	return s == StateDone || s == StateFailed
}
