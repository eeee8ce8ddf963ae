package orders

// OrderState is the lifecycle state of an order.
//
// Lifecycle:
//
//	PENDING_NEW -> PENDING_SUBMIT -> OPEN -> (PARTIALLY_FILLED <-> OPEN)
//	            -> FILLED | CANCELLED | REJECTED
//
// FILLED, CANCELLED and REJECTED are terminal; no further transitions are
// permitted once reached.
type OrderState int

const (
	StatePendingNew OrderState = iota
	StatePendingSubmit
	StateOpen
	StatePartiallyFilled
	StateFilled
	StateCancelled
	StateRejected
)

func (s OrderState) String() string {
	switch s {
	case StatePendingNew:
		return "PENDING_NEW"
	case StatePendingSubmit:
		return "PENDING_SUBMIT"
	case StateOpen:
		return "OPEN"
	case StatePartiallyFilled:
		return "PARTIALLY_FILLED"
	case StateFilled:
		return "FILLED"
	case StateCancelled:
		return "CANCELLED"
	case StateRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// IsTerminal reports whether the state permits no further transitions.
func (s OrderState) IsTerminal() bool {
	switch s {
	case StateFilled, StateCancelled, StateRejected:
		return true
	}
	return false
}

// transitions is the closed set of legal state transitions. Cancel and
// reject are legal from every non-terminal state.
var transitions = map[OrderState][]OrderState{
	StatePendingNew:      {StatePendingSubmit, StateCancelled, StateRejected},
	StatePendingSubmit:   {StateOpen, StateCancelled, StateRejected},
	StateOpen:            {StatePartiallyFilled, StateFilled, StateCancelled, StateRejected},
	StatePartiallyFilled: {StateOpen, StatePartiallyFilled, StateFilled, StateCancelled, StateRejected},
	StateFilled:          {},
	StateCancelled:       {},
	StateRejected:        {},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to OrderState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
