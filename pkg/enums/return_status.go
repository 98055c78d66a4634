package enums

import "fmt"

// ReturnStatus tracks the lifecycle of a post-delivery product return.
type ReturnStatus string

const (
	ReturnStatusProcessing ReturnStatus = "processing"
	ReturnStatusOnTheWay   ReturnStatus = "on_the_way"
	ReturnStatusReturned   ReturnStatus = "returned"
	ReturnStatusDeleted    ReturnStatus = "deleted"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusProcessing,
	ReturnStatusOnTheWay,
	ReturnStatusReturned,
	ReturnStatusDeleted,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusReturned || r == ReturnStatusDeleted
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
