package enums

import "fmt"

// AssignmentStatus tracks the lifecycle of a claimed order.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusPreparing AssignmentStatus = "preparing"
	AssignmentStatusShipped   AssignmentStatus = "shipped"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusRemoved   AssignmentStatus = "removed"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusPreparing,
	AssignmentStatusShipped,
	AssignmentStatusCompleted,
	AssignmentStatusRemoved,
}

// ActiveAssignmentStatuses are the non-terminal statuses. A worker holding a
// row in any of these still occupies their capacity slot; shipped stays active
// until explicitly completed.
var ActiveAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusAssigned,
	AssignmentStatusPreparing,
	AssignmentStatusShipped,
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the assignment lifecycle.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusRemoved
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	switch s {
	case AssignmentStatusAssigned:
		return next == AssignmentStatusPreparing || next == AssignmentStatusRemoved
	case AssignmentStatusPreparing:
		return next == AssignmentStatusShipped || next == AssignmentStatusRemoved
	case AssignmentStatusShipped:
		return next == AssignmentStatusCompleted
	default:
		return false
	}
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
