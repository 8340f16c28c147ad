package status

// Status represents the lifecycle state of a report or one of its line items.
// Line items and the report aggregate share the same status vocabulary.
type Status string

const (
	Draft     Status = "draft"
	Submitted Status = "submitted"
	Approved  Status = "approved"
	Rejected  Status = "rejected"
)

var validStatuses = map[Status]bool{
	Draft:     true,
	Submitted: true,
	Approved:  true,
	Rejected:  true,
}

var terminalStatuses = map[Status]bool{
	Approved: true,
	Rejected: true,
}

// IsValid returns true if the status is part of the fixed status set.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true for statuses a reviewer decision has settled.
// A rejected line can still be resubmitted by its owner.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}
