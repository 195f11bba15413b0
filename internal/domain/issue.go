package domain

import "time"

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// IssuePriority enumerates urgency.
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "LOW"
	IssuePriorityMedium   IssuePriority = "MEDIUM"
	IssuePriorityHigh     IssuePriority = "HIGH"
	IssuePriorityCritical IssuePriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical:
		return true
	}
	return false
}

// Issue is the aggregate tracked by the service.
type Issue struct {
	ID          string
	Title       string
	Description string
	Status      IssueStatus
	Priority    IssuePriority
	AssigneeID  *string
	Reporter    string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy so stored records are never shared with callers.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	out := *i
	if i.AssigneeID != nil {
		assignee := *i.AssigneeID
		out.AssigneeID = &assignee
	}
	if i.Tags != nil {
		out.Tags = append([]string(nil), i.Tags...)
	}
	return &out
}
