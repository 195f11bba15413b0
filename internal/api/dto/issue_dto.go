package dto

import (
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/service"
)

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Assignee    *string  `json:"assignee"`
	Reporter    string   `json:"reporter"`
	Tags        []string `json:"tags"`
}

// UpdateIssueRequest payload; omitted fields are left unchanged.
type UpdateIssueRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	Assignee    *string  `json:"assignee"`
	Tags        []string `json:"tags"`
}

// IssueResponse is the public view of an issue.
type IssueResponse struct {
	IssueID     string               `json:"issueId"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      domain.IssueStatus   `json:"status"`
	Priority    domain.IssuePriority `json:"priority"`
	Assignee    *string              `json:"assignee"`
	Reporter    string               `json:"reporter"`
	Tags        []string             `json:"tags"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// IssueListResponse is one page of issues.
type IssueListResponse struct {
	Items     []IssueResponse `json:"items"`
	Count     int             `json:"count"`
	NextToken *string         `json:"nextToken"`
}

// CreateInput converts the payload for the service.
func (r CreateIssueRequest) CreateInput() service.IssueCreateInput {
	return service.IssueCreateInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Assignee:    r.Assignee,
		Reporter:    r.Reporter,
		Tags:        r.Tags,
	}
}

// UpdateInput converts the payload for the service.
func (r UpdateIssueRequest) UpdateInput() service.IssueUpdateInput {
	return service.IssueUpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Assignee:    r.Assignee,
		Tags:        r.Tags,
	}
}

// NewIssueResponse maps a domain issue.
func NewIssueResponse(i *domain.Issue) IssueResponse {
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return IssueResponse{
		IssueID:     i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      i.Status,
		Priority:    i.Priority,
		Assignee:    i.AssigneeID,
		Reporter:    i.Reporter,
		Tags:        tags,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// NewIssueListResponse maps a service page.
func NewIssueListResponse(res *service.IssueListResult) IssueListResponse {
	items := make([]IssueResponse, 0, len(res.Items))
	for i := range res.Items {
		items = append(items, NewIssueResponse(&res.Items[i]))
	}
	return IssueListResponse{Items: items, Count: len(items), NextToken: res.NextToken}
}
