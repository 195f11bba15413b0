package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/domain"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/repository"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

const (
	anonymousReporter = "anonymous"
	maxPageSize       = 100
)

// IssueService coordinates issue workflows.
type IssueService struct {
	publisher
	issues repository.IssueRepository
	now    func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    *string
	Reporter    string
	Tags        []string
}

// IssueUpdateInput carries the fields to change; nil means untouched.
// An empty assignee clears the assignment.
type IssueUpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignee    *string
	Tags        []string
}

// IssueListInput selects a page. Limit 0 returns every issue.
type IssueListInput struct {
	Limit     int
	NextToken string
}

// IssueListResult is one page of issues.
type IssueListResult struct {
	Items     []domain.Issue
	NextToken *string
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueService{
		publisher: publisher{dispatcher: deps.Dispatcher, logger: logger},
		issues:    deps.IssueRepo,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// CreateIssue validates and stores a new issue. actorID is the authenticated
// caller, if any; it takes precedence over the payload reporter.
func (s *IssueService) CreateIssue(ctx context.Context, actorID string, input IssueCreateInput) (*domain.Issue, error) {
	title := strings.TrimSpace(input.Title)
	status := domain.IssueStatusOpen
	priority := domain.IssuePriorityMedium

	var v violations
	if title == "" {
		v.add("title is required")
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status = domain.IssueStatus(strings.ToUpper(raw))
		if !status.Valid() {
			v.add("status must be one of OPEN, IN_PROGRESS, RESOLVED, CLOSED")
		}
	}
	if raw := strings.TrimSpace(input.Priority); raw != "" {
		priority = domain.IssuePriority(strings.ToUpper(raw))
		if !priority.Valid() {
			v.add("priority must be one of LOW, MEDIUM, HIGH, CRITICAL")
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	reporter := actorID
	if reporter == "" {
		reporter = strings.TrimSpace(input.Reporter)
	}
	if reporter == "" {
		reporter = anonymousReporter
	}

	now := s.now()
	issue := &domain.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		AssigneeID:  optionalString(input.Assignee),
		Reporter:    reporter,
		Tags:        normalizeTags(input.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if issue.Tags == nil {
		issue.Tags = []string{}
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueCreated,
		SubjectID: issue.ID,
		ActorID:   actorID,
		Payload: events.IssueCreatedPayload{
			Title:    issue.Title,
			Priority: issue.Priority,
			Reporter: issue.Reporter,
		},
	})
	return issue, nil
}

// GetIssue looks an issue up by id.
func (s *IssueService) GetIssue(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issueId": id})
		}
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// ListIssues returns every issue, or one page when a limit is given.
func (s *IssueService) ListIssues(ctx context.Context, input IssueListInput) (*IssueListResult, error) {
	if input.Limit < 0 || input.Limit > maxPageSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", maxPageSize), nil)
	}
	opts := repository.IssueListOptions{Limit: input.Limit}
	if token := strings.TrimSpace(input.NextToken); token != "" {
		cursor, err := repository.DecodeIssueCursor(token)
		if err != nil {
			return nil, apperrors.NewValidationError("nextToken is invalid", nil)
		}
		opts.After = cursor
	}

	page, err := s.issues.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	result := &IssueListResult{Items: page.Items}
	if page.Next != nil {
		next := page.Next.Encode()
		result.NextToken = &next
	}
	return result, nil
}

// UpdateIssue applies the provided fields to an existing issue.
func (s *IssueService) UpdateIssue(ctx context.Context, actorID, id string, input IssueUpdateInput) (*domain.Issue, error) {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	before := issue.Clone()

	var v violations
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title == "" {
			v.add("title must not be empty")
		} else {
			issue.Title = title
		}
	}
	if input.Description != nil {
		issue.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		status := domain.IssueStatus(strings.ToUpper(strings.TrimSpace(*input.Status)))
		if !status.Valid() {
			v.add("status must be one of OPEN, IN_PROGRESS, RESOLVED, CLOSED")
		} else {
			issue.Status = status
		}
	}
	if input.Priority != nil {
		priority := domain.IssuePriority(strings.ToUpper(strings.TrimSpace(*input.Priority)))
		if !priority.Valid() {
			v.add("priority must be one of LOW, MEDIUM, HIGH, CRITICAL")
		} else {
			issue.Priority = priority
		}
	}
	if input.Assignee != nil {
		issue.AssigneeID = optionalString(input.Assignee)
	}
	if input.Tags != nil {
		issue.Tags = normalizeTags(input.Tags)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	issue.UpdatedAt = s.now()
	if issue.UpdatedAt.Before(before.UpdatedAt) {
		issue.UpdatedAt = before.UpdatedAt
	}
	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issueId": id})
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}

	s.publishChanges(ctx, actorID, before, issue)
	return issue, nil
}

// DeleteIssue removes an issue. Deleting an unknown id is not an error.
func (s *IssueService) DeleteIssue(ctx context.Context, actorID, id string) error {
	if err := s.issues.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete issue: %w", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIssueDeleted,
		SubjectID: id,
		ActorID:   actorID,
	})
	return nil
}

func (s *IssueService) publishChanges(ctx context.Context, actorID string, before, after *domain.Issue) {
	if before.Status != after.Status {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventIssueStatusChanged,
			SubjectID: after.ID,
			ActorID:   actorID,
			Payload:   events.IssueStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status},
		})
	}
	if before.Priority != after.Priority {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventIssuePriorityChanged,
			SubjectID: after.ID,
			ActorID:   actorID,
			Payload:   events.IssuePriorityChangedPayload{OldPriority: before.Priority, NewPriority: after.Priority},
		})
	}
	if stringValue(before.AssigneeID) != stringValue(after.AssigneeID) {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventIssueAssigned,
			SubjectID: after.ID,
			ActorID:   actorID,
			Payload:   events.IssueAssignedPayload{OldAssignee: before.AssigneeID, NewAssignee: after.AssigneeID},
		})
	}
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
