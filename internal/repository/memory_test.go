package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

func TestMemoryUserRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepository()
	u := &domain.User{ID: "u1", Email: "a@b.com", FirstName: "A", Status: domain.UserStatusPendingVerification}

	require.NoError(t, r.Create(ctx, u))

	got, err := r.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	// email lookup is case-sensitive
	_, err = r.GetByEmail(ctx, "A@B.com")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Status = domain.UserStatusActive
	require.NoError(t, r.Update(ctx, got))
	again, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, again.Status)

	require.NoError(t, r.Delete(ctx, "u1"))
	_, err = r.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepository()
	require.NoError(t, r.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com"}))

	err := r.Create(ctx, &domain.User{ID: "u2", Email: "a@b.com", FirstName: "Other"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepository()
	require.NoError(t, r.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com", FirstName: "A"}))

	got, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	got.FirstName = "mutated"

	again, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.FirstName)
}

func TestMemoryIssueRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryIssueRepository()
	now := time.Now()
	issue := &domain.Issue{ID: "i1", Title: "Bug", Status: domain.IssueStatusOpen, Tags: []string{"ui"}, CreatedAt: now, UpdatedAt: now}

	require.NoError(t, r.Create(ctx, issue))
	issue.Tags[0] = "changed"

	got, err := r.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, got.Tags)

	got.Status = domain.IssueStatusClosed
	require.NoError(t, r.Update(ctx, got))
	got, err = r.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusClosed, got.Status)

	assert.ErrorIs(t, r.Update(ctx, &domain.Issue{ID: "missing"}), ErrNotFound)

	require.NoError(t, r.Delete(ctx, "i1"))
	assert.ErrorIs(t, r.Delete(ctx, "i1"), ErrNotFound)
}

func TestMemoryIssueRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryIssueRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, r.Create(ctx, &domain.Issue{ID: fmt.Sprintf("i%d", i), Title: "t", CreatedAt: ts, UpdatedAt: ts}))
	}

	all, err := r.List(ctx, IssueListOptions{})
	require.NoError(t, err)
	require.Len(t, all.Items, 5)
	assert.Nil(t, all.Next)
	assert.Equal(t, "i0", all.Items[0].ID)

	var seen []string
	opts := IssueListOptions{Limit: 2}
	for {
		page, err := r.List(ctx, opts)
		require.NoError(t, err)
		for _, it := range page.Items {
			seen = append(seen, it.ID)
		}
		if page.Next == nil {
			break
		}
		cursor, err := DecodeIssueCursor(page.Next.Encode())
		require.NoError(t, err)
		opts.After = cursor
	}
	assert.Equal(t, []string{"i0", "i1", "i2", "i3", "i4"}, seen)
}

func TestMemoryIssueRepository_ListExactPageHasNoNext(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryIssueRepository()
	now := time.Now()
	require.NoError(t, r.Create(ctx, &domain.Issue{ID: "a", CreatedAt: now}))
	require.NoError(t, r.Create(ctx, &domain.Issue{ID: "b", CreatedAt: now}))

	page, err := r.List(ctx, IssueListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Nil(t, page.Next)
}

func TestDecodeIssueCursor_Invalid(t *testing.T) {
	_, err := DecodeIssueCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeIssueCursor("e30") // "{}"
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestMemoryRepositories_HonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryIssueRepository().GetByID(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewMemoryUserRepository().GetByEmail(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
