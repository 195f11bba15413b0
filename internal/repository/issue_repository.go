package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, opts IssueListOptions) (*IssuePage, error)
}

type issueRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewIssueRepository instantiates a Postgres-backed repository over the named table.
func NewIssueRepository(pool *pgxpool.Pool, table string) IssueRepository {
	return &issueRepository{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

const issueColumns = `id, title, description, status, priority, assignee_id, reporter, COALESCE(tags, '{}'), created_at, updated_at`

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (id, title, description, status, priority, assignee_id, reporter, tags, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, r.table)
	_, err := r.pool.Exec(ctx, query,
		issue.ID,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.Priority,
		issue.AssigneeID,
		issue.Reporter,
		issue.Tags,
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	query := fmt.Sprintf(`
        UPDATE %s SET title=$1, description=$2, status=$3, priority=$4, assignee_id=$5,
            tags=$6, updated_at=$7
        WHERE id=$8`, r.table)
	cmd, err := r.pool.Exec(ctx, query,
		issue.Title,
		issue.Description,
		issue.Status,
		issue.Priority,
		issue.AssigneeID,
		issue.Tags,
		issue.UpdatedAt,
		issue.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, r.table), id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, issueColumns, r.table)
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	issues, err := scanIssues(rows)
	if err != nil {
		return nil, mapPgError(err)
	}
	if len(issues) == 0 {
		return nil, ErrNotFound
	}
	return &issues[0], nil
}

func (r *issueRepository) List(ctx context.Context, opts IssueListOptions) (*IssuePage, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if opts.After != nil {
		args = append(args, opts.After.CreatedAt, opts.After.ID)
		clauses = append(clauses, fmt.Sprintf("(created_at, id) > ($%d, $%d)", len(args)-1, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at ASC, id ASC`,
		issueColumns, r.table, strings.Join(clauses, " AND "))
	if opts.Limit > 0 {
		// one extra row tells us whether another page exists
		query += fmt.Sprintf(" LIMIT %d", opts.Limit+1)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	issues, err := scanIssues(rows)
	if err != nil {
		return nil, mapPgError(err)
	}
	return pageOf(issues, opts.Limit), nil
}

func scanIssues(rows pgx.Rows) ([]domain.Issue, error) {
	result := []domain.Issue{}
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(
			&issue.ID,
			&issue.Title,
			&issue.Description,
			&issue.Status,
			&issue.Priority,
			&issue.AssigneeID,
			&issue.Reporter,
			&issue.Tags,
			&issue.CreatedAt,
			&issue.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

// pageOf trims a limit+1 result set to a page and derives the next cursor.
func pageOf(issues []domain.Issue, limit int) *IssuePage {
	page := &IssuePage{Items: issues}
	if limit > 0 && len(issues) > limit {
		page.Items = issues[:limit]
		last := page.Items[limit-1]
		page.Next = &IssueCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page
}
