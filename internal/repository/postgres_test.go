package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	commonerrors "talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/common/logger"
	"talent-match-workers/internal/matching"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var candidateCols = []string{"id", "skills", "rating", "completed_projects", "success_rate",
	"current_workload", "avg_response_hours", "hourly_rate", "experience"}

func setupMockDB(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, logger.NewTestLogger(t)), mock
}

func errorCode(t *testing.T, err error) commonerrors.ErrorCode {
	t.Helper()
	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

func TestPostgres_LoadProject(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"title", "required_skills", "preferred_skills", "nice_to_have_skills",
			"experience_level", "budget_min", "budget_max", "timeline_days", "complexity", "team_size"}).
			AddRow("Storefront rebuild", "{React,Node.js}", "{TypeScript}", "{}", "senior", 1000.0, 8000.0, 20, "complex", 3))

	p, err := repo.LoadProject(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Storefront rebuild", p.Title)
	assert.Equal(t, []string{"React", "Node.js"}, p.Requirements.RequiredSkills)
	assert.Equal(t, []string{"TypeScript"}, p.Requirements.PreferredSkills)
	assert.Empty(t, p.Requirements.NiceToHaveSkills)
	assert.Equal(t, matching.LevelSenior, p.Requirements.ExperienceLevel)
	require.NotNil(t, p.Requirements.Budget)
	assert.Equal(t, 8000.0, p.Requirements.Budget.Max)
	assert.Equal(t, 20, p.Requirements.TimelineDays)
	assert.Equal(t, matching.ComplexityComplex, p.Requirements.Complexity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadProject_Sparse(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM projects`).
		WithArgs("p-2").
		WillReturnRows(sqlmock.NewRows([]string{"title", "required_skills", "preferred_skills", "nice_to_have_skills",
			"experience_level", "budget_min", "budget_max", "timeline_days", "complexity", "team_size"}).
			AddRow("Audit", nil, nil, nil, nil, nil, nil, nil, nil, nil))

	p, err := repo.LoadProject(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Nil(t, p.Requirements.Budget)
	assert.Empty(t, p.Requirements.RequiredSkills)
	assert.Equal(t, matching.ExperienceLevel(""), p.Requirements.ExperienceLevel)
}

func TestPostgres_LoadProject_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(`FROM projects`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadProject(context.Background(), "missing")
	assert.Equal(t, commonerrors.ErrCodeProjectNotFound, errorCode(t, err))
}

func TestPostgres_LoadCandidate(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`FROM freelancers WHERE id = \$1 AND status = 'active'`).
		WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("f-1", "{React,Go}", 4.8, 12, 95.0, nil, 1.5, 60.0,
				[]byte(`[{"title":"Lead","skills":["React"],"startDate":"2019-01","current":true}]`)))

	c, err := repo.LoadCandidate(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"React", "Go"}, c.Skills)
	require.NotNil(t, c.Rating)
	assert.Equal(t, 4.8, *c.Rating)
	assert.Equal(t, 12, c.CompletedProjects)
	assert.Nil(t, c.Workload)
	require.Len(t, c.Experience, 1)
	assert.True(t, c.Experience[0].Current)
}

func TestPostgres_LoadCandidate_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(`FROM freelancers`).WithArgs("gone").WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadCandidate(context.Background(), "gone")
	assert.Equal(t, commonerrors.ErrCodeCandidateNotFound, errorCode(t, err))
}

func TestPostgres_LoadCandidates_ByID(t *testing.T) {
	repo, mock := setupMockDB(t)
	ids := []string{"f-1", "f-2", "f-3"}

	mock.ExpectQuery(`WHERE id = ANY\(\$1\) AND status = 'active' ORDER BY id`).
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("f-1", "{Go}", nil, 0, nil, nil, nil, nil, nil).
			AddRow("f-2", "{Rust}", 4.0, 3, 80.0, 40.0, 2.0, 70.0, []byte(`not json`)).
			AddRow("f-3", "{}", nil, 0, nil, nil, nil, nil, []byte(`[]`)))

	candidates, err := repo.LoadCandidates(context.Background(), ids, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "f-1", candidates[0].ID)
	assert.Equal(t, "f-3", candidates[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadCandidates_AllActive(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`WHERE status = 'active' ORDER BY id LIMIT \$1`).
		WithArgs(200).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("f-9", "{Go}", nil, 0, nil, nil, nil, nil, nil))

	candidates, err := repo.LoadCandidates(context.Background(), nil, 200)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestPostgres_LoadCandidates_QueryError(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectQuery(`FROM freelancers`).WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.LoadCandidates(context.Background(), nil, 10)
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeCandidateLoadFailed, errorCode(t, err))
}

func TestPostgres_LoadContact(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT name, email, phone FROM freelancers`).
		WithArgs("f-1").
		WillReturnRows(sqlmock.NewRows([]string{"name", "email", "phone"}).
			AddRow("Ada", "ada@example.com", nil))

	c, err := repo.LoadContact(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", c.Email)
	assert.Empty(t, c.Phone)
}
