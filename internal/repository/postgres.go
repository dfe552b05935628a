// Package repository loads projects and freelancer profiles for the matching
// workers and caches their results.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/common/logger"
	"talent-match-workers/internal/matching"

	"github.com/lib/pq"
)

const candidateColumns = `id, skills, rating, completed_projects, success_rate,
	current_workload, avg_response_hours, hourly_rate, experience`

// Project is a stored project with its matching requirements.
type Project struct {
	ID           string
	Title        string
	Requirements matching.ProjectRequirements
}

// Contact holds the delivery details of a freelancer.
type Contact struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type Postgres struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgres(db *sql.DB, log logger.Logger) *Postgres {
	return &Postgres{db: db, logger: log}
}

// LoadProject returns the project and its requirements.
func (r *Postgres) LoadProject(ctx context.Context, projectID string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT title, required_skills, preferred_skills, nice_to_have_skills,
		       experience_level, budget_min, budget_max, timeline_days, complexity, team_size
		FROM projects WHERE id = $1`, projectID)

	var (
		p                               = Project{ID: projectID}
		required, preferred, niceToHave pq.StringArray
		level, complexity               sql.NullString
		budgetMin, budgetMax            sql.NullFloat64
		timeline, teamSize              sql.NullInt64
	)
	err := row.Scan(&p.Title, &required, &preferred, &niceToHave,
		&level, &budgetMin, &budgetMax, &timeline, &complexity, &teamSize)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewProjectNotFoundError(projectID)
	}
	if err != nil {
		return nil, queryError(ctx, "load_project", err)
	}

	p.Requirements = matching.ProjectRequirements{
		RequiredSkills:   required,
		PreferredSkills:  preferred,
		NiceToHaveSkills: niceToHave,
		ExperienceLevel:  matching.ExperienceLevel(level.String),
		TimelineDays:     int(timeline.Int64),
		Complexity:       matching.Complexity(complexity.String),
		TeamSize:         int(teamSize.Int64),
	}
	if budgetMax.Valid {
		p.Requirements.Budget = &matching.BudgetRange{Min: budgetMin.Float64, Max: budgetMax.Float64}
	}
	return &p, nil
}

// LoadCandidate returns one active freelancer.
func (r *Postgres) LoadCandidate(ctx context.Context, freelancerID string) (*matching.Candidate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM freelancers WHERE id = $1 AND status = 'active'`, freelancerID)

	c, err := scanCandidate(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewCandidateNotFoundError(freelancerID)
	}
	if err != nil {
		return nil, loadError(ctx, err)
	}
	return c, nil
}

// LoadCandidates returns the active freelancers among ids, or the first limit
// active freelancers when ids is empty. Rows whose experience column cannot
// be decoded are logged and left out.
func (r *Postgres) LoadCandidates(ctx context.Context, ids []string, limit int) ([]matching.Candidate, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) > 0 {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+candidateColumns+` FROM freelancers
			 WHERE id = ANY($1) AND status = 'active' ORDER BY id`, pq.Array(ids))
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+candidateColumns+` FROM freelancers
			 WHERE status = 'active' ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, loadError(ctx, err)
	}
	defer rows.Close()

	candidates := make([]matching.Candidate, 0, len(ids))
	for rows.Next() {
		c, err := scanCandidate(rows)
		var decodeErr *experienceDecodeError
		if stderrors.As(err, &decodeErr) {
			r.logger.Warn("skipping freelancer with unreadable experience", map[string]interface{}{
				"freelancerId": decodeErr.id,
				"error":        decodeErr.err,
			})
			continue
		}
		if err != nil {
			return nil, loadError(ctx, err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, loadError(ctx, err)
	}
	return candidates, nil
}

// LoadContact returns the notification details of an active freelancer.
func (r *Postgres) LoadContact(ctx context.Context, freelancerID string) (*Contact, error) {
	var name, email, phone sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT name, email, phone FROM freelancers WHERE id = $1 AND status = 'active'`, freelancerID).
		Scan(&name, &email, &phone)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewCandidateNotFoundError(freelancerID)
	}
	if err != nil {
		return nil, queryError(ctx, "load_contact", err)
	}
	return &Contact{ID: freelancerID, Name: name.String, Email: email.String, Phone: phone.String}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type experienceDecodeError struct {
	id  string
	err error
}

func (e *experienceDecodeError) Error() string {
	return fmt.Sprintf("decode experience for %s: %v", e.id, e.err)
}

func scanCandidate(s scanner) (*matching.Candidate, error) {
	var (
		c                                   matching.Candidate
		skills                              pq.StringArray
		rating, success, workload, response sql.NullFloat64
		rate                                sql.NullFloat64
		experience                          []byte
	)
	if err := s.Scan(&c.ID, &skills, &rating, &c.CompletedProjects, &success,
		&workload, &response, &rate, &experience); err != nil {
		return nil, err
	}

	c.Skills = skills
	c.Rating = nullable(rating)
	c.SuccessRate = nullable(success)
	c.Workload = nullable(workload)
	c.AvgResponseHours = nullable(response)
	c.HourlyRate = nullable(rate)
	if len(experience) > 0 {
		if err := json.Unmarshal(experience, &c.Experience); err != nil {
			return nil, &experienceDecodeError{id: c.ID, err: err}
		}
	}
	return &c, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func loadError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError("load_candidates")
	}
	return errors.NewCandidateLoadFailedError(err)
}

func queryError(ctx context.Context, queryType string, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQueryTimeoutError(queryType)
	}
	return errors.NewQueryExecutionFailedError(queryType, err)
}
