package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whispr-campus/whispr/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// tokenPredicate builds an OR'd ILIKE predicate matching any token against any
// of the given columns. Placeholders start at argIndex. Returns the SQL
// fragment, the arguments, and the next free placeholder index.
func tokenPredicate(columns []string, tokens []string, argIndex int) (string, []any, int) {
	var clauses []string
	var args []any
	for _, token := range tokens {
		for _, col := range columns {
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", col, argIndex))
			args = append(args, "%"+token+"%")
			argIndex++
		}
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args, argIndex
}

const courseColumns = `c.id, c.code, c.name, c.credits, c.description, c.review_summary, c.review_count, c.average_rating, c.created_at, c.updated_at`

// scanCourse scans a course row from a query over courseColumns.
func scanCourse(scanner interface{ Scan(...any) error }) (*Course, error) {
	var c Course
	var credits sql.NullInt64
	var description, reviewSummary sql.NullString
	if err := scanner.Scan(
		&c.ID, &c.Code, &c.Name, &credits, &description, &reviewSummary,
		&c.ReviewCount, &c.AverageRating, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if credits.Valid {
		v := int(credits.Int64)
		c.Credits = &v
	}
	if description.Valid {
		c.Description = &description.String
	}
	if reviewSummary.Valid {
		c.ReviewSummary = &reviewSummary.String
	}
	return &c, nil
}

const professorColumns = `p.id, p.name, p.lab, p.review_summary, p.review_count, p.average_rating, p.created_at, p.updated_at`

// scanProfessor scans a professor row from a query over professorColumns.
func scanProfessor(scanner interface{ Scan(...any) error }) (*Professor, error) {
	var p Professor
	var lab, reviewSummary sql.NullString
	if err := scanner.Scan(
		&p.ID, &p.Name, &lab, &reviewSummary,
		&p.ReviewCount, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lab.Valid {
		p.Lab = &lab.String
	}
	if reviewSummary.Valid {
		p.ReviewSummary = &reviewSummary.String
	}
	return &p, nil
}

// SearchCourses returns courses matching any token on name/code (and
// description when deep).
func (r *PostgresRepository) SearchCourses(ctx context.Context, tokens []string, deep bool) (results []*Course, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "courses", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	columns := []string{"c.name", "c.code"}
	if deep {
		columns = append(columns, "c.description")
	}
	predicate, args, _ := tokenPredicate(columns, tokens, 1)

	query := `SELECT ` + courseColumns + ` FROM courses c WHERE ` + predicate
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// SearchProfessors returns professors matching any token on name (and
// lab/review summary when deep).
func (r *PostgresRepository) SearchProfessors(ctx context.Context, tokens []string, deep bool) (results []*Professor, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "professors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	columns := []string{"p.name"}
	if deep {
		columns = append(columns, "p.lab", "p.review_summary")
	}
	predicate, args, _ := tokenPredicate(columns, tokens, 1)

	query := `SELECT ` + professorColumns + ` FROM professors p WHERE ` + predicate
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search professors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfessor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan professor: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

const instructorColumns = `ci.id, ci.course_id, ci.professor_id, ci.semester, ci.year, ci.summary, ci.review_count, ci.average_rating, ci.created_at`

// scanInstructorDetail scans a joined instructor row.
func scanInstructorDetail(scanner interface{ Scan(...any) error }) (*CourseInstructorDetail, error) {
	var ci CourseInstructor
	var semester, summary sql.NullString
	var year sql.NullInt64
	var c Course
	var credits sql.NullInt64
	var courseDescription, courseSummary sql.NullString
	var p Professor
	var lab, professorSummary sql.NullString

	if err := scanner.Scan(
		&ci.ID, &ci.CourseID, &ci.ProfessorID, &semester, &year, &summary,
		&ci.ReviewCount, &ci.AverageRating, &ci.CreatedAt,
		&c.ID, &c.Code, &c.Name, &credits, &courseDescription, &courseSummary,
		&c.ReviewCount, &c.AverageRating, &c.CreatedAt, &c.UpdatedAt,
		&p.ID, &p.Name, &lab, &professorSummary,
		&p.ReviewCount, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if semester.Valid {
		ci.Semester = &semester.String
	}
	if year.Valid {
		v := int(year.Int64)
		ci.Year = &v
	}
	if summary.Valid {
		ci.Summary = &summary.String
	}
	if credits.Valid {
		v := int(credits.Int64)
		c.Credits = &v
	}
	if courseDescription.Valid {
		c.Description = &courseDescription.String
	}
	if courseSummary.Valid {
		c.ReviewSummary = &courseSummary.String
	}
	if lab.Valid {
		p.Lab = &lab.String
	}
	if professorSummary.Valid {
		p.ReviewSummary = &professorSummary.String
	}

	return &CourseInstructorDetail{CourseInstructor: ci, Course: &c, Professor: &p}, nil
}

const instructorJoin = `
	FROM course_instructors ci
	JOIN courses c ON ci.course_id = c.id
	JOIN professors p ON ci.professor_id = p.id`

// SearchCourseInstructors returns joined instructor links matching the filter
// and any token across course/professor/term fields.
func (r *PostgresRepository) SearchCourseInstructors(ctx context.Context, tokens []string, deep bool, filter InstructorFilter) (results []*CourseInstructorDetail, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "course_instructors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	columns := []string{"c.name", "c.code", "p.name", "ci.semester"}
	if deep {
		columns = append(columns, "c.description", "p.lab", "ci.summary")
	}
	predicate, args, argIndex := tokenPredicate(columns, tokens, 1)

	conditions := []string{predicate}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("ci.course_id = $%d", argIndex))
		args = append(args, filter.CourseID)
		argIndex++
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("ci.professor_id = $%d", argIndex))
		args = append(args, filter.ProfessorID)
	}

	query := `SELECT ` + instructorColumns + `, ` + courseColumns + `, ` + professorColumns +
		instructorJoin + ` WHERE ` + strings.Join(conditions, " AND ")
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search course instructors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		detail, err := scanInstructorDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course instructor: %w", err)
		}
		results = append(results, detail)
	}
	return results, rows.Err()
}

// GetCourse retrieves a course by id.
func (r *PostgresRepository) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id)
	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// GetProfessor retrieves a professor by id.
func (r *PostgresRepository) GetProfessor(ctx context.Context, id string) (*Professor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+professorColumns+` FROM professors p WHERE p.id = $1`, id)
	p, err := scanProfessor(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get professor: %w", err)
	}
	return p, nil
}

// GetCourseInstructor retrieves a joined instructor link by id.
func (r *PostgresRepository) GetCourseInstructor(ctx context.Context, id string) (*CourseInstructorDetail, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+instructorColumns+`, `+courseColumns+`, `+professorColumns+instructorJoin+` WHERE ci.id = $1`, id)
	detail, err := scanInstructorDetail(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course instructor: %w", err)
	}
	return detail, nil
}
