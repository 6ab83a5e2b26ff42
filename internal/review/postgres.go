package review

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/whispr-campus/whispr/internal/catalog"
	"github.com/whispr-campus/whispr/internal/tracing"
)

// PostgresRepository implements Repository and SocialGraph using PostgreSQL.
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

// reviewSelect joins a review with its author and subject records. Instructor
// links carry their own course/professor aliases (ic/ip) since they can
// differ from the review's direct subjects.
const reviewSelect = `
	SELECT r.id, r.user_id, r.course_id, r.professor_id, r.course_instructor_id,
	       r.rating, r.content, r.semester, r.year, r.upvotes, r.downvotes, r.is_edited,
	       r.created_at, r.updated_at,
	       u.id, u.username, u.bio, u.student_since_year, u.echoes,
	       c.id, c.code, c.name, c.credits, c.description, c.review_summary,
	       c.review_count, c.average_rating, c.created_at, c.updated_at,
	       p.id, p.name, p.lab, p.review_summary,
	       p.review_count, p.average_rating, p.created_at, p.updated_at,
	       ci.id, ci.course_id, ci.professor_id, ci.semester, ci.year, ci.summary,
	       ci.review_count, ci.average_rating, ci.created_at,
	       ic.id, ic.code, ic.name, ic.credits, ic.description, ic.review_summary,
	       ic.review_count, ic.average_rating, ic.created_at, ic.updated_at,
	       ip.id, ip.name, ip.lab, ip.review_summary,
	       ip.review_count, ip.average_rating, ip.created_at, ip.updated_at
	FROM reviews r
	JOIN users u ON r.user_id = u.id
	LEFT JOIN courses c ON r.course_id = c.id
	LEFT JOIN professors p ON r.professor_id = p.id
	LEFT JOIN course_instructors ci ON r.course_instructor_id = ci.id
	LEFT JOIN courses ic ON ci.course_id = ic.id
	LEFT JOIN professors ip ON ci.professor_id = ip.id`

// nullableCourse holds the scan targets for an optional joined course.
type nullableCourse struct {
	id, code, name, description, summary sql.NullString
	credits, reviewCount                 sql.NullInt64
	averageRating                        sql.NullFloat64
	createdAt, updatedAt                 sql.NullTime
}

func (n *nullableCourse) targets() []any {
	return []any{&n.id, &n.code, &n.name, &n.credits, &n.description, &n.summary,
		&n.reviewCount, &n.averageRating, &n.createdAt, &n.updatedAt}
}

func (n *nullableCourse) course() *catalog.Course {
	if !n.id.Valid {
		return nil
	}
	c := &catalog.Course{
		ID:            n.id.String,
		Code:          n.code.String,
		Name:          n.name.String,
		ReviewCount:   int(n.reviewCount.Int64),
		AverageRating: n.averageRating.Float64,
		CreatedAt:     n.createdAt.Time,
		UpdatedAt:     n.updatedAt.Time,
	}
	if n.credits.Valid {
		v := int(n.credits.Int64)
		c.Credits = &v
	}
	if n.description.Valid {
		c.Description = &n.description.String
	}
	if n.summary.Valid {
		c.ReviewSummary = &n.summary.String
	}
	return c
}

// nullableProfessor holds the scan targets for an optional joined professor.
type nullableProfessor struct {
	id, name, lab, summary sql.NullString
	reviewCount            sql.NullInt64
	averageRating          sql.NullFloat64
	createdAt, updatedAt   sql.NullTime
}

func (n *nullableProfessor) targets() []any {
	return []any{&n.id, &n.name, &n.lab, &n.summary,
		&n.reviewCount, &n.averageRating, &n.createdAt, &n.updatedAt}
}

func (n *nullableProfessor) professor() *catalog.Professor {
	if !n.id.Valid {
		return nil
	}
	p := &catalog.Professor{
		ID:            n.id.String,
		Name:          n.name.String,
		ReviewCount:   int(n.reviewCount.Int64),
		AverageRating: n.averageRating.Float64,
		CreatedAt:     n.createdAt.Time,
		UpdatedAt:     n.updatedAt.Time,
	}
	if n.lab.Valid {
		p.Lab = &n.lab.String
	}
	if n.summary.Valid {
		p.ReviewSummary = &n.summary.String
	}
	return p
}

// scanReviewWithContext scans one row of reviewSelect.
func scanReviewWithContext(scanner interface{ Scan(...any) error }) (*ReviewWithContext, error) {
	var out ReviewWithContext
	var courseID, professorID, instructorID, content, semester sql.NullString
	var year sql.NullInt64
	var author Author
	var bio sql.NullString
	var studentSince sql.NullInt64
	var directCourse nullableCourse
	var directProfessor nullableProfessor
	var ciID, ciCourseID, ciProfessorID, ciSemester, ciSummary sql.NullString
	var ciYear, ciReviewCount sql.NullInt64
	var ciAverageRating sql.NullFloat64
	var ciCreatedAt sql.NullTime
	var linkCourse nullableCourse
	var linkProfessor nullableProfessor

	targets := []any{
		&out.ID, &out.AuthorID, &courseID, &professorID, &instructorID,
		&out.Rating, &content, &semester, &year, &out.Upvotes, &out.Downvotes, &out.IsEdited,
		&out.CreatedAt, &out.UpdatedAt,
		&author.ID, &author.Username, &bio, &studentSince, &author.Echoes,
	}
	targets = append(targets, directCourse.targets()...)
	targets = append(targets, directProfessor.targets()...)
	targets = append(targets, &ciID, &ciCourseID, &ciProfessorID, &ciSemester, &ciYear, &ciSummary,
		&ciReviewCount, &ciAverageRating, &ciCreatedAt)
	targets = append(targets, linkCourse.targets()...)
	targets = append(targets, linkProfessor.targets()...)

	if err := scanner.Scan(targets...); err != nil {
		return nil, err
	}

	if courseID.Valid {
		out.CourseID = &courseID.String
	}
	if professorID.Valid {
		out.ProfessorID = &professorID.String
	}
	if instructorID.Valid {
		out.CourseInstructorID = &instructorID.String
	}
	if content.Valid {
		out.Content = &content.String
	}
	if semester.Valid {
		out.Semester = &semester.String
	}
	if year.Valid {
		v := int(year.Int64)
		out.Year = &v
	}
	if bio.Valid {
		author.Bio = &bio.String
	}
	if studentSince.Valid {
		v := int(studentSince.Int64)
		author.StudentSinceYear = &v
	}
	out.Author = &author
	out.Course = directCourse.course()
	out.Professor = directProfessor.professor()

	if ciID.Valid {
		ci := catalog.CourseInstructor{
			ID:            ciID.String,
			CourseID:      ciCourseID.String,
			ProfessorID:   ciProfessorID.String,
			ReviewCount:   int(ciReviewCount.Int64),
			AverageRating: ciAverageRating.Float64,
			CreatedAt:     ciCreatedAt.Time,
		}
		if ciSemester.Valid {
			ci.Semester = &ciSemester.String
		}
		if ciYear.Valid {
			v := int(ciYear.Int64)
			ci.Year = &v
		}
		if ciSummary.Valid {
			ci.Summary = &ciSummary.String
		}
		out.CourseInstructor = &catalog.CourseInstructorDetail{
			CourseInstructor: ci,
			Course:           linkCourse.course(),
			Professor:        linkProfessor.professor(),
		}
	}

	return &out, nil
}

// queryReviews runs a reviewSelect query and scans all rows.
func (r *PostgresRepository) queryReviews(ctx context.Context, query string, args ...any) (results []*ReviewWithContext, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "reviews", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rev, err := scanReviewWithContext(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		results = append(results, rev)
	}
	return results, rows.Err()
}

// SearchReviews returns reviews whose content matches any token, AND'd with
// the filter.
func (r *PostgresRepository) SearchReviews(ctx context.Context, tokens []string, filter Filter) ([]*ReviewWithContext, error) {
	var conditions []string
	var args []any
	argIndex := 1

	var tokenClauses []string
	for _, token := range tokens {
		tokenClauses = append(tokenClauses, fmt.Sprintf("r.content ILIKE $%d", argIndex))
		args = append(args, "%"+token+"%")
		argIndex++
	}
	conditions = append(conditions, "("+strings.Join(tokenClauses, " OR ")+")")

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("r.course_id = $%d", argIndex))
		args = append(args, filter.CourseID)
		argIndex++
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("r.professor_id = $%d", argIndex))
		args = append(args, filter.ProfessorID)
		argIndex++
	}
	if filter.MinRating > 0 {
		conditions = append(conditions, fmt.Sprintf("r.rating >= $%d", argIndex))
		args = append(args, filter.MinRating)
		argIndex++
	}
	if filter.MaxRating > 0 {
		conditions = append(conditions, fmt.Sprintf("r.rating <= $%d", argIndex))
		args = append(args, filter.MaxRating)
	}

	query := reviewSelect + " WHERE " + strings.Join(conditions, " AND ")
	results, err := r.queryReviews(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search reviews: %w", err)
	}
	return results, nil
}

// SearchReplies returns replies whose content matches any token.
func (r *PostgresRepository) SearchReplies(ctx context.Context, tokens []string) (results []*ReplyWithAuthor, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "replies", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var clauses []string
	var args []any
	for i, token := range tokens {
		clauses = append(clauses, fmt.Sprintf("rp.content ILIKE $%d", i+1))
		args = append(args, "%"+token+"%")
	}

	query := `
		SELECT rp.id, rp.review_id, rp.user_id, rp.content, rp.upvotes, rp.downvotes,
		       rp.is_edited, rp.created_at, rp.updated_at,
		       u.id, u.username, u.bio, u.student_since_year, u.echoes
		FROM replies rp
		JOIN users u ON rp.user_id = u.id
		WHERE (` + strings.Join(clauses, " OR ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var out ReplyWithAuthor
		var author Author
		var bio sql.NullString
		var studentSince sql.NullInt64
		if err := rows.Scan(
			&out.ID, &out.ReviewID, &out.AuthorID, &out.Content, &out.Upvotes, &out.Downvotes,
			&out.IsEdited, &out.CreatedAt, &out.UpdatedAt,
			&author.ID, &author.Username, &bio, &studentSince, &author.Echoes,
		); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		if bio.Valid {
			author.Bio = &bio.String
		}
		if studentSince.Valid {
			v := int(studentSince.Int64)
			author.StudentSinceYear = &v
		}
		out.Author = &author
		results = append(results, &out)
	}
	return results, rows.Err()
}

// ListRecentByAuthors returns reviews by the given authors at or after since,
// newest first.
func (r *PostgresRepository) ListRecentByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]*ReviewWithContext, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	query := reviewSelect + `
		WHERE r.user_id = ANY($1) AND r.created_at >= $2
		ORDER BY r.created_at DESC`
	results, err := r.queryReviews(ctx, query, pq.Array(authorIDs), since)
	if err != nil {
		return nil, fmt.Errorf("list recent by authors: %w", err)
	}
	return results, nil
}

// ReviewedSubjects returns the distinct subjects the given authors reviewed.
func (r *PostgresRepository) ReviewedSubjects(ctx context.Context, authorIDs []string) (*SubjectSet, error) {
	if len(authorIDs) == 0 {
		return &SubjectSet{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT r.course_id, r.professor_id, r.course_instructor_id
		FROM reviews r
		WHERE r.user_id = ANY($1)`, pq.Array(authorIDs))
	if err != nil {
		return nil, fmt.Errorf("reviewed subjects: %w", err)
	}
	defer rows.Close()

	set := &SubjectSet{}
	courses := make(map[string]bool)
	professors := make(map[string]bool)
	instructors := make(map[string]bool)
	for rows.Next() {
		var courseID, professorID, instructorID sql.NullString
		if err := rows.Scan(&courseID, &professorID, &instructorID); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		if courseID.Valid && !courses[courseID.String] {
			courses[courseID.String] = true
			set.CourseIDs = append(set.CourseIDs, courseID.String)
		}
		if professorID.Valid && !professors[professorID.String] {
			professors[professorID.String] = true
			set.ProfessorIDs = append(set.ProfessorIDs, professorID.String)
		}
		if instructorID.Valid && !instructors[instructorID.String] {
			instructors[instructorID.String] = true
			set.CourseInstructorIDs = append(set.CourseInstructorIDs, instructorID.String)
		}
	}
	return set, rows.Err()
}

// ListBySubjects returns up to limit reviews on any of the given subjects,
// newest first, excluding the given authors.
func (r *PostgresRepository) ListBySubjects(ctx context.Context, subjects *SubjectSet, excludeAuthorIDs []string, limit int) ([]*ReviewWithContext, error) {
	if subjects.Empty() {
		return nil, nil
	}

	var subjectClauses []string
	var args []any
	argIndex := 1
	if len(subjects.CourseIDs) > 0 {
		subjectClauses = append(subjectClauses, fmt.Sprintf("r.course_id = ANY($%d)", argIndex))
		args = append(args, pq.Array(subjects.CourseIDs))
		argIndex++
	}
	if len(subjects.ProfessorIDs) > 0 {
		subjectClauses = append(subjectClauses, fmt.Sprintf("r.professor_id = ANY($%d)", argIndex))
		args = append(args, pq.Array(subjects.ProfessorIDs))
		argIndex++
	}
	if len(subjects.CourseInstructorIDs) > 0 {
		subjectClauses = append(subjectClauses, fmt.Sprintf("r.course_instructor_id = ANY($%d)", argIndex))
		args = append(args, pq.Array(subjects.CourseInstructorIDs))
		argIndex++
	}

	conditions := []string{"(" + strings.Join(subjectClauses, " OR ") + ")"}
	if len(excludeAuthorIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.user_id <> ALL($%d)", argIndex))
		args = append(args, pq.Array(excludeAuthorIDs))
		argIndex++
	}

	query := reviewSelect + `
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY r.created_at DESC
		LIMIT ` + fmt.Sprintf("$%d", argIndex)
	args = append(args, limit)

	results, err := r.queryReviews(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by subjects: %w", err)
	}
	return results, nil
}

// RandomSample returns up to limit reviews in store-side random order,
// excluding the given review ids and author.
func (r *PostgresRepository) RandomSample(ctx context.Context, excludeReviewIDs []string, excludeAuthorID string, limit int) ([]*ReviewWithContext, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if len(excludeReviewIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.id <> ALL($%d)", argIndex))
		args = append(args, pq.Array(excludeReviewIDs))
		argIndex++
	}
	conditions = append(conditions, fmt.Sprintf("r.user_id <> $%d", argIndex))
	args = append(args, excludeAuthorID)
	argIndex++

	query := reviewSelect + `
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY random()
		LIMIT ` + fmt.Sprintf("$%d", argIndex)
	args = append(args, limit)

	results, err := r.queryReviews(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("random sample: %w", err)
	}
	return results, nil
}

// CountsByUser returns the user's own review/reply/vote counts.
func (r *PostgresRepository) CountsByUser(ctx context.Context, userID string) (*Counts, error) {
	var counts Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM reviews WHERE user_id = $1),
			(SELECT COUNT(*) FROM replies WHERE user_id = $1),
			(SELECT COUNT(*) FROM votes WHERE user_id = $1)`,
		userID).Scan(&counts.Reviews, &counts.Replies, &counts.Votes)
	if err != nil {
		return nil, fmt.Errorf("counts by user: %w", err)
	}
	return &counts, nil
}

// GetAuthor retrieves an author projection by user id.
func (r *PostgresRepository) GetAuthor(ctx context.Context, id string) (*Author, error) {
	var author Author
	var bio sql.NullString
	var studentSince sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.bio, u.student_since_year, u.echoes
		FROM users u WHERE u.id = $1`, id).
		Scan(&author.ID, &author.Username, &bio, &studentSince, &author.Echoes)
	if err == sql.ErrNoRows {
		return nil, ErrAuthorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if bio.Valid {
		author.Bio = &bio.String
	}
	if studentSince.Valid {
		v := int(studentSince.Int64)
		author.StudentSinceYear = &v
	}
	return &author, nil
}

// FollowedIDs returns the ids of all users the given user follows.
func (r *PostgresRepository) FollowedIDs(ctx context.Context, userID string) (ids []string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "user_followers", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT followed_id FROM user_followers WHERE follower_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("followed ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followed id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FollowCounts returns the user's follower and following counts.
func (r *PostgresRepository) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	var followers, following int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM user_followers WHERE followed_id = $1),
			(SELECT COUNT(*) FROM user_followers WHERE follower_id = $1)`,
		userID).Scan(&followers, &following)
	if err != nil {
		return 0, 0, fmt.Errorf("follow counts: %w", err)
	}
	return followers, following, nil
}
