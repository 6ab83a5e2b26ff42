package review

import (
	"context"
	"testing"
	"time"

	"github.com/whispr-campus/whispr/internal/catalog"
)

func strPtr(s string) *string { return &s }

func seedRepo(t *testing.T) *InMemoryRepository {
	t.Helper()

	now := time.Now()
	catalogRepo := catalog.NewInMemoryRepository()
	catalogRepo.AddCourse(&catalog.Course{ID: "c1", Code: "CS2110", Name: "Data Structures"})
	catalogRepo.AddCourse(&catalog.Course{ID: "c2", Code: "ECON3030", Name: "Game Theory"})
	catalogRepo.AddProfessor(&catalog.Professor{ID: "p1", Name: "Ada Meyer"})

	repo := NewInMemoryRepository(catalogRepo)
	repo.AddAuthor(&Author{ID: "u1", Username: "nightowl", Echoes: 12})
	repo.AddAuthor(&Author{ID: "u2", Username: "lurker"})
	repo.AddAuthor(&Author{ID: "u3", Username: "senior"})

	repo.AddReview(&Review{
		ID: "r1", AuthorID: "u1", CourseID: strPtr("c1"), Rating: 4,
		Content:   strPtr("Great problem sets, tough exams"),
		CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-2 * time.Hour),
	})
	repo.AddReview(&Review{
		ID: "r2", AuthorID: "u2", CourseID: strPtr("c1"), Rating: 2,
		Content:   strPtr("Grading felt arbitrary"),
		CreatedAt: now.Add(-30 * time.Hour), UpdatedAt: now.Add(-30 * time.Hour),
	})
	repo.AddReview(&Review{
		ID: "r3", AuthorID: "u3", ProfessorID: strPtr("p1"), Rating: 5,
		Content:   strPtr("Office hours were great"),
		CreatedAt: now.Add(-9 * 24 * time.Hour), UpdatedAt: now.Add(-9 * 24 * time.Hour),
	})
	repo.AddReply(&Reply{
		ID: "rp1", ReviewID: "r1", AuthorID: "u2",
		Content:   "Exams were fine with practice",
		CreatedAt: now.Add(-1 * time.Hour), UpdatedAt: now.Add(-1 * time.Hour),
	})
	return repo
}

func TestSearchReviewsTokensAndContext(t *testing.T) {
	repo := seedRepo(t)

	got, err := repo.SearchReviews(context.Background(), []string{"exams"}, Filter{})
	if err != nil {
		t.Fatalf("SearchReviews: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("expected r1, got %v", got)
	}
	if got[0].Author == nil || got[0].Author.Username != "nightowl" {
		t.Error("result should carry the author projection")
	}
	if got[0].Course == nil || got[0].Course.Code != "CS2110" {
		t.Error("result should carry the joined course")
	}
}

func TestSearchReviewsRatingFilter(t *testing.T) {
	repo := seedRepo(t)
	ctx := context.Background()

	got, err := repo.SearchReviews(ctx, []string{"great"}, Filter{MinRating: 4})
	if err != nil {
		t.Fatalf("SearchReviews: %v", err)
	}
	for _, r := range got {
		if r.Rating < 4 {
			t.Errorf("review %s rating %d below MinRating", r.ID, r.Rating)
		}
	}

	got, err = repo.SearchReviews(ctx, []string{"grading"}, Filter{MaxRating: 1})
	if err != nil {
		t.Fatalf("SearchReviews: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("MaxRating 1 should exclude r2, got %d", len(got))
	}
}

func TestSearchReviewsCourseFilter(t *testing.T) {
	repo := seedRepo(t)

	got, err := repo.SearchReviews(context.Background(), []string{"great"}, Filter{CourseID: "c1"})
	if err != nil {
		t.Fatalf("SearchReviews: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("course filter should keep only r1, got %v", got)
	}
}

func TestSearchReplies(t *testing.T) {
	repo := seedRepo(t)

	got, err := repo.SearchReplies(context.Background(), []string{"practice"})
	if err != nil {
		t.Fatalf("SearchReplies: %v", err)
	}
	if len(got) != 1 || got[0].ID != "rp1" {
		t.Fatalf("expected rp1, got %v", got)
	}
	if got[0].Author == nil || got[0].Author.ID != "u2" {
		t.Error("reply should carry its author")
	}
}

func TestListRecentByAuthors(t *testing.T) {
	repo := seedRepo(t)
	since := time.Now().Add(-7 * 24 * time.Hour)

	got, err := repo.ListRecentByAuthors(context.Background(), []string{"u1", "u3"}, since)
	if err != nil {
		t.Fatalf("ListRecentByAuthors: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("only r1 is recent and by u1/u3, got %v", got)
	}
}

func TestListRecentByAuthorsOrdering(t *testing.T) {
	repo := seedRepo(t)
	since := time.Now().Add(-7 * 24 * time.Hour)

	got, err := repo.ListRecentByAuthors(context.Background(), []string{"u1", "u2"}, since)
	if err != nil {
		t.Fatalf("ListRecentByAuthors: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].CreatedAt.Before(got[i].CreatedAt) {
			t.Error("recent reviews should be newest first")
		}
	}
}

func TestReviewedSubjects(t *testing.T) {
	repo := seedRepo(t)

	subjects, err := repo.ReviewedSubjects(context.Background(), []string{"u1", "u3"})
	if err != nil {
		t.Fatalf("ReviewedSubjects: %v", err)
	}
	if len(subjects.CourseIDs) != 1 || subjects.CourseIDs[0] != "c1" {
		t.Errorf("courses = %v, want [c1]", subjects.CourseIDs)
	}
	if len(subjects.ProfessorIDs) != 1 || subjects.ProfessorIDs[0] != "p1" {
		t.Errorf("professors = %v, want [p1]", subjects.ProfessorIDs)
	}
}

func TestListBySubjectsExcludesAuthors(t *testing.T) {
	repo := seedRepo(t)

	subjects := &SubjectSet{CourseIDs: []string{"c1"}}
	got, err := repo.ListBySubjects(context.Background(), subjects, []string{"u1"}, 10)
	if err != nil {
		t.Fatalf("ListBySubjects: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("expected only u2's review on c1, got %v", got)
	}
}

func TestRandomSampleExclusions(t *testing.T) {
	repo := seedRepo(t)

	got, err := repo.RandomSample(context.Background(), []string{"r1"}, "u2", 10)
	if err != nil {
		t.Fatalf("RandomSample: %v", err)
	}
	for _, r := range got {
		if r.ID == "r1" {
			t.Error("sample should exclude the given review id")
		}
		if r.AuthorID == "u2" {
			t.Error("sample should exclude the given author")
		}
	}
	if len(got) != 1 {
		t.Errorf("expected exactly r3, got %d results", len(got))
	}
}

func TestRandomSampleLimit(t *testing.T) {
	repo := seedRepo(t)

	got, err := repo.RandomSample(context.Background(), nil, "", 2)
	if err != nil {
		t.Fatalf("RandomSample: %v", err)
	}
	if len(got) > 2 {
		t.Errorf("sample exceeded limit: %d", len(got))
	}
}

func TestFollowGraph(t *testing.T) {
	repo := seedRepo(t)
	repo.AddFollow("u1", "u2")
	repo.AddFollow("u1", "u3")
	repo.AddFollow("u2", "u3")
	ctx := context.Background()

	followed, err := repo.FollowedIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("FollowedIDs: %v", err)
	}
	if len(followed) != 2 {
		t.Errorf("u1 follows %v, want 2 users", followed)
	}

	followers, following, err := repo.FollowCounts(ctx, "u3")
	if err != nil {
		t.Fatalf("FollowCounts: %v", err)
	}
	if followers != 2 || following != 0 {
		t.Errorf("u3 counts = %d followers %d following, want 2 and 0", followers, following)
	}
}
