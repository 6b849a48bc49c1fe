package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/merit-go-api/internal/dto"
	"github.com/noah-isme/merit-go-api/internal/models"
)

type submissionFixture struct {
	repo    *fakeSubmissionRepo
	audit   *fakeAudit
	service SubmissionService
}

func newSubmissionFixture() *submissionFixture {
	repo := newFakeSubmissionRepo()
	audit := &fakeAudit{}
	svc := NewSubmissionService(repo, NewAuthorizationGuard(), audit, testValidator(), testLogger())

	return &submissionFixture{repo: repo, audit: audit, service: svc}
}

func validCreateRequest() dto.SubmissionCreateRequest {
	return dto.SubmissionCreateRequest{
		ActivityType:    "volunteering",
		Title:           "Community library volunteering",
		Description:     "Weekly shifts during spring term",
		ActivityDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Institution:     "City Library",
		ExpectedCredits: 2,
		Documents:       []string{"https://cdn.example.com/evidence/1.pdf"},
	}
}

func TestSubmissionCreate(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	created, err := f.service.Create(context.Background(), student, validCreateRequest())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, uint(7), created.StudentID)
	require.Equal(t, "pending", created.Status)
	require.Nil(t, created.ReviewerID)
	require.False(t, created.SubmittedAt.IsZero())

	entries := f.audit.byAction(models.AuditActionSubmissionCreated)
	require.Len(t, entries, 1)
	require.Equal(t, uint(7), entries[0].ActorID)
}

func TestSubmissionCreateSanitizesInput(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	payload := validCreateRequest()
	payload.Title = `Chess club <script>alert("x")</script> captain`

	created, err := f.service.Create(context.Background(), student, payload)
	require.NoError(t, err)
	require.NotContains(t, created.Title, "<script>")
}

func TestSubmissionCreateValidation(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	payload := validCreateRequest()
	payload.Title = ""

	_, err := f.service.Create(context.Background(), student, payload)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestSubmissionCreateFacultyDenied(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.service.Create(context.Background(), Actor{ID: 21, Role: RoleFaculty}, validCreateRequest())
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestSubmissionCreateSupersedesRequiresRejected(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	original := f.repo.seed(pendingSubmission(7, 4))

	payload := validCreateRequest()
	payload.SupersedesID = &original.ID

	_, err := f.service.Create(context.Background(), student, payload)
	require.ErrorIs(t, err, ErrResubmitNotRejected)
}

func TestSubmissionResubmit(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	original := pendingSubmission(7, 4)
	original.Status = models.SubmissionStatusRejected
	seeded := f.repo.seed(original)

	newTitle := "Regional hackathon finalist, with certificates"
	resubmitted, err := f.service.Resubmit(context.Background(), student, seeded.ID, dto.SubmissionResubmitRequest{
		Title:     &newTitle,
		Documents: []string{"https://cdn.example.com/evidence/2.pdf"},
	})
	require.NoError(t, err)
	require.NotEqual(t, seeded.ID, resubmitted.ID)
	require.Equal(t, "pending", resubmitted.Status)
	require.Equal(t, newTitle, resubmitted.Title)
	require.NotNil(t, resubmitted.SupersedesID)
	require.Equal(t, seeded.ID, *resubmitted.SupersedesID)

	// The rejected original is untouched.
	stored, err := f.repo.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusRejected, stored.Status)
}

func TestSubmissionResubmitCopiesUnsetFields(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	original := pendingSubmission(7, 4)
	original.Status = models.SubmissionStatusRejected
	seeded := f.repo.seed(original)

	resubmitted, err := f.service.Resubmit(context.Background(), student, seeded.ID, dto.SubmissionResubmitRequest{})
	require.NoError(t, err)
	require.Equal(t, seeded.Title, resubmitted.Title)
	require.Equal(t, seeded.ExpectedCredits, resubmitted.ExpectedCredits)
}

func TestSubmissionResubmitOnlyRejected(t *testing.T) {
	f := newSubmissionFixture()
	student := Actor{ID: 7, Role: RoleStudent}

	seeded := f.repo.seed(pendingSubmission(7, 4))

	_, err := f.service.Resubmit(context.Background(), student, seeded.ID, dto.SubmissionResubmitRequest{})
	require.ErrorIs(t, err, ErrResubmitNotRejected)
}

func TestSubmissionResubmitOwnershipEnforced(t *testing.T) {
	f := newSubmissionFixture()

	original := pendingSubmission(7, 4)
	original.Status = models.SubmissionStatusRejected
	seeded := f.repo.seed(original)

	_, err := f.service.Resubmit(context.Background(), Actor{ID: 8, Role: RoleStudent}, seeded.ID, dto.SubmissionResubmitRequest{})
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestSubmissionGetOwnership(t *testing.T) {
	f := newSubmissionFixture()
	seeded := f.repo.seed(pendingSubmission(7, 4))

	_, err := f.service.Get(context.Background(), Actor{ID: 7, Role: RoleStudent}, seeded.ID)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), Actor{ID: 8, Role: RoleStudent}, seeded.ID)
	require.ErrorIs(t, err, ErrNotAllowed)

	_, err = f.service.Get(context.Background(), Actor{ID: 21, Role: RoleFaculty}, seeded.ID)
	require.NoError(t, err)
}

func TestSubmissionGetNotFound(t *testing.T) {
	f := newSubmissionFixture()

	_, err := f.service.Get(context.Background(), Actor{ID: 7, Role: RoleStudent}, 404)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmissionListStudentsSeeOnlyTheirOwn(t *testing.T) {
	f := newSubmissionFixture()
	f.repo.seed(pendingSubmission(7, 4))
	f.repo.seed(pendingSubmission(8, 2))

	otherStudent := uint(8)
	list, err := f.service.List(context.Background(), Actor{ID: 7, Role: RoleStudent}, dto.SubmissionFilter{StudentID: &otherStudent})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, uint(7), list.Items[0].StudentID)
}
