package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records-api/internal/config"
	"github.com/aanand-mishra/student-records-api/internal/storage"
	"github.com/aanand-mishra/student-records-api/internal/types"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	cfg := &config.Config{StoragePath: filepath.Join(t.TempDir(), "students.db")}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Db.Close() })

	return s
}

func sampleStudent(email string) types.Student {
	return types.Student{
		Name:        "Jane Roe",
		Email:       email,
		DateOfBirth: "2000-01-01",
		AcademicDetails: []types.AcademicDetail{
			{Subject: "Math", Mark: 88},
			{Subject: "Physics", Mark: 72},
		},
	}
}

func countRows(t *testing.T, s *SQLite, table string) int {
	t.Helper()

	var n int
	require.NoError(t, s.Db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("jane@example.com"))
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Len(t, created.AcademicDetails, 2)

	got, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", got.Name)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "2000-01-01", got.DateOfBirth)
	assert.Equal(t, created.AcademicDetails, got.AcademicDetails)
}

func TestCreateWithoutDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	student := sampleStudent("nodetails@example.com")
	student.AcademicDetails = nil

	created, err := s.CreateStudent(ctx, student)
	require.NoError(t, err)
	assert.NotNil(t, created.AcademicDetails)
	assert.Empty(t, created.AcademicDetails)

	got, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.AcademicDetails)
	assert.Empty(t, got.AcademicDetails)
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateStudent(ctx, sampleStudent("taken@example.com"))
	require.NoError(t, err)

	second := sampleStudent("taken@example.com")
	second.Name = "John Doe"
	_, err = s.CreateStudent(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	// The failed attempt must leave no orphaned marks behind.
	assert.Equal(t, len(first.AcademicDetails), countRows(t, s, "marks"))
	assert.Equal(t, 1, countRows(t, s, "students"))
}

func TestGetStudentByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetStudentByID(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateNotFoundLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("keep@example.com"))
	require.NoError(t, err)

	_, err = s.UpdateStudent(ctx, created.ID+100, sampleStudent("other@example.com"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep@example.com", got.Email)
	assert.Equal(t, 1, countRows(t, s, "students"))
}

func TestUpdateReplacesDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("replace@example.com"))
	require.NoError(t, err)

	update := created
	update.AcademicDetails = []types.AcademicDetail{{Subject: "Chemistry", Mark: 95}}
	updated, err := s.UpdateStudent(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, update.AcademicDetails, updated.AcademicDetails)
	assert.Equal(t, 1, countRows(t, s, "marks"))
}

func TestUpdateWithEmptyListClearsDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("clear@example.com"))
	require.NoError(t, err)

	update := created
	update.AcademicDetails = []types.AcademicDetail{}
	updated, err := s.UpdateStudent(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Empty(t, updated.AcademicDetails)
	assert.Equal(t, 0, countRows(t, s, "marks"))
}

func TestUpdateWithNilListLeavesDetailsUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("untouched@example.com"))
	require.NoError(t, err)

	update := created
	update.Name = "Jane Renamed"
	update.AcademicDetails = nil
	updated, err := s.UpdateStudent(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "Jane Renamed", updated.Name)
	assert.Equal(t, created.AcademicDetails, updated.AcademicDetails)
	assert.Equal(t, 2, countRows(t, s, "marks"))
}

func TestDeleteRemovesStudentAndMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("gone@example.com"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteStudent(ctx, created.ID))
	assert.Equal(t, 0, countRows(t, s, "students"))
	assert.Equal(t, 0, countRows(t, s, "marks"))

	_, err = s.GetStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteNotFoundLeavesOtherRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateStudent(ctx, sampleStudent("stay@example.com"))
	require.NoError(t, err)

	err = s.DeleteStudent(ctx, created.ID+100)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, countRows(t, s, "students"))
	assert.Equal(t, 2, countRows(t, s, "marks"))
}

func TestGetStudentsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	for _, email := range emails {
		student := sampleStudent(email)
		student.AcademicDetails = nil
		_, err := s.CreateStudent(ctx, student)
		require.NoError(t, err)
	}

	page1, err := s.GetStudents(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 5, page1.Pagination.TotalCount)
	assert.Equal(t, 3, page1.Pagination.TotalPages)
	assert.Equal(t, 1, page1.Pagination.CurrentPage)
	assert.Equal(t, 2, page1.Pagination.Limit)
	assert.Len(t, page1.Students, 2)

	page3, err := s.GetStudents(ctx, 3, 2, "")
	require.NoError(t, err)
	assert.Len(t, page3.Students, 1)

	// ORDER BY id: no overlap between pages, ids strictly ascending.
	assert.Less(t, page1.Students[0].ID, page1.Students[1].ID)
	assert.Less(t, page1.Students[1].ID, page3.Students[0].ID)

	beyond, err := s.GetStudents(ctx, 4, 2, "")
	require.NoError(t, err)
	assert.Empty(t, beyond.Students)
	assert.Equal(t, 5, beyond.Pagination.TotalCount)
}

func TestGetStudentsSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jane := sampleStudent("jane@example.com")
	_, err := s.CreateStudent(ctx, jane)
	require.NoError(t, err)

	bob := sampleStudent("bob@example.com")
	bob.Name = "Bob Smith"
	_, err = s.CreateStudent(ctx, bob)
	require.NoError(t, err)

	// Matches on name, case-insensitively.
	got, err := s.GetStudents(ctx, 1, 10, "JANE")
	require.NoError(t, err)
	require.Len(t, got.Students, 1)
	assert.Equal(t, "jane@example.com", got.Students[0].Email)
	assert.Equal(t, 1, got.Pagination.TotalCount)

	// Matches on email too.
	got, err = s.GetStudents(ctx, 1, 10, "bob@")
	require.NoError(t, err)
	require.Len(t, got.Students, 1)
	assert.Equal(t, "Bob Smith", got.Students[0].Name)

	got, err = s.GetStudents(ctx, 1, 10, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got.Students)
	assert.Equal(t, 0, got.Pagination.TotalCount)
	assert.Equal(t, 0, got.Pagination.TotalPages)
}

func TestCreateStudentsBulk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []types.Student{
		sampleStudent("one@example.com"),
		sampleStudent("two@example.com"),
	}
	batch[1].AcademicDetails = nil

	created, err := s.CreateStudents(ctx, batch)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "one@example.com", created[0].Email)
	assert.Equal(t, "two@example.com", created[1].Email)
	assert.Less(t, created[0].ID, created[1].ID)

	// Each echoed record's id really points at that record.
	got, err := s.GetStudentByID(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "one@example.com", got.Email)
	assert.Len(t, got.AcademicDetails, 2)
}

func TestCreateStudentsBulkIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateStudent(ctx, sampleStudent("existing@example.com"))
	require.NoError(t, err)

	batch := []types.Student{
		sampleStudent("fresh@example.com"),
		sampleStudent("existing@example.com"), // duplicate anywhere rejects the batch
	}
	_, err = s.CreateStudents(ctx, batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	// Nothing from the batch survives, including the valid first entry.
	assert.Equal(t, 1, countRows(t, s, "students"))
	assert.Equal(t, 2, countRows(t, s, "marks"))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)

	assert.True(t, s.Ping(context.Background()))

	require.NoError(t, s.Db.Close())
	assert.False(t, s.Ping(context.Background()))
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("disk I/O error")
	assert.Equal(t, plain, classify(plain))
}
