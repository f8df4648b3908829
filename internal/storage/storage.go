// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// Handlers depend only on this interface, never on a concrete driver:
// switching databases means implementing the interface for the new
// engine and changing one line in main.go, and tests can pass a stub.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/student-records-api/internal/types"
)

// Domain error kinds. The concrete store classifies engine-specific
// failures (constraint-violation codes, sql.ErrNoRows) into these
// sentinels so callers can branch with errors.Is without knowing
// which database is underneath.
var (
	// ErrNotFound reports that no student matches the requested id.
	// Update and delete treat this as a normal outcome, not a failure.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateEmail reports a unique-constraint violation on the
	// email column, for single and bulk creates alike.
	ErrDuplicateEmail = errors.New("a student with this email already exists")
)

// Storage is the database contract.
//
// Every multi-statement write (create, bulk create, update, delete)
// runs inside a single transaction: either all of its statements take
// effect or none do, and a student row is never observable without its
// matching marks rows.
type Storage interface {
	// CreateStudent inserts a student plus its academic details and
	// returns the record with the generated id filled in.
	// Returns ErrDuplicateEmail if the email is already taken.
	CreateStudent(ctx context.Context, student types.Student) (types.Student, error)

	// CreateStudents inserts a whole batch atomically. A failure
	// anywhere in the batch (including one duplicate email) rejects
	// the batch as a whole.
	CreateStudents(ctx context.Context, students []types.Student) ([]types.Student, error)

	// GetStudents returns one page of students, each with its full
	// academic-details list, plus the pagination metadata for the
	// given filter. search matches name or email case-insensitively.
	GetStudents(ctx context.Context, page, limit int, search string) (types.StudentPage, error)

	// GetStudentByID fetches a single student with its details.
	// Returns ErrNotFound if the id does not exist.
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)

	// UpdateStudent replaces the student's scalar fields and, when the
	// payload carries an academic_details list (nil means absent),
	// replaces the stored list in full. Returns ErrNotFound if the id
	// does not exist; the data store is left untouched in that case.
	UpdateStudent(ctx context.Context, id int64, student types.Student) (types.Student, error)

	// DeleteStudent removes the student and its marks. Returns
	// ErrNotFound if the id does not exist.
	DeleteStudent(ctx context.Context, id int64) error

	// Ping reports whether the database is reachable. Connectivity
	// problems yield false, never an error.
	Ping(ctx context.Context) bool
}
