// Package types holds the shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// AcademicDetail is a single subject/mark entry owned by a Student.
// It has no identity of its own: the list is created, replaced in full,
// or deleted only as a side effect of its parent student's writes.
type AcademicDetail struct {
	Subject string `json:"subject" validate:"required"`
	Mark    int    `json:"mark"    validate:"gte=0,lte=100"`
}

// Student represents a student record in our system.
//
// The validate:"..." tags are checked by go-playground/validator before
// a payload reaches storage. DateOfBirth travels as an ISO YYYY-MM-DD
// string on the wire and is stored verbatim.
//
// AcademicDetails distinguishes nil from empty on purpose: a payload
// without the key decodes to nil (leave existing marks untouched on
// update), while an explicit [] decodes to an empty slice (clear them).
type Student struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"             validate:"required,min=2,max=50,letters_spaces"`
	Email           string           `json:"email"            validate:"required,email"`
	DateOfBirth     string           `json:"date_of_birth"    validate:"required,datetime=2006-01-02"`
	AcademicDetails []AcademicDetail `json:"academic_details" validate:"omitempty,dive"`
}

// Pagination describes one page of a filtered student listing.
type Pagination struct {
	TotalCount  int `json:"totalCount"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

// StudentPage is the response envelope for GET /api/students.
type StudentPage struct {
	Pagination Pagination `json:"pagination"`
	Students   []Student  `json:"students"`
}
